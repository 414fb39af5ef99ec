package main

import (
	"context"
	"os"

	"github.com/go-go-golems/agentchat/cmd/agentchat/cmds"
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(cmds.Execute(context.Background(), os.Args[1:]))
}
