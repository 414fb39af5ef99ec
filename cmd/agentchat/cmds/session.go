package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start a session with the agent and show the cookies it set",
		Long: "Runs the session-start request once. Unlike the chat window, which ignores the " +
			"outcome, this reports failures, which makes it useful to check connectivity.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			client, err := a.settings.NewAgentClient()
			if err != nil {
				return err
			}
			if err := client.StartSession(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "session started at %s\n", client.SessionEndpoint())
			cookies := client.Cookies()
			if len(cookies) == 0 {
				_, _ = fmt.Fprintln(out, "no cookies received")
				return nil
			}
			for _, c := range cookies {
				_, _ = fmt.Fprintf(out, "cookie: %s\n", c.Name)
			}
			return nil
		},
	}
}
