package cmds

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-go-golems/agentchat/pkg/config"
	"github.com/go-go-golems/agentchat/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// annotation marking commands that own the terminal; their logs go to a file
const tuiAnnotation = "agentchat/tui"

type app struct {
	settings  *config.Settings
	logCloser io.Closer
}

// Execute builds the root command, runs it with args and closes the log file
// afterwards, whether or not the command failed.
func Execute(ctx context.Context, args []string) error {
	a := &app{}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) error {
	defer a.closeLog()

	rootCmd := a.newRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *app) newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          config.AppName,
		Short:        "agentchat is a terminal client for the GDP/Population AI agent",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		a.newChatCommand(),
		a.newAskCommand(),
		a.newSessionCommand(),
		a.newConfigCommand(),
		a.newServeStubCommand(),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	v := viper.New()
	if err := config.InitViper(v, cmd.Flags()); err != nil {
		return err
	}
	settings, err := config.Load(v)
	if err != nil {
		return err
	}

	ls := settings.LoggingSettings()
	if cmd.Annotations[tuiAnnotation] == "true" && ls.File == "" {
		ls.File = config.DefaultTUILogFile
	}
	closer, err := logging.Init(ls)
	if err != nil {
		return err
	}

	a.settings = settings
	a.logCloser = closer
	log.Debug().
		Str("command", cmd.Name()).
		Str("base_url", settings.BaseURL).
		Str("model", string(settings.Model)).
		Str("config", v.ConfigFileUsed()).
		Msg("configuration loaded")
	return nil
}

func (a *app) closeLog() {
	if a.logCloser == nil {
		return
	}
	if err := a.logCloser.Close(); err != nil {
		log.Debug().Err(err).Msg("could not close log file")
	}
	a.logCloser = nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
