package cmds

import (
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/stubagent"
	"github.com/spf13/cobra"
)

func (a *app) newServeStubCommand() *cobra.Command {
	var (
		opts     stubagent.Options
		mode     string
		defModel string
	)

	cmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Run a local stand-in for the agent",
		Long: "Serves the session and chat endpoints without any model behind them. " +
			"Use --mode to make chat requests echo, return an empty body, or fail.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := stubagent.ParseMode(mode)
			if err != nil {
				return err
			}
			model, err := agent.ParseModel(defModel)
			if err != nil {
				return err
			}
			opts.Mode = m
			opts.DefaultModel = model

			srv, err := stubagent.NewServer(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&opts.BasePath, "base-path", "/api", "Path prefix for the endpoints")
	cmd.Flags().StringVar(&mode, "mode", string(stubagent.ModeEcho), "Chat behaviour: echo, empty or fail")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "Wait this long before answering chat requests")
	cmd.Flags().StringVar(&defModel, "default-model", string(agent.DefaultModel), "Model used when a request names none")
	cmd.Flags().StringSliceVar(&opts.AllowedOrigins, "allowed-origin", nil, "CORS origins allowed to send credentials")
	return cmd
}
