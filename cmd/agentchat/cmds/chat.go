package cmds

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/agentchat/pkg/conversation"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/go-go-golems/agentchat/pkg/tokens"
	"github.com/go-go-golems/agentchat/pkg/ui"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func (a *app) newChatCommand() *cobra.Command {
	var pickModel bool

	cmd := &cobra.Command{
		Use:         "chat",
		Short:       "Open the interactive chat window",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{tuiAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings

			client, err := s.NewAgentClient()
			if err != nil {
				return err
			}
			p, err := pipeline.New(client,
				pipeline.WithConversation(conversation.NewConversationWithGreeting(s.Greeting)),
				pipeline.WithMinThinking(s.MinThinking),
			)
			if err != nil {
				return err
			}

			model := s.Model
			if pickModel {
				model, err = ui.PickModel(model)
				if err != nil {
					return err
				}
			}

			glamourStyle := "light"
			if termenv.HasDarkBackground() {
				glamourStyle = "dark"
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			m := ui.NewModel(ctx, p, ui.Options{
				Title:        s.Title,
				Model:        model,
				Markdown:     s.Markdown,
				GlamourStyle: glamourStyle,
				Session:      client,
				Tokens:       tokens.NewCounter(),
			})

			log.Info().Str("endpoint", client.Endpoint()).Str("model", string(model)).Msg("starting chat UI")
			prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "chat UI")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pickModel, "pick-model", false, "Choose the model from a list before starting")
	return cmd
}
