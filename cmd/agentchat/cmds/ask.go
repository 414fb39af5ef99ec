package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/config"
	"github.com/go-go-golems/agentchat/pkg/markdown"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/go-go-golems/agentchat/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
	"golang.org/x/term"
)

type askSettings struct {
	Code       bool
	WithFences bool
	Languages  []string
	Copy       bool
	PickModel  bool
	Raw        bool
}

func (a *app) newAskCommand() *cobra.Command {
	s := &askSettings{}

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one prompt and print the reply",
		Long: "Send one prompt to the agent and print the reply. Without arguments the prompt " +
			"is asked for on a terminal, or read from stdin otherwise. Agent failures are " +
			"printed like any other reply.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return a.runAsk(ctx, s, args, os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&s.Code, "code", false, "Only print the code blocks of the reply")
	cmd.Flags().BoolVar(&s.WithFences, "with-fences", false, "Keep the ``` fences around code blocks (with --code)")
	cmd.Flags().StringSliceVar(&s.Languages, "language", nil, "Only print code blocks in these languages (with --code)")
	cmd.Flags().BoolVar(&s.Copy, "copy", false, "Copy the reply to the clipboard")
	cmd.Flags().BoolVar(&s.PickModel, "pick-model", false, "Choose the model from a list")
	cmd.Flags().BoolVar(&s.Raw, "raw", false, "Never render markdown")
	return cmd
}

func (a *app) runAsk(ctx context.Context, s *askSettings, args []string, in *os.File, out io.Writer) error {
	settings := a.settings

	prompt, err := readPrompt(args, in)
	if err != nil {
		return err
	}

	model := settings.Model
	if s.PickModel {
		model, err = ui.PickModel(model)
		if err != nil {
			return err
		}
	}

	client, err := settings.NewAgentClient()
	if err != nil {
		return err
	}
	p, err := pipeline.New(client, pipeline.WithMinThinking(settings.MinThinking))
	if err != nil {
		return err
	}

	agent.BestEffortStartSession(ctx, client)

	msg, err := p.Submit(ctx, prompt, model)
	if err != nil {
		return err
	}
	reply := msg.Text

	if s.Copy {
		if err := clipboard.WriteAll(reply); err != nil {
			log.Warn().Err(err).Msg("could not copy reply to clipboard")
		}
	}

	if s.Code {
		return markdown.WriteCodeBlocks(out, markdown.ExtractCodeBlocks(reply, s.Languages...), s.WithFences)
	}
	return writeReply(out, reply, settings, s.Raw)
}

func readPrompt(args []string, in *os.File) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if isatty.IsTerminal(in.Fd()) || isatty.IsCygwinTerminal(in.Fd()) {
		prompter := &input.UI{
			Writer: os.Stderr,
			Reader: in,
		}
		answer, err := prompter.Ask("Ask the agent", &input.Options{
			Required:  true,
			Loop:      true,
			HideOrder: true,
			ValidateFunc: func(answer string) error {
				if strings.TrimSpace(answer) == "" {
					return errors.New("prompt cannot be empty")
				}
				return nil
			},
		})
		if err != nil {
			return "", errors.Wrap(err, "failed to get user input")
		}
		return answer, nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", errors.Wrap(err, "read prompt from stdin")
	}
	return string(data), nil
}

func writeReply(out io.Writer, reply string, settings *config.Settings, raw bool) error {
	f, isFile := out.(*os.File)
	if raw || !settings.Markdown || !isFile || !isatty.IsTerminal(f.Fd()) {
		_, err := fmt.Fprintln(out, reply)
		return err
	}

	width := 100
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}
	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return errors.Wrap(err, "create markdown renderer")
	}
	rendered, err := r.Render(reply)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed, printing raw reply")
		rendered = reply + "\n"
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}
