package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/go-go-golems/agentchat/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	InputPlaceholder = "Ask a question about GDP, Population, or countries..."
	ThinkingText     = "Thinking..."
)

type Options struct {
	Title string
	Model agent.Model

	// Markdown renders agent replies with glamour using GlamourStyle
	// ("dark", "light", ...).
	Markdown     bool
	GlamourStyle string

	// Session is pinged once when the program starts. Nil skips the bootstrap.
	Session agent.SessionStarter

	// Tokens estimates the size of the prompt being typed. Nil hides the estimate.
	Tokens *tokens.Counter

	// Copy writes to the system clipboard; defaults to clipboard.WriteAll.
	Copy func(string) error
}

// Model is the chat screen. Everything it shows about the conversation is
// read back from the pipeline on each render.
type Model struct {
	backend *PipelineBackend
	opts    Options
	model   agent.Model

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// shape of the transcript at the last render; a change scrolls to the bottom
	lastLen      int
	lastThinking bool

	tokenCount int
	notice     string
}

func NewModel(ctx context.Context, p *pipeline.Pipeline, opts Options) Model {
	if opts.Model == "" {
		opts.Model = agent.DefaultModel
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.GlamourStyle == "" {
		opts.GlamourStyle = "dark"
	}

	ti := textinput.New()
	ti.Placeholder = InputPlaceholder
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	m := Model{
		backend:  NewPipelineBackend(ctx, p, opts.Session),
		opts:     opts,
		model:    opts.Model,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
		lastLen:  -1,
	}
	m.resize(80, 24)
	return m
}

// SelectedModel is the model the next submission will use.
func (m Model) SelectedModel() agent.Model {
	return m.model
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if cmd := m.backend.StartSession(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.opts.Tokens != nil {
		counter, model := m.opts.Tokens, m.model
		cmds = append(cmds, func() tea.Msg {
			// loads the codec off the event loop
			_, _ = counter.Count("warm up", model)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.ready = true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Submit):
			return m.submit()

		case key.Matches(msg, m.keys.NextModel):
			m.model = m.model.Next()
			m.updateTokenCount()

		case key.Matches(msg, m.keys.PrevModel):
			m.model = m.model.Prev()
			m.updateTokenCount()

		case key.Matches(msg, m.keys.Copy):
			m.copyLastReply()

		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)

		default:
			if !m.backend.IsFinished() {
				break
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.updateTokenCount()
			cmds = append(cmds, cmd)
		}

	case SubmissionSettledMsg:
		log.Debug().Bool("thinking", msg.Message.IsThinking).Msg("ui: submission settled")
		cmds = append(cmds, m.input.Focus())

	case SessionStartedMsg:
		log.Debug().Msg("ui: session bootstrap returned")

	case spinner.TickMsg:
		if !m.backend.IsFinished() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.keys.setLoading(!m.backend.IsFinished())
	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	cmd, err := m.backend.Start(m.input.Value(), m.model)
	if err != nil {
		if !errors.Is(err, pipeline.ErrEmptyPrompt) && !errors.Is(err, pipeline.ErrBusy) {
			log.Warn().Err(err).Msg("could not submit prompt")
		}
		return m, nil
	}

	m.input.Reset()
	m.input.Blur()
	m.tokenCount = 0
	m.notice = ""
	m.keys.setLoading(true)
	m.refresh()
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) copyLastReply() {
	reply, ok := m.backend.LastAgentReply()
	if !ok {
		m.notice = "nothing to copy"
		return
	}
	if err := m.opts.Copy(reply.Text); err != nil {
		log.Warn().Err(err).Msg("could not copy reply to clipboard")
		m.notice = "copy failed"
		return
	}
	m.notice = "reply copied"
}

func (m *Model) updateTokenCount() {
	if m.opts.Tokens == nil {
		return
	}
	n, err := m.opts.Tokens.Count(m.input.Value(), m.model)
	if err != nil {
		log.Debug().Err(err).Msg("token count failed")
		return
	}
	m.tokenCount = n
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = maxInt(10, width-4)
	m.help.Width = width

	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.inputView()) + lipgloss.Height(m.statusView())
	m.viewport.Width = width
	m.viewport.Height = maxInt(3, height-chrome)

	if m.opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.opts.GlamourStyle),
			glamour.WithWordWrap(maxInt(20, m.bubbleWidth()-4)),
		)
		if err != nil {
			log.Warn().Err(err).Msg("could not create markdown renderer")
			r = nil
		}
		m.renderer = r
	}
	m.lastLen = -1
	m.refresh()
}

// refresh re-renders the transcript and follows it to the bottom whenever a
// message was added or the placeholder was resolved.
func (m *Model) refresh() {
	msgs := m.backend.Messages()
	thinking := len(msgs) > 0 && msgs[len(msgs)-1].IsThinking

	offset := m.viewport.YOffset
	m.viewport.SetContent(m.renderMessages(msgs))
	if len(msgs) != m.lastLen || thinking != m.lastThinking {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(offset)
	}
	m.lastLen = len(msgs)
	m.lastThinking = thinking
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.inputView(),
		m.statusView(),
	)
}

func (m Model) headerView() string {
	loading := !m.backend.IsFinished()

	dot := pulseStyle.Render("●")
	if loading {
		dot = pulseBusyStyle.Render("●")
	}

	var models []string
	for _, candidate := range agent.Models() {
		switch {
		case loading:
			models = append(models, disabledStyle.Render(string(candidate)))
		case candidate == m.model:
			models = append(models, modelActiveStyle.Render(string(candidate)))
		default:
			models = append(models, modelIdleStyle.Render(string(candidate)))
		}
	}
	selector := modelLabelStyle.Render("Model: ") + strings.Join(models, " ")

	title := titleStyle.Render(m.opts.Title)
	left := title + " " + dot
	gap := maxInt(1, m.width-lipgloss.Width(left)-lipgloss.Width(selector))
	return left + strings.Repeat(" ", gap) + selector
}

func (m Model) inputView() string {
	if !m.backend.IsFinished() {
		return inputStyle.Width(m.width).Render(disabledStyle.Render(m.input.View()))
	}
	return inputStyle.Width(m.width).Render(m.input.View())
}

func (m Model) statusView() string {
	var parts []string
	if !m.backend.IsFinished() {
		parts = append(parts, m.spinner.View()+" waiting for agent")
	}
	if m.opts.Tokens != nil && m.tokenCount > 0 {
		parts = append(parts, fmt.Sprintf("~%d tokens", m.tokenCount))
	}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	parts = append(parts, m.help.View(m.keys))
	return statusStyle.Render(strings.Join(parts, " • "))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
