package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/conversation"
	"github.com/go-go-golems/agentchat/pkg/pipeline"
	"github.com/rs/zerolog/log"
)

// SubmissionSettledMsg is sent once the placeholder of a submission has been
// resolved and the pipeline is idle again.
type SubmissionSettledMsg struct {
	Message conversation.Message
}

// SessionStartedMsg is sent when the best-effort session bootstrap returns,
// whatever its outcome.
type SessionStartedMsg struct{}

// PipelineBackend adapts the submission pipeline to bubbletea: the gate is
// taken synchronously in Start, the round trip runs inside the returned command.
type PipelineBackend struct {
	ctx      context.Context
	pipeline *pipeline.Pipeline
	session  agent.SessionStarter
}

func NewPipelineBackend(ctx context.Context, p *pipeline.Pipeline, session agent.SessionStarter) *PipelineBackend {
	return &PipelineBackend{
		ctx:      ctx,
		pipeline: p,
		session:  session,
	}
}

// Start begins a submission. On error nothing changed and no command is returned.
func (b *PipelineBackend) Start(prompt string, model agent.Model) (tea.Cmd, error) {
	s, err := b.pipeline.Begin(prompt, model)
	if err != nil {
		return nil, err
	}

	return func() tea.Msg {
		msg := s.Run(b.ctx)
		log.Debug().Int64("id", int64(msg.ID)).Msg("submission settled")
		return SubmissionSettledMsg{Message: msg}
	}, nil
}

// StartSession returns the one-shot bootstrap command, or nil without a starter.
func (b *PipelineBackend) StartSession() tea.Cmd {
	if b.session == nil {
		return nil
	}
	return func() tea.Msg {
		agent.BestEffortStartSession(b.ctx, b.session)
		return SessionStartedMsg{}
	}
}

func (b *PipelineBackend) IsFinished() bool {
	return !b.pipeline.IsLoading()
}

func (b *PipelineBackend) Messages() []conversation.Message {
	return b.pipeline.Messages()
}

func (b *PipelineBackend) LastAgentReply() (conversation.Message, bool) {
	return b.pipeline.LastAgentReply()
}
