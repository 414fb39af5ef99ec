package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/agentchat/pkg/agent"
	"github.com/go-go-golems/agentchat/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FallbackReply replaces an empty but successful agent reply.
const FallbackReply = "Sorry, I encountered an error while processing your request."

var (
	ErrEmptyPrompt = errors.New("prompt is empty")
	ErrBusy        = errors.New("a submission is already in flight")
)

// ConnectErrorText is what the placeholder resolves to when the round trip fails.
func ConnectErrorText(endpoint string) string {
	return "Error: Could not connect to agent at " + endpoint
}

type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ChatClient is what the pipeline needs from the agent client.
type ChatClient interface {
	Chat(ctx context.Context, prompt string, model agent.Model) (string, error)
	Endpoint() string
}

// Pipeline turns prompts into conversation entries. It owns the conversation
// and a two-state gate: a submission moves it from idle to submitting, and
// only the end of that submission's Run moves it back.
type Pipeline struct {
	client      ChatClient
	conv        *conversation.Conversation
	ids         *conversation.IDSource
	minThinking time.Duration

	mu    sync.Mutex
	state State
}

type Option func(*Pipeline)

// WithConversation lets the caller seed the transcript, e.g. with a greeting.
func WithConversation(c *conversation.Conversation) Option {
	return func(p *Pipeline) {
		p.conv = c
	}
}

func WithIDSource(ids *conversation.IDSource) Option {
	return func(p *Pipeline) {
		p.ids = ids
	}
}

// WithMinThinking keeps the placeholder pending for at least d after the
// request was sent. Zero, the default, resolves as soon as the reply is in.
func WithMinThinking(d time.Duration) Option {
	return func(p *Pipeline) {
		p.minThinking = d
	}
}

func New(client ChatClient, options ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("pipeline needs a chat client")
	}
	p := &Pipeline{
		client: client,
		state:  StateIdle,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.conv == nil {
		p.conv = conversation.NewConversation()
	}
	if p.ids == nil {
		p.ids = conversation.NewIDSource(conversation.WithFloor(conversation.GreetingID))
	}
	return p, nil
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) IsLoading() bool {
	return p.State() == StateSubmitting
}

func (p *Pipeline) Messages() []conversation.Message {
	return p.conv.Messages()
}

func (p *Pipeline) LastAgentReply() (conversation.Message, bool) {
	return p.conv.LastAgentReply()
}

func (p *Pipeline) Endpoint() string {
	return p.client.Endpoint()
}

// Submission is one accepted prompt whose round trip has not run yet.
type Submission struct {
	p             *Pipeline
	Prompt        string
	Model         agent.Model
	UserID        conversation.MessageID
	PlaceholderID conversation.MessageID

	once sync.Once
}

// Begin validates the prompt and, if the pipeline is idle, appends the user
// message and the thinking placeholder and marks the pipeline as submitting.
// A rejected call leaves every piece of state untouched.
func (p *Pipeline) Begin(prompt string, model agent.Model) (*Submission, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	model, err := agent.ParseModel(string(model))
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle || p.conv.ThinkingCount() > 0 {
		return nil, ErrBusy
	}

	s := &Submission{
		p:             p,
		Prompt:        prompt,
		Model:         model,
		UserID:        p.ids.Next(),
		PlaceholderID: p.ids.Next(),
	}
	err = p.conv.Append(
		conversation.NewUserMessage(s.UserID, prompt),
		conversation.NewPlaceholder(s.PlaceholderID),
	)
	if err != nil {
		return nil, errors.Wrap(err, "append submission")
	}
	p.state = StateSubmitting

	log.Debug().
		Int64("user_id", int64(s.UserID)).
		Int64("placeholder_id", int64(s.PlaceholderID)).
		Str("model", string(model)).
		Msg("submission started")

	return s, nil
}

// Run performs the round trip, resolves the placeholder and releases the
// gate. It always returns the resolved placeholder. Calling it again is a
// no-op that returns the current placeholder.
func (s *Submission) Run(ctx context.Context) conversation.Message {
	ran := false
	s.once.Do(func() {
		ran = true
		s.run(ctx)
	})
	if !ran {
		log.Warn().Int64("placeholder_id", int64(s.PlaceholderID)).Msg("submission already ran")
	}
	m, _ := s.p.conv.Get(s.PlaceholderID)
	return m
}

func (s *Submission) run(ctx context.Context) {
	defer s.p.release()

	start := time.Now()
	text := s.p.roundTrip(ctx, s.Prompt, s.Model)

	if remaining := s.p.minThinking - time.Since(start); remaining > 0 {
		t := time.NewTimer(remaining)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	if _, err := s.p.conv.Resolve(s.PlaceholderID, text); err != nil {
		log.Error().Err(err).Int64("placeholder_id", int64(s.PlaceholderID)).Msg("could not resolve placeholder")
	}
}

func (p *Pipeline) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateIdle
}

// roundTrip never fails: every failure is turned into the text shown to the user.
func (p *Pipeline) roundTrip(ctx context.Context, prompt string, model agent.Model) (text string) {
	endpoint := p.client.Endpoint()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Str("endpoint", endpoint).Msg("Error fetching from agent")
			text = ConnectErrorText(endpoint)
		}
	}()

	reply, err := p.client.Chat(ctx, prompt, model)
	if err != nil {
		ev := log.Error().Err(err).Str("endpoint", endpoint)
		var se *agent.StatusError
		if errors.As(err, &se) {
			ev = ev.Int("status", se.StatusCode)
		}
		ev.Msg("Error fetching from agent")
		return ConnectErrorText(endpoint)
	}
	if reply == "" {
		log.Warn().Str("endpoint", endpoint).Msg("agent returned an empty reply")
		return FallbackReply
	}
	return reply
}

// Submit runs a whole submission synchronously.
func (p *Pipeline) Submit(ctx context.Context, prompt string, model agent.Model) (conversation.Message, error) {
	s, err := p.Begin(prompt, model)
	if err != nil {
		return conversation.Message{}, err
	}
	return s.Run(ctx), nil
}
