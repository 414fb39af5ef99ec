package conversation

import (
	"sync"
	"time"
)

// MessageID orders messages inside a conversation. It only exists client-side
// and is never sent to the agent.
type MessageID int64

// Message is a single entry of the chat transcript.
type Message struct {
	ID         MessageID
	Text       string
	IsUser     bool
	IsThinking bool
}

// NewUserMessage returns a message authored by the human.
func NewUserMessage(id MessageID, text string) Message {
	return Message{ID: id, Text: text, IsUser: true}
}

// NewAgentMessage returns a resolved message authored by the agent.
func NewAgentMessage(id MessageID, text string) Message {
	return Message{ID: id, Text: text}
}

// NewPlaceholder returns the empty agent message shown while a request is outstanding.
func NewPlaceholder(id MessageID) Message {
	return Message{ID: id, IsThinking: true}
}

// IDSource hands out strictly increasing ids derived from the wall clock
// (milliseconds). Two calls inside the same millisecond still get distinct ids.
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last MessageID
}

type IDSourceOption func(*IDSource)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) IDSourceOption {
	return func(s *IDSource) {
		s.now = now
	}
}

// WithFloor makes sure the next id is strictly greater than floor.
func WithFloor(floor MessageID) IDSourceOption {
	return func(s *IDSource) {
		s.last = floor
	}
}

func NewIDSource(options ...IDSourceOption) *IDSource {
	s := &IDSource{now: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *IDSource) Next() MessageID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := MessageID(s.now().UnixMilli())
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
