package conversation

import (
	"sync"

	"github.com/pkg/errors"
)

// GreetingID is the id of the optional greeting the conversation is seeded with.
const GreetingID MessageID = 1

var (
	ErrUnknownMessage   = errors.New("unknown message")
	ErrAlreadyResolved  = errors.New("message is not a pending placeholder")
	ErrPlaceholderTaken = errors.New("a placeholder is already pending")
)

// Conversation is the in-memory transcript. It is append-only, apart from
// the one in-place update that turns the pending placeholder into its final
// text. At most one placeholder may be pending at a time.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
	index    map[MessageID]int
}

func NewConversation() *Conversation {
	return &Conversation{
		index: map[MessageID]int{},
	}
}

// NewConversationWithGreeting seeds the transcript with an agent greeting.
// An empty greeting yields an empty conversation.
func NewConversationWithGreeting(greeting string) *Conversation {
	c := NewConversation()
	if greeting != "" {
		_ = c.Append(NewAgentMessage(GreetingID, greeting))
	}
	return c
}

// Append adds msgs to the end of the transcript, all or nothing. Ids must be
// unique, and a second placeholder is refused while one is still pending.
func (c *Conversation) Append(msgs ...Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[MessageID]struct{}, len(msgs))
	thinking := c.thinkingCountLocked()
	for _, msg := range msgs {
		if _, ok := c.index[msg.ID]; ok {
			return errors.Errorf("duplicate message id %d", msg.ID)
		}
		if _, ok := seen[msg.ID]; ok {
			return errors.Errorf("duplicate message id %d", msg.ID)
		}
		seen[msg.ID] = struct{}{}
		if msg.IsThinking {
			if thinking > 0 {
				return ErrPlaceholderTaken
			}
			thinking++
		}
	}

	for _, msg := range msgs {
		c.index[msg.ID] = len(c.messages)
		c.messages = append(c.messages, msg)
	}
	return nil
}

// Resolve replaces the text of the pending placeholder id and clears its
// thinking flag. It fails without mutating anything if id is unknown or not
// a pending placeholder.
func (c *Conversation) Resolve(id MessageID, text string) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return Message{}, errors.Wrapf(ErrUnknownMessage, "id %d", id)
	}
	if !c.messages[i].IsThinking {
		return Message{}, errors.Wrapf(ErrAlreadyResolved, "id %d", id)
	}
	c.messages[i].Text = text
	c.messages[i].IsThinking = false
	return c.messages[i], nil
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ret := make([]Message, len(c.messages))
	copy(ret, c.messages)
	return ret
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *Conversation) Get(id MessageID) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return Message{}, false
	}
	return c.messages[i], true
}

func (c *Conversation) ThinkingCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thinkingCountLocked()
}

func (c *Conversation) thinkingCountLocked() int {
	n := 0
	for _, m := range c.messages {
		if m.IsThinking {
			n++
		}
	}
	return n
}

// LastAgentReply returns the most recent resolved agent message.
func (c *Conversation) LastAgentReply() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if !m.IsUser && !m.IsThinking {
			return m, true
		}
	}
	return Message{}, false
}
