package conversation

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Conversation is an ordered list of turns. Order is chat turn order and is
// never changed; removal happens only by index or content match.
//
// A Conversation is not safe for concurrent mutation. Callers sharing one
// across overlapping requests own the ordering of their appends.
type Conversation struct {
	messages []Message
	warnings []error
	logger   zerolog.Logger
}

// Option configures a Conversation
type Option func(*Conversation)

// WithLogger sets the logger used for role coercion warnings
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// New creates an empty conversation
func New(opts ...Option) *Conversation {
	c := &Conversation{
		messages: make([]Message, 0),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromMessages creates a conversation from persisted messages, coercing
// invalid roles the same way Append does
func FromMessages(messages []Message, opts ...Option) *Conversation {
	c := New(opts...)
	c.AppendAll(messages)
	return c
}

// Append adds a turn and returns the conversation for chaining.
// An invalid role is stored as user and a warning is recorded.
func (c *Conversation) Append(content string, role Role) *Conversation {
	msg, err := NewMessage(content, role)
	if err != nil {
		c.warn(err)
	}
	c.messages = append(c.messages, msg)
	return c
}

// AppendMessage adds a message after validating its role
func (c *Conversation) AppendMessage(m Message) *Conversation {
	return c.Append(m.Content, m.Role)
}

// AppendAll adds messages in order, validating each one
func (c *Conversation) AppendAll(messages []Message) *Conversation {
	for _, m := range messages {
		c.AppendMessage(m)
	}
	return c
}

// Get returns the message at index
func (c *Conversation) Get(index int) (Message, error) {
	if index < 0 || index >= len(c.messages) {
		return Message{}, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, index, len(c.messages))
	}
	return c.messages[index], nil
}

// Count returns the number of messages
func (c *Conversation) Count() int {
	return len(c.messages)
}

// Last returns the most recent message, if any
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// RemoveAt deletes the message at index; out-of-range indexes are ignored
func (c *Conversation) RemoveAt(index int) *Conversation {
	if index < 0 || index >= len(c.messages) {
		return c
	}
	c.messages = append(c.messages[:index], c.messages[index+1:]...)
	return c
}

// RemoveWhere deletes every message whose content equals content
func (c *Conversation) RemoveWhere(content string) *Conversation {
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.Content != content {
			kept = append(kept, m)
		}
	}
	c.messages = kept
	return c
}

// Clear removes all messages
func (c *Conversation) Clear() *Conversation {
	c.messages = c.messages[:0]
	return c
}

// ToList returns a copy of the messages in insertion order
func (c *Conversation) ToList() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Warnings returns the role coercions recorded so far; each wraps ErrInvalidRole
func (c *Conversation) Warnings() []error {
	out := make([]error, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func (c *Conversation) warn(err error) {
	c.warnings = append(c.warnings, err)
	c.logger.Warn().Err(err).Msg("Coerced message role")
}
