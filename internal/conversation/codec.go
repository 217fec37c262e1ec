package conversation

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON writes the conversation as an array of {content, role}
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToList())
}

// UnmarshalJSON replaces the conversation contents, coercing invalid roles
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return err
	}
	if c.messages == nil {
		// Zero-value Conversation decoded directly by encoding/json
		*c = *New()
	}
	c.Clear()
	c.AppendAll(messages)
	return nil
}

// Encode writes messages in the persisted history format (indented JSON array)
func Encode(messages []Message) ([]byte, error) {
	if messages == nil {
		messages = []Message{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

// DecodeMessages reads the persisted history format as stored. Roles are
// not checked here; FromMessages coerces and records invalid ones.
func DecodeMessages(data []byte) ([]Message, error) {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if messages == nil {
		messages = []Message{}
	}
	return messages, nil
}

// Decode reads the persisted history format into a conversation
func Decode(data []byte, opts ...Option) (*Conversation, error) {
	messages, err := DecodeMessages(data)
	if err != nil {
		return nil, err
	}
	return FromMessages(messages, opts...), nil
}

// MarshalMessage converts a Message to JSON for list-based stores
func MarshalMessage(m Message) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalMessage converts JSON to a Message as stored
func UnmarshalMessage(data string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
