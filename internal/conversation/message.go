package conversation

import (
	"errors"
	"fmt"
)

// Role identifies the author of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

var (
	// ErrInvalidRole is recorded (never returned from Append) when a role
	// outside the valid set is coerced to user
	ErrInvalidRole = errors.New("invalid role")

	// ErrIndexOutOfRange is returned by positional access outside [0, Count())
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ValidRoles returns the fixed set of accepted roles
func ValidRoles() []Role {
	return []Role{RoleSystem, RoleAssistant, RoleUser, RoleFunction}
}

// IsValid checks if the role belongs to the accepted set
func (r Role) IsValid() bool {
	for _, valid := range ValidRoles() {
		if r == valid {
			return true
		}
	}
	return false
}

// Message is a single conversation turn. The JSON shape is the persisted
// history format: {"content": ..., "role": ...}.
type Message struct {
	Content string `json:"content"`
	Role    Role   `json:"role"`
}

// NewMessage builds a message, substituting RoleUser for an invalid role.
// The returned error is non-nil only to report the substitution.
func NewMessage(content string, role Role) (Message, error) {
	if role.IsValid() {
		return Message{Content: content, Role: role}, nil
	}
	return Message{Content: content, Role: RoleUser}, fmt.Errorf("%w %q, using %q", ErrInvalidRole, string(role), string(RoleUser))
}
