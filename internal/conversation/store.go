package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSession is returned for session names a store cannot address
var ErrInvalidSession = errors.New("invalid session name")

// Store persists conversation history per session. Loading a session that
// was never saved returns an empty list. Messages are returned as stored;
// FromMessages coerces invalid roles and records a warning for each.
type Store interface {
	Save(ctx context.Context, session string, messages []Message) error
	Load(ctx context.Context, session string) ([]Message, error)
	Delete(ctx context.Context, session string) error
	Close() error
}

// validateSession rejects names that could escape a file store directory or
// collide with key separators
func validateSession(session string) error {
	if session == "" || session == "." || session == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSession, session)
	}
	if strings.ContainsAny(session, `/\:`) {
		return fmt.Errorf("%w: %q contains a path or key separator", ErrInvalidSession, session)
	}
	return nil
}
