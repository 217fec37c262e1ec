package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &TransportError{Endpoint: "x", Timeout: true}, "timeout in settings"},
		{"unauthorized", &TransportError{StatusCode: 401, Message: "bad key"}, "API key"},
		{"throttled", &TransportError{StatusCode: 429, Message: "slow down"}, "Wait a moment"},
		{"server", &TransportError{StatusCode: 503, Message: "down"}, "server error"},
		{"network", &TransportError{Endpoint: "x", Err: errors.New("refused")}, "network connection"},
		{"limit", &LimitError{Limit: "minute", RetryAfter: 42 * time.Second}, "Try again in 42 seconds."},
		{"composition", fmt.Errorf("wrapped: %w", ErrInvalidComposition), "Add a message"},
		{"parse", &ParseError{Family: FamilyChat, Reason: "no choices"}, "could not be read"},
		{"other", errors.New("boom"), "check the log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if !strings.HasPrefix(got, tt.err.Error()+"\n") {
				t.Errorf("UserMessage() = %q, should start with the error text", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}

	if UserMessage(nil) != "" {
		t.Error("UserMessage(nil) should be empty")
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("exchange: %w", &LimitError{Limit: "tokens", RetryAfter: time.Hour})
	if !errors.Is(wrapped, ErrRateLimited) {
		t.Error("LimitError should match ErrRateLimited")
	}
	if errors.Is(wrapped, ErrTransport) {
		t.Error("LimitError should not match ErrTransport")
	}

	parseErr := &ParseError{Family: FamilyCompletion, Reason: "bad", Err: errors.New("eof")}
	if !errors.Is(parseErr, ErrParse) {
		t.Error("ParseError should match ErrParse")
	}
	if !strings.Contains(parseErr.Error(), "eof") {
		t.Errorf("Error() = %q should include cause", parseErr.Error())
	}
}
