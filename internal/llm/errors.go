package llm

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidComposition is returned when a request cannot be built,
	// e.g. a completion-family request from an empty conversation
	ErrInvalidComposition = errors.New("invalid composition")

	// ErrTransport matches every *TransportError
	ErrTransport = errors.New("transport error")

	// ErrTimeout matches a *TransportError caused by the request timeout
	ErrTimeout = errors.New("request timed out")

	// ErrParse matches every *ParseError
	ErrParse = errors.New("parse error")

	// ErrRateLimited matches every *LimitError
	ErrRateLimited = errors.New("request budget exhausted")
)

// TransportError describes a failed HTTP exchange
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Message    string
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("request to %s timed out", e.Endpoint)
	case e.StatusCode != 0:
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport, and ErrTimeout for timeouts
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport || (target == ErrTimeout && e.Timeout)
}

// ParseError describes a response envelope that could not be decoded
type ParseError struct {
	Family Family
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s response: %s: %v", e.Family, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse %s response: %s", e.Family, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// LimitError reports a request rejected by a Guard
type LimitError struct {
	Limit      string // "minute", "hour" or "tokens"
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit reached, retry in %s", e.Limit, e.RetryAfter)
}

// Is matches ErrRateLimited
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// UserMessage turns a pipeline error into a single human-readable message
// with remediation advice, suitable for a non-blocking notice
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var advice string
	var transportErr *TransportError
	var limitErr *LimitError

	switch {
	case errors.Is(err, ErrTimeout):
		advice = "The request took longer than the configured timeout. Try increasing the timeout in settings, or shorten the conversation."
	case errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusUnauthorized:
		advice = "Check that your API key is set and valid."
	case errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusTooManyRequests:
		advice = "The API is throttling requests or your quota is used up. Wait a moment and send again."
	case errors.As(err, &transportErr) && transportErr.StatusCode >= 500:
		advice = "The API had a server error. Send again in a moment."
	case errors.Is(err, ErrTransport):
		advice = "Check your network connection and model selection, or try a longer timeout in settings."
	case errors.As(err, &limitErr):
		advice = fmt.Sprintf("Try again in %d seconds.", int(limitErr.RetryAfter.Round(time.Second)/time.Second))
	case errors.Is(err, ErrInvalidComposition):
		advice = "Add a message to the conversation before sending."
	case errors.Is(err, ErrParse):
		advice = "The response could not be read. Send again, or pick a different model."
	default:
		advice = "Send again, and check the log for details."
	}

	return fmt.Sprintf("%v\n%s", err, advice)
}
