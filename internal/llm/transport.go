package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout applies when a caller passes a non-positive timeout
	DefaultTimeout = 20 * time.Second

	maxResponseBytes = 16 << 20
)

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) TransportOption {
	return func(t *Transport) {
		t.httpClient = httpClient
	}
}

// Transport performs the authenticated POST to a model endpoint
type Transport struct {
	httpClient *http.Client
}

// NewTransport creates a transport. The per-call timeout is applied
// through the request context, not the http.Client.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send posts body to endpoint and returns the raw response body on a 2xx
// status. Every failure is a *TransportError; exceeding timeout yields one
// matching ErrTimeout. There is no retry.
func (t *Transport) Send(ctx context.Context, apiKey, endpoint string, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, t.wrap(ctx, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, t.wrap(ctx, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.Status),
		}
	}

	return respBody, nil
}

func (t *Transport) wrap(ctx context.Context, endpoint string, err error) error {
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
	return &TransportError{Endpoint: endpoint, Timeout: timedOut, Err: err}
}

// errorMessage extracts the API error message, falling back to the raw body
func errorMessage(body []byte, status string) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}
