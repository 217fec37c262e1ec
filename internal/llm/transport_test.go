package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTransport_Send(t *testing.T) {
	// Create mock server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want Bearer sk-test", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"ping":true}` {
			t.Errorf("Body = %s", body)
		}
		w.Write([]byte(`{"pong":true}`))
	}))
	defer server.Close()

	raw, err := NewTransport().Send(context.Background(), "sk-test", server.URL, []byte(`{"ping":true}`), time.Second)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(raw) != `{"pong":true}` {
		t.Errorf("Send() = %s", raw)
	}
}

func TestTransport_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "error envelope",
			status:      http.StatusUnauthorized,
			body:        `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			wantMessage: "Incorrect API key provided",
		},
		{
			name:        "plain body",
			status:      http.StatusBadGateway,
			body:        "upstream unavailable\n",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewTransport().Send(context.Background(), "k", server.URL, []byte("{}"), time.Second)

			var transportErr *TransportError
			if !errors.As(err, &transportErr) {
				t.Fatalf("Send() error = %v, want *TransportError", err)
			}
			if transportErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", transportErr.StatusCode, tt.status)
			}
			if transportErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", transportErr.Message, tt.wantMessage)
			}
			if errors.Is(err, ErrTimeout) {
				t.Error("Status error should not match ErrTimeout")
			}
		})
	}
}

func TestTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewTransport().Send(context.Background(), "k", server.URL, []byte("{}"), 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Send() error = %v, want ErrTimeout", err)
	}
	if !errors.Is(err, ErrTransport) {
		t.Error("Timeout should also match ErrTransport")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send() took %s, timeout not applied", elapsed)
	}
}

func TestTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewTransport().Send(context.Background(), "k", url, []byte("{}"), time.Second)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Send() error = %v, want *TransportError", err)
	}
	if transportErr.StatusCode != 0 || transportErr.Timeout {
		t.Errorf("TransportError = %+v, want network failure", transportErr)
	}
}
