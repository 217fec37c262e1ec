package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/config"
	"github.com/s33g/gpt-prompter/internal/prompter"
)

func newTestRun(t *testing.T, handler http.HandlerFunc) (*prompter.Prompter, *config.Config, *bytes.Buffer, *failureNotice) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.OpenAI.BaseURL = server.URL
	cfg.OpenAI.APIKey = "sk-test"
	cfg.History.Path = t.TempDir()

	stderr := &bytes.Buffer{}
	notice := &failureNotice{out: stderr}
	p, err := prompter.New(context.Background(), cfg, "", zerolog.Nop(),
		prompter.WithFailureHandler(notice.handle),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(p.Stop)
	return p, cfg, stderr, notice
}

func TestRun_HistoryLoadErrorIsReported(t *testing.T) {
	p, cfg, stderr, notice := newTestRun(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected when history cannot be loaded")
	})

	corrupt := filepath.Join(cfg.History.Path, cfg.History.Session+".json")
	if err := os.WriteFile(corrupt, []byte("corrupt"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := run(context.Background(), p, runOptions{
		args:   []string{"Hello"},
		out:    &bytes.Buffer{},
		notice: notice,
	})
	if err == nil {
		t.Fatal("Expected history load error")
	}

	notice.report(err)
	if !strings.Contains(stderr.String(), "failed to load history") {
		t.Errorf("stderr = %q, want history load error", stderr.String())
	}
}

func TestRun_ExchangeFailurePrintedOnce(t *testing.T) {
	p, _, stderr, notice := newTestRun(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	err := run(context.Background(), p, runOptions{
		args:   []string{"Hello"},
		out:    &bytes.Buffer{},
		notice: notice,
	})
	if err == nil {
		t.Fatal("Expected exchange error")
	}

	notice.report(err)
	if got := strings.Count(stderr.String(), "bad key"); got != 1 {
		t.Errorf("stderr mentions failure %d times, want 1: %q", got, stderr.String())
	}
	if !strings.HasPrefix(stderr.String(), "GPT request failed:") {
		t.Errorf("stderr = %q, want failure notice", stderr.String())
	}
}

func TestRepl_ReportsEveryFailure(t *testing.T) {
	p, cfg, stderr, notice := newTestRun(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	corrupt := filepath.Join(cfg.History.Path, cfg.History.Session+".json")
	if err := os.WriteFile(corrupt, []byte("corrupt"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	out := &bytes.Buffer{}
	err := repl(context.Background(), p, runOptions{
		in:     strings.NewReader("first\nsecond\n"),
		out:    out,
		notice: notice,
	})
	if err != nil {
		t.Fatalf("repl() error = %v", err)
	}
	if got := strings.Count(stderr.String(), "failed to load history"); got != 2 {
		t.Errorf("stderr reports %d load errors, want 2: %q", got, stderr.String())
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}

func TestRun_Models(t *testing.T) {
	p, _, _, notice := newTestRun(t, func(w http.ResponseWriter, r *http.Request) {})

	out := &bytes.Buffer{}
	if err := run(context.Background(), p, runOptions{listModels: true, out: out, notice: notice}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "gpt-3.5-turbo") {
		t.Errorf("Models output = %q", out.String())
	}
}
