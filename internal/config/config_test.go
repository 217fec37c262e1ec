package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testConfig = `
openai:
  api_key_env: PROMPTER_TEST_KEY
  model: text-davinci-003
  default_model: gpt-3.5-turbo
  temperature: 0.7
  timeout_seconds: 30
  models:
    - id: my-finetune
      family: completion
      max_tokens: 512

history:
  backend: sqlite
  path: "file:history?mode=memory"
  session: unity-project
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("PROMPTER_TEST_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("Expected API key from environment, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "text-davinci-003" {
		t.Errorf("Expected model text-davinci-003, got %s", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.Temperature == nil || *cfg.OpenAI.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", cfg.OpenAI.Temperature)
	}
	if cfg.OpenAI.Timeout() != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.OpenAI.Timeout())
	}
	if len(cfg.OpenAI.Models) != 1 || cfg.OpenAI.Models[0].MaxTokens != 512 {
		t.Errorf("Expected one model override with max_tokens 512, got %+v", cfg.OpenAI.Models)
	}

	// Defaults survive for sections the file leaves out
	if cfg.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("Expected default base URL, got %s", cfg.OpenAI.BaseURL)
	}
	if cfg.History.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.History.Backend)
	}
	if cfg.History.MaxMessages != 200 {
		t.Errorf("Expected default max_messages 200, got %d", cfg.History.MaxMessages)
	}
}

func TestLoad_DefaultTimeout(t *testing.T) {
	cfg, err := Load(writeConfig(t, "openai:\n  model: gpt-4\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OpenAI.TimeoutSeconds != 20 {
		t.Errorf("Expected default timeout of 20 seconds, got %d", cfg.OpenAI.TimeoutSeconds)
	}
	if cfg.OpenAI.Temperature != nil {
		t.Errorf("Expected nil temperature, got %v", *cfg.OpenAI.Temperature)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "openai: [unclosed")); err == nil {
		t.Error("Expected error for malformed YAML")
	}
	if _, err := Load(writeConfig(t, "openai:\n  temperature: 1.5\n")); err == nil {
		t.Error("Expected error for out-of-range temperature")
	}
}

func TestValidate(t *testing.T) {
	temp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "temperature at upper bound",
			mutate:  func(c *Config) { c.OpenAI.Temperature = temp(1) },
			wantErr: false,
		},
		{
			name:    "negative temperature",
			mutate:  func(c *Config) { c.OpenAI.Temperature = temp(-0.1) },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.OpenAI.TimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "missing default model",
			mutate:  func(c *Config) { c.OpenAI.DefaultModel = "" },
			wantErr: true,
		},
		{
			name: "unknown model family",
			mutate: func(c *Config) {
				c.OpenAI.Models = []Model{{ID: "x", Family: "embedding"}}
			},
			wantErr: true,
		},
		{
			name: "duplicate model ids",
			mutate: func(c *Config) {
				c.OpenAI.Models = []Model{
					{ID: "gpt-x", Family: FamilyChat},
					{ID: "GPT-X", Family: FamilyCompletion},
				}
			},
			wantErr: true,
		},
		{
			name:    "unknown history backend",
			mutate:  func(c *Config) { c.History.Backend = "s3" },
			wantErr: true,
		},
		{
			name: "redis backend without address",
			mutate: func(c *Config) {
				c.History.Backend = BackendRedis
				c.Redis.Address = ""
			},
			wantErr: true,
		},
		{
			name: "token budget without period",
			mutate: func(c *Config) {
				c.Limits.TokensPerPeriod = 1000
			},
			wantErr: true,
		},
		{
			name: "reserve exceeds context",
			mutate: func(c *Config) {
				c.Context.MaxContextTokens = 500
				c.Context.ReserveTokens = 500
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_CopiesTemperature(t *testing.T) {
	cfg := DefaultConfig()
	v := 0.3
	cfg.OpenAI.Temperature = &v

	s := cfg.Settings()
	*s.Temperature = 0.9

	if *cfg.OpenAI.Temperature != 0.3 {
		t.Errorf("Settings snapshot must not alias config, got %v", *cfg.OpenAI.Temperature)
	}
	if s.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want 20s", s.Timeout)
	}
}

func TestLiveSettings_Update(t *testing.T) {
	live := NewLiveSettings(DefaultConfig())

	if got := live.Settings().Model; got != "gpt-3.5-turbo" {
		t.Fatalf("Model = %s, want gpt-3.5-turbo", got)
	}

	next := DefaultConfig()
	next.OpenAI.Model = "gpt-4"
	if err := live.Update(next); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := live.Settings().Model; got != "gpt-4" {
		t.Errorf("Model = %s, want gpt-4", got)
	}

	bad := DefaultConfig()
	bad.OpenAI.TimeoutSeconds = -1
	if err := live.Update(bad); err == nil {
		t.Error("Expected error for invalid configuration")
	}
	if got := live.Settings().Model; got != "gpt-4" {
		t.Errorf("Invalid update must keep current config, got model %s", got)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "openai:\n  model: gpt-3.5-turbo\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(path, []byte("openai:\n  model: gpt-4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.OpenAI.Model != "gpt-4" {
			t.Errorf("Reloaded model = %s, want gpt-4", cfg.OpenAI.Model)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for config reload")
	}
}
