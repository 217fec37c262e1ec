package config

import (
	"time"
)

// Model families understood by the request pipeline
const (
	FamilyChat       = "chat"
	FamilyCompletion = "completion"
)

// History backends
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	History HistoryConfig `yaml:"history"`
	Redis   RedisConfig   `yaml:"redis"`
	Limits  LimitsConfig  `yaml:"limits"`
	Context ContextConfig `yaml:"context"`
	Logging LoggingConfig `yaml:"logging"`
}

// OpenAIConfig holds endpoint, credential and model selection settings
type OpenAIConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"-"` // From environment, not YAML
	APIKeyEnv      string   `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	DefaultModel   string   `yaml:"default_model"`
	Temperature    *float64 `yaml:"temperature,omitempty"` // nil means model default
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Models         []Model  `yaml:"models"`
}

// Timeout returns the request timeout as a Duration
func (o *OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Model registers or overrides a model in the router table
type Model struct {
	ID            string `yaml:"id"`
	Family        string `yaml:"family"`
	MaxTokens     int    `yaml:"max_tokens,omitempty"`
	ContextWindow int    `yaml:"context_window,omitempty"`
}

// HistoryConfig selects where conversation history is persisted
type HistoryConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"` // directory for file, DSN for sqlite
	Session     string `yaml:"session"`
	TTLHours    int    `yaml:"ttl_hours"`
	MaxMessages int    `yaml:"max_messages"`
}

// TTL returns the history TTL as a Duration
func (h *HistoryConfig) TTL() time.Duration {
	return time.Duration(h.TTLHours) * time.Hour
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address     string `yaml:"address"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	KeyPrefix   string `yaml:"key_prefix"`
}

// LimitsConfig holds the request budget enforced before each call
type LimitsConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
	TokensPerPeriod   int `yaml:"tokens_per_period"`
	PeriodHours       int `yaml:"period_hours"`
}

// Enabled reports whether any limit is configured
func (l *LimitsConfig) Enabled() bool {
	return l.RequestsPerMinute > 0 || l.RequestsPerHour > 0 || l.TokensPerPeriod > 0
}

// ContextConfig controls history windowing before composition
type ContextConfig struct {
	MaxContextTokens int `yaml:"max_context_tokens"` // 0 disables windowing
	ReserveTokens    int `yaml:"reserve_tokens"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Settings is the per-call snapshot the request pipeline reads
type Settings struct {
	APIKey      string
	Model       string
	Temperature *float64
	Timeout     time.Duration
}

// Settings returns a snapshot of the values consumed per request
func (c *Config) Settings() Settings {
	var temp *float64
	if c.OpenAI.Temperature != nil {
		t := *c.OpenAI.Temperature
		temp = &t
	}
	return Settings{
		APIKey:      c.OpenAI.APIKey,
		Model:       c.OpenAI.Model,
		Temperature: temp,
		Timeout:     c.OpenAI.Timeout(),
	}
}
