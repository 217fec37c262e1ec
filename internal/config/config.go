package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// API key is optional here; a missing key surfaces as a 401 from the endpoint
	if cfg.OpenAI.APIKeyEnv != "" {
		cfg.OpenAI.APIKey = os.Getenv(cfg.OpenAI.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.OpenAI.BaseURL == "" {
		return fmt.Errorf("openai.base_url is required")
	}
	if c.OpenAI.DefaultModel == "" {
		return fmt.Errorf("openai.default_model is required")
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		return fmt.Errorf("openai.timeout_seconds must be positive, got %d", c.OpenAI.TimeoutSeconds)
	}
	if t := c.OpenAI.Temperature; t != nil && (*t < 0 || *t > 1) {
		return fmt.Errorf("openai.temperature must be between 0.0 and 1.0, got %v", *t)
	}

	seen := make(map[string]bool)
	for i, m := range c.OpenAI.Models {
		if m.ID == "" {
			return fmt.Errorf("openai.models[%d].id is required", i)
		}
		if m.Family != FamilyChat && m.Family != FamilyCompletion {
			return fmt.Errorf("openai.models[%d].family must be %q or %q, got %q", i, FamilyChat, FamilyCompletion, m.Family)
		}
		key := strings.ToLower(m.ID)
		if seen[key] {
			return fmt.Errorf("openai.models[%d] duplicates model %s", i, m.ID)
		}
		seen[key] = true
	}

	switch c.History.Backend {
	case BackendFile, BackendSQLite:
		if c.History.Path == "" {
			return fmt.Errorf("history.path is required for backend %s", c.History.Backend)
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required for backend redis")
		}
	default:
		return fmt.Errorf("unknown history.backend: %s", c.History.Backend)
	}

	if c.History.Session == "" {
		return fmt.Errorf("history.session is required")
	}

	if c.Limits.Enabled() && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when limits are configured")
	}
	if c.Limits.TokensPerPeriod > 0 && c.Limits.PeriodHours <= 0 {
		return fmt.Errorf("limits.period_hours must be positive when tokens_per_period is set")
	}

	if c.Context.MaxContextTokens < 0 || c.Context.ReserveTokens < 0 {
		return fmt.Errorf("context token settings must not be negative")
	}
	if c.Context.MaxContextTokens > 0 && c.Context.ReserveTokens >= c.Context.MaxContextTokens {
		return fmt.Errorf("context.reserve_tokens must be smaller than context.max_context_tokens")
	}

	return nil
}
