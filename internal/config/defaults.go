package config

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Model:          "gpt-3.5-turbo",
			DefaultModel:   "gpt-3.5-turbo",
			TimeoutSeconds: 20,
		},
		History: HistoryConfig{
			Backend:     BackendFile,
			Path:        "history",
			Session:     "default",
			TTLHours:    168, // 7 days
			MaxMessages: 200,
		},
		Redis: RedisConfig{
			Address:   "localhost:6379",
			DB:        0,
			KeyPrefix: "prompter:",
		},
		Context: ContextConfig{
			ReserveTokens: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
