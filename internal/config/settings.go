package config

import (
	"fmt"
	"sync"
)

// LiveSettings holds the current configuration and hands out fresh
// settings snapshots. It is safe for concurrent use; Update is the
// reload hook passed to Watcher.
type LiveSettings struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewLiveSettings wraps an already validated configuration
func NewLiveSettings(cfg *Config) *LiveSettings {
	return &LiveSettings{cfg: cfg}
}

// Settings returns the settings snapshot for one request
func (l *LiveSettings) Settings() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Settings()
}

// Config returns the current configuration
func (l *LiveSettings) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Update swaps in a new configuration after validating it
func (l *LiveSettings) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
	return nil
}
