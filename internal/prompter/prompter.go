// Package prompter wires configuration, history storage, request limits and
// the GPT client into the session-oriented operations used by the CLI.
package prompter

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/config"
	"github.com/s33g/gpt-prompter/internal/conversation"
	"github.com/s33g/gpt-prompter/internal/llm"
	"github.com/s33g/gpt-prompter/internal/ratelimit"
	"github.com/s33g/gpt-prompter/internal/storage"
)

// Option configures a Prompter
type Option func(*options)

type options struct {
	failureHandler llm.FailureHandler
	counter        conversation.Counter
	transport      *llm.Transport
}

// WithFailureHandler receives failed exchanges, e.g. to print a notice
func WithFailureHandler(h llm.FailureHandler) Option {
	return func(o *options) {
		o.failureHandler = h
	}
}

// WithTokenCounter overrides the prompt token counter
func WithTokenCounter(counter conversation.Counter) Option {
	return func(o *options) {
		o.counter = counter
	}
}

// WithTransport overrides the HTTP transport
func WithTransport(t *llm.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// Prompter owns the long-lived components of one process
type Prompter struct {
	configPath    string
	configWatcher *config.Watcher
	configMu      sync.Mutex
	live          *config.LiveSettings
	storage       *storage.Client // nil unless Redis is needed
	store         conversation.Store
	limiter       *ratelimit.Limiter
	guard         *ratelimit.Guard
	client        *llm.Client
	logger        zerolog.Logger
}

// New creates a prompter. configPath may be empty to disable hot reload.
func New(ctx context.Context, cfg *config.Config, configPath string, logger zerolog.Logger, opts ...Option) (*Prompter, error) {
	o := options{counter: conversation.EstimateCounter{}}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Prompter{
		configPath: configPath,
		live:       config.NewLiveSettings(cfg),
		logger:     logger,
	}

	// Connect to Redis only when something uses it
	if cfg.History.Backend == config.BackendRedis || cfg.Limits.Enabled() {
		client, err := storage.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		p.storage = client
	}

	store, err := openStore(cfg, p.storage, logger)
	if err != nil {
		p.closeStorage()
		return nil, err
	}
	p.store = store

	router, err := llm.NewRouter(cfg.OpenAI, logger)
	if err != nil {
		p.Stop()
		return nil, fmt.Errorf("failed to initialize model router: %w", err)
	}

	clientOpts := []llm.Option{
		llm.WithLogger(logger),
		llm.WithTokenCounter(o.counter),
		llm.WithContextWindow(cfg.Context.MaxContextTokens, cfg.Context.ReserveTokens),
	}
	if o.failureHandler != nil {
		clientOpts = append(clientOpts, llm.WithFailureHandler(o.failureHandler))
	}
	if o.transport != nil {
		clientOpts = append(clientOpts, llm.WithTransport(o.transport))
	}
	if p.storage != nil {
		p.limiter = ratelimit.NewLimiter(p.storage)
		p.guard = ratelimit.NewGuard(p.limiter, cfg.History.Session, cfg.Limits, logger)
		clientOpts = append(clientOpts, llm.WithGuard(p.guard))
	}
	p.client = llm.NewClient(p.live, router, clientOpts...)

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, p.Reload, logger)
		if err != nil {
			// Non-fatal - just log the error
			p.logger.Warn().Err(err).Msg("Failed to create config watcher - hot reload disabled")
		} else {
			p.configWatcher = watcher
		}
	}

	return p, nil
}

// openStore selects the history backend
func openStore(cfg *config.Config, client *storage.Client, logger zerolog.Logger) (conversation.Store, error) {
	switch cfg.History.Backend {
	case config.BackendFile:
		return conversation.NewFileStore(cfg.History.Path)
	case config.BackendSQLite:
		return conversation.NewSQLiteStore(cfg.History.Path)
	case config.BackendRedis:
		return conversation.NewRedisStore(client, cfg.History.TTL(), cfg.History.MaxMessages, logger), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.History.Backend)
	}
}

// Start begins watching the configuration file
func (p *Prompter) Start() {
	if p.configWatcher != nil {
		p.configWatcher.Start()
	}
}

// Stop releases watchers, stores and connections
func (p *Prompter) Stop() {
	if p.configWatcher != nil {
		p.configWatcher.Stop()
	}

	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Failed to close history store")
		}
	}

	p.closeStorage()
}

func (p *Prompter) closeStorage() {
	if p.storage == nil {
		return
	}
	if err := p.storage.Close(); err != nil {
		p.logger.Error().Err(err).Msg("Failed to close Redis connection")
	}
}

// Reload applies a new configuration. Model settings, the routing table and
// limits take effect on the next exchange; storage and context window
// changes need a restart.
func (p *Prompter) Reload(cfg *config.Config) error {
	p.configMu.Lock()
	defer p.configMu.Unlock()

	old := p.live.Config()

	router, err := llm.NewRouter(cfg.OpenAI, p.logger)
	if err != nil {
		return fmt.Errorf("failed to reload model router: %w", err)
	}
	if err := p.live.Update(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	p.client.SetRouter(router)

	if p.guard != nil {
		p.guard.SetLimits(cfg.Limits)
	} else if cfg.Limits.Enabled() {
		p.logger.Warn().Msg("Limits were enabled without a Redis connection, restart to apply")
	}

	if old.History != cfg.History || old.Redis != cfg.Redis || old.Context != cfg.Context {
		p.logger.Warn().Msg("History, Redis and context settings change on restart only")
	}

	p.logger.Info().
		Str("model", cfg.OpenAI.Model).
		Msg("Configuration reloaded successfully")
	return nil
}

// GetConfig returns the current configuration
func (p *Prompter) GetConfig() *config.Config {
	return p.live.Config()
}
