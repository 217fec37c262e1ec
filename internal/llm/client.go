package llm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/config"
	"github.com/s33g/gpt-prompter/internal/conversation"
	"github.com/s33g/gpt-prompter/internal/metrics"
)

// Stage is a step of a single exchange
type Stage string

const (
	StageIdle            Stage = "idle"
	StageComposing       Stage = "composing"
	StageSending         Stage = "sending"
	StageParsingResponse Stage = "parsing_response"
	StageSucceeded       Stage = "succeeded"
	StageFailed          Stage = "failed"
)

// SettingsProvider supplies the settings read once at the start of each call
type SettingsProvider interface {
	Settings() config.Settings
}

// Guard admits or rejects a request before it is sent
type Guard interface {
	Admit(ctx context.Context, model string, estimatedTokens int) error
}

// Failure is emitted when an exchange fails
type Failure struct {
	RequestID string
	Stage     Stage // stage that failed
	Model     string
	Err       error
	Message   string // error text plus remediation advice
}

// FailureHandler receives failures, typically to show a non-blocking notice
type FailureHandler func(Failure)

// Option configures a Client
type Option func(*Client)

// WithTransport sets the transport used for requests
func WithTransport(t *Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithFailureHandler registers the failure event handler
func WithFailureHandler(h FailureHandler) Option {
	return func(c *Client) {
		c.onFailure = h
	}
}

// WithGuard enables a request budget check before sending
func WithGuard(g Guard) Option {
	return func(c *Client) {
		c.guard = g
	}
}

// WithTokenCounter sets the counter used for prompt size estimates
func WithTokenCounter(counter conversation.Counter) Option {
	return func(c *Client) {
		c.counter = counter
	}
}

// WithContextWindow trims history to maxTokens (less reserve) before composing
func WithContextWindow(maxTokens, reserveTokens int) Option {
	return func(c *Client) {
		c.maxContextTokens = maxTokens
		c.reserveTokens = reserveTokens
	}
}

// Client composes the router, composer, transport and parser into the two
// public entry points. It holds no per-call state and is safe for
// concurrent use; conversations passed in are owned by the caller.
type Client struct {
	settings         SettingsProvider
	router           atomic.Pointer[Router]
	transport        *Transport
	guard            Guard
	counter          conversation.Counter
	maxContextTokens int
	reserveTokens    int
	onFailure        FailureHandler
	logger           zerolog.Logger
}

// NewClient creates a client
func NewClient(settings SettingsProvider, router *Router, opts ...Option) *Client {
	c := &Client{
		settings:  settings,
		transport: NewTransport(),
		counter:   conversation.EstimateCounter{},
		logger:    zerolog.Nop(),
	}
	c.router.Store(router)
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "gpt-client").Logger()
	return c
}

// SetRouter swaps the routing table, e.g. after a config reload
func (c *Client) SetRouter(r *Router) {
	c.router.Store(r)
}

// Router returns the current routing table
func (c *Client) Router() *Router {
	return c.router.Load()
}

// ExchangeSingle sends text as a one-message user conversation
func (c *Client) ExchangeSingle(ctx context.Context, text string) (string, error) {
	conv := conversation.New(conversation.WithLogger(c.logger)).Append(text, conversation.RoleUser)
	return c.ExchangeHistory(ctx, conv)
}

// ExchangeHistory sends the conversation and returns the reply text. On
// failure it returns "" with the originating error and emits a Failure to
// the registered handler; it never panics across the caller boundary.
// The reply is not appended to conv.
func (c *Client) ExchangeHistory(ctx context.Context, conv *conversation.Conversation) (string, error) {
	ex := &exchange{
		client:    c,
		requestID: uuid.NewString(),
		settings:  c.settings.Settings(),
		router:    c.router.Load(),
		stage:     StageIdle,
		started:   time.Now(),
	}
	ex.logger = c.logger.With().
		Str("request_id", ex.requestID).
		Str("model", ex.settings.Model).
		Logger()

	var messages []conversation.Message
	if conv != nil {
		messages = conv.ToList()
	}
	return ex.run(ctx, messages)
}

// exchange carries the state of one call through its stages
type exchange struct {
	client    *Client
	requestID string
	settings  config.Settings
	router    *Router
	desc      ModelDescriptor
	stage     Stage
	started   time.Time
	logger    zerolog.Logger
}

func (ex *exchange) run(ctx context.Context, messages []conversation.Message) (string, error) {
	c := ex.client

	ex.stage = StageComposing
	ex.desc = ex.router.Resolve(ex.settings.Model)

	if c.maxContextTokens > 0 {
		fitted, total, err := conversation.NewContextBuilder(c.counter, c.maxContextTokens, c.reserveTokens).Fit(messages, ex.desc.ID)
		if err != nil {
			return ex.fail(err)
		}
		if dropped := len(messages) - len(fitted); dropped > 0 {
			ex.logger.Info().
				Int("dropped", dropped).
				Int("tokens", total).
				Msg("Trimmed history to fit context window")
		}
		messages = fitted
	}

	body, err := Compose(ex.desc, messages, ex.settings.Temperature)
	if err != nil {
		return ex.fail(err)
	}

	ex.stage = StageSending
	promptTokens, err := conversation.CountMessages(c.counter, promptMessages(ex.desc, messages), ex.desc.ID)
	if err != nil {
		ex.logger.Warn().Err(err).Msg("Failed to count tokens, using estimate")
		promptTokens = conversation.EstimateTokens(string(body))
	}

	if c.guard != nil {
		if err := c.guard.Admit(ctx, ex.desc.ID, promptTokens); err != nil {
			return ex.fail(err)
		}
	}

	ex.logger.Debug().
		Str("endpoint", ex.desc.Endpoint).
		Str("family", string(ex.desc.Family)).
		Int("messages", len(messages)).
		Int("prompt_tokens", promptTokens).
		Dur("timeout", ex.settings.Timeout).
		Msg("Sending request")

	raw, err := c.transport.Send(ctx, ex.settings.APIKey, ex.desc.Endpoint, body, ex.settings.Timeout)
	if err != nil {
		return ex.fail(err)
	}
	metrics.AddPromptTokens(ex.desc.ID, promptTokens)

	ex.stage = StageParsingResponse
	reply, err := ParseResponse(ex.desc.Family, raw)
	if err != nil {
		return ex.fail(err)
	}

	ex.stage = StageSucceeded
	elapsed := time.Since(ex.started)
	metrics.ObserveExchange(string(ex.desc.Family), string(StageSucceeded), metrics.OutcomeSuccess, elapsed)
	ex.logger.Info().
		Str("resolved_model", ex.desc.ID).
		Str("family", string(ex.desc.Family)).
		Dur("duration", elapsed).
		Int("reply_chars", len(reply)).
		Msg("Exchange succeeded")

	return reply, nil
}

// fail moves the exchange to StageFailed, logs, records and emits the failure
func (ex *exchange) fail(err error) (string, error) {
	failed := ex.stage
	ex.stage = StageFailed

	elapsed := time.Since(ex.started)
	family := string(ex.desc.Family)
	metrics.ObserveExchange(family, string(failed), metrics.OutcomeFailure, elapsed)

	ex.logger.Error().
		Err(err).
		Str("stage", string(failed)).
		Dur("duration", elapsed).
		Msg("Exchange failed")

	if h := ex.client.onFailure; h != nil {
		h(Failure{
			RequestID: ex.requestID,
			Stage:     failed,
			Model:     ex.desc.ID,
			Err:       err,
			Message:   UserMessage(err),
		})
	}

	return "", err
}

// promptMessages returns the messages that actually reach the model
func promptMessages(desc ModelDescriptor, messages []conversation.Message) []conversation.Message {
	if desc.Family == FamilyCompletion && len(messages) > 0 {
		return messages[len(messages)-1:]
	}
	return messages
}
