package ratelimit

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/config"
	"github.com/s33g/gpt-prompter/internal/llm"
)

type subjectKey struct{}

// WithSubject returns a context whose requests are counted against subject
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

func subjectFrom(ctx context.Context, fallback string) string {
	if s, ok := ctx.Value(subjectKey{}).(string); ok && s != "" {
		return s
	}
	return fallback
}

// Guard enforces the configured request budget before a request is sent.
// It satisfies llm.Guard. Requests are counted per subject, taken from the
// context (see WithSubject) or the guard's default.
type Guard struct {
	limiter *Limiter
	subject string
	limits  atomic.Pointer[config.LimitsConfig]
	logger  zerolog.Logger
}

// NewGuard creates a guard with a default subject
func NewGuard(limiter *Limiter, subject string, limits config.LimitsConfig, logger zerolog.Logger) *Guard {
	g := &Guard{
		limiter: limiter,
		subject: subject,
		logger:  logger.With().Str("component", "ratelimit").Logger(),
	}
	g.SetLimits(limits)
	return g
}

// SetLimits swaps the limits, e.g. after a config reload
func (g *Guard) SetLimits(limits config.LimitsConfig) {
	g.limits.Store(&limits)
}

// Admit returns a *llm.LimitError when a limit is reached. Redis failures
// are logged and the request is let through.
func (g *Guard) Admit(ctx context.Context, model string, estimatedTokens int) error {
	limits := g.limits.Load()
	subject := subjectFrom(ctx, g.subject)
	logger := g.logger.With().Str("subject", subject).Logger()

	d, err := g.limiter.Admit(ctx, Request{
		Subject:     subject,
		PerMinute:   limits.RequestsPerMinute,
		PerHour:     limits.RequestsPerHour,
		TokenBudget: limits.TokensPerPeriod,
		PeriodHours: limits.PeriodHours,
		Tokens:      estimatedTokens,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Limit check failed, allowing request")
		return nil
	}
	if !d.Allowed {
		return reject(logger, d, model)
	}

	if limits.TokensPerPeriod > 0 {
		logger.Debug().
			Int("used", d.Used).
			Int("remaining", d.Remaining).
			Msg("Reserved tokens")
	}
	return nil
}

func reject(logger zerolog.Logger, d *Decision, model string) error {
	logger.Info().
		Str("limit", d.Limit).
		Str("model", model).
		Dur("retry_after", d.RetryAfter).
		Msg("Request rejected by limit")
	return &llm.LimitError{Limit: d.Limit, RetryAfter: d.RetryAfter}
}
