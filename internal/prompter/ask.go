package prompter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/s33g/gpt-prompter/internal/conversation"
	"github.com/s33g/gpt-prompter/internal/ratelimit"
)

// ErrEmptyPrompt is returned when there is nothing to send
var ErrEmptyPrompt = errors.New("prompt is empty")

// AskOptions controls one Ask call
type AskOptions struct {
	// System is added as the first message of a new session
	System string
	// Single sends the prompt alone, without loading or saving history
	Single bool
}

// Ask sends prompt within session and returns the reply. The prompt and the
// reply are appended to the session's history only when the exchange
// succeeds, so a failed request can simply be sent again.
func (p *Prompter) Ask(ctx context.Context, session, prompt string, opts AskOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	if session == "" {
		session = p.GetConfig().History.Session
	}
	ctx = ratelimit.WithSubject(ctx, session)
	logger := p.logger.With().Str("session", session).Logger()

	if opts.Single {
		return p.client.ExchangeSingle(ctx, prompt)
	}

	history, err := p.store.Load(ctx, session)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	conv := conversation.FromMessages(history, conversation.WithLogger(logger))
	if conv.Count() == 0 && opts.System != "" {
		conv.Append(opts.System, conversation.RoleSystem)
	}
	conv.Append(prompt, conversation.RoleUser)

	reply, err := p.client.ExchangeHistory(ctx, conv)
	if err != nil {
		return "", err
	}

	conv.Append(reply, conversation.RoleAssistant)
	if err := p.store.Save(ctx, session, conv.ToList()); err != nil {
		// The reply is still returned; only persistence failed
		logger.Error().Err(err).Msg("Failed to save history")
		return reply, fmt.Errorf("failed to save history: %w", err)
	}

	logger.Info().
		Int("messages", conv.Count()).
		Msg("Conversation updated")
	return reply, nil
}

// Reset deletes the session's history
func (p *Prompter) Reset(ctx context.Context, session string) error {
	if session == "" {
		session = p.GetConfig().History.Session
	}
	if err := p.store.Delete(ctx, session); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	p.logger.Info().Str("session", session).Msg("Session reset")
	return nil
}

// History returns the stored messages of session
func (p *Prompter) History(ctx context.Context, session string) ([]conversation.Message, error) {
	if session == "" {
		session = p.GetConfig().History.Session
	}
	messages, err := p.store.Load(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	logger := p.logger.With().Str("session", session).Logger()
	return conversation.FromMessages(messages, conversation.WithLogger(logger)).ToList(), nil
}
