package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/s33g/gpt-prompter/internal/storage"
)

// RedisStore keeps each session as a Redis list of JSON messages
type RedisStore struct {
	client      *storage.Client
	ttl         time.Duration
	maxMessages int
	logger      zerolog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed history store. A zero ttl keeps
// history forever; a zero maxMessages keeps every message.
func NewRedisStore(client *storage.Client, ttl time.Duration, maxMessages int, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client:      client,
		ttl:         ttl,
		maxMessages: maxMessages,
		logger:      logger.With().Str("component", "redis-history").Logger(),
	}
}

// Save replaces the session history in one pipeline
func (s *RedisStore) Save(ctx context.Context, session string, messages []Message) error {
	if err := validateSession(session); err != nil {
		return err
	}
	key := s.client.Keys().History(session)

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := MarshalMessage(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	pipe := s.client.Redis().TxPipeline()
	pipe.Del(ctx, key)
	if len(values) > 0 {
		pipe.RPush(ctx, key, values...)
		if s.maxMessages > 0 {
			pipe.LTrim(ctx, key, -int64(s.maxMessages), -1)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// Load returns the session history in order
func (s *RedisStore) Load(ctx context.Context, session string) ([]Message, error) {
	if err := validateSession(session); err != nil {
		return nil, err
	}
	key := s.client.Keys().History(session)

	data, err := s.client.Redis().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]Message, 0, len(data))
	for i, d := range data {
		msg, err := UnmarshalMessage(d)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("session", session).
				Int("index", i).
				Msg("Skipping malformed message")
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// Delete removes the session history
func (s *RedisStore) Delete(ctx context.Context, session string) error {
	if err := validateSession(session); err != nil {
		return err
	}
	if err := s.client.Redis().Del(ctx, s.client.Keys().History(session)).Err(); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Close is a no-op; the shared storage client is closed by its owner
func (s *RedisStore) Close() error {
	return nil
}
