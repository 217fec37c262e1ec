package storage

import (
	"fmt"
)

// Keys generates Redis keys with consistent naming
type Keys struct {
	prefix string
}

// NewKeys creates a new Keys generator
func NewKeys(prefix string) *Keys {
	return &Keys{prefix: prefix}
}

// History returns the key for a session's message list
func (k *Keys) History(session string) string {
	return fmt.Sprintf("%shistory:%s", k.prefix, session)
}

// RateLimitMinute returns the key for per-minute request counting
func (k *Keys) RateLimitMinute(subject string) string {
	return fmt.Sprintf("%sratelimit:%s:minute", k.prefix, subject)
}

// RateLimitHour returns the key for per-hour request counting
func (k *Keys) RateLimitHour(subject string) string {
	return fmt.Sprintf("%sratelimit:%s:hour", k.prefix, subject)
}

// TokenBudget returns the key for token usage within a period
func (k *Keys) TokenBudget(subject string, periodStart int64) string {
	return fmt.Sprintf("%stokens:%s:%d", k.prefix, subject, periodStart)
}
