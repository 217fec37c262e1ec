package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/s33g/gpt-prompter/internal/storage"
)

// Limit names reported in a Decision
const (
	LimitMinute = "minute"
	LimitHour   = "hour"
	LimitTokens = "tokens"
)

// admitScript checks the request windows and the token budget before
// counting anything, so a request rejected by any limit consumes no quota.
// A zero limit disables that check. Returns {status, used, retry_ms}.
var admitScript = redis.NewScript(`
local minute_limit = tonumber(ARGV[1])
local hour_limit = tonumber(ARGV[2])
local token_limit = tonumber(ARGV[3])
local amount = tonumber(ARGV[4])

local minute = tonumber(redis.call('GET', KEYS[1]) or '0')
local hour = tonumber(redis.call('GET', KEYS[2]) or '0')
local used = tonumber(redis.call('GET', KEYS[3]) or '0')

if minute_limit > 0 and minute >= minute_limit then
    local ttl = redis.call('PTTL', KEYS[1])
    return {-1, used, ttl > 0 and ttl or tonumber(ARGV[5])}
end

if hour_limit > 0 and hour >= hour_limit then
    local ttl = redis.call('PTTL', KEYS[2])
    return {-2, used, ttl > 0 and ttl or tonumber(ARGV[6])}
end

if token_limit > 0 and used + amount > token_limit then
    local ttl = redis.call('PTTL', KEYS[3])
    return {-3, used, ttl > 0 and ttl or tonumber(ARGV[7])}
end

if minute_limit > 0 or hour_limit > 0 then
    if redis.call('INCR', KEYS[1]) == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[5])
    end
    if redis.call('INCR', KEYS[2]) == 1 then
        redis.call('PEXPIRE', KEYS[2], ARGV[6])
    end
end

if token_limit > 0 then
    used = redis.call('INCRBY', KEYS[3], amount)
    if used == amount then
        redis.call('PEXPIRE', KEYS[3], ARGV[7])
    end
end

return {1, used, 0}
`)

// Decision is the outcome of a limit check
type Decision struct {
	Allowed    bool
	Limit      string // set when rejected
	RetryAfter time.Duration
	Used       int // tokens used in the current period
	Remaining  int
}

// Limiter counts requests and tokens per subject in Redis
type Limiter struct {
	client *storage.Client
	now    func() time.Time
}

// NewLimiter creates a limiter. Scripts are loaded on first use.
func NewLimiter(client *storage.Client) *Limiter {
	return &Limiter{
		client: client,
		now:    time.Now,
	}
}

// Request is one request to admit. A zero limit disables that check.
type Request struct {
	Subject     string
	PerMinute   int
	PerHour     int
	TokenBudget int
	PeriodHours int
	Tokens      int
}

// Admit checks every enabled limit and, only when all pass, counts the
// request in its windows and reserves its tokens. Token periods are aligned
// to the Unix epoch.
func (l *Limiter) Admit(ctx context.Context, req Request) (*Decision, error) {
	if req.PerMinute <= 0 && req.PerHour <= 0 && req.TokenBudget <= 0 {
		return &Decision{Allowed: true}, nil
	}

	var start time.Time
	ttl := time.Hour
	if req.TokenBudget > 0 {
		if req.PeriodHours <= 0 {
			return nil, fmt.Errorf("token period must be positive")
		}
		start, ttl = l.period(req.PeriodHours)
	}

	keys := []string{
		l.client.Keys().RateLimitMinute(req.Subject),
		l.client.Keys().RateLimitHour(req.Subject),
		l.client.Keys().TokenBudget(req.Subject, start.Unix()),
	}
	values, err := admitScript.Run(ctx, l.client.Redis(), keys,
		req.PerMinute,
		req.PerHour,
		req.TokenBudget,
		req.Tokens,
		time.Minute.Milliseconds(),
		time.Hour.Milliseconds(),
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("limit check failed: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected limit result: %v", values)
	}

	d := &Decision{
		Used:       int(values[1]),
		RetryAfter: time.Duration(values[2]) * time.Millisecond,
	}
	if req.TokenBudget > 0 {
		d.Remaining = req.TokenBudget - d.Used
	}

	switch values[0] {
	case 1:
		d.Allowed = true
	case -1:
		d.Limit = LimitMinute
	case -2:
		d.Limit = LimitHour
	case -3:
		d.Limit = LimitTokens
	default:
		return nil, fmt.Errorf("unknown limit status: %d", values[0])
	}
	return d, nil
}

// CheckRequests admits one request against the per-minute and per-hour
// windows only
func (l *Limiter) CheckRequests(ctx context.Context, subject string, perMinute, perHour int) (*Decision, error) {
	return l.Admit(ctx, Request{Subject: subject, PerMinute: perMinute, PerHour: perHour})
}

// ReserveTokens adds tokens to the subject's usage for the current period
// unless that would exceed budget
func (l *Limiter) ReserveTokens(ctx context.Context, subject string, budget, periodHours, tokens int) (*Decision, error) {
	if budget > 0 && periodHours <= 0 {
		return nil, fmt.Errorf("token period must be positive")
	}
	return l.Admit(ctx, Request{Subject: subject, TokenBudget: budget, PeriodHours: periodHours, Tokens: tokens})
}

// Usage returns the tokens used in the current period without reserving
func (l *Limiter) Usage(ctx context.Context, subject string, periodHours int) (int, error) {
	if periodHours <= 0 {
		return 0, fmt.Errorf("token period must be positive")
	}

	start, _ := l.period(periodHours)
	key := l.client.Keys().TokenBudget(subject, start.Unix())

	used, err := l.client.Redis().Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get usage: %w", err)
	}
	return used, nil
}

// period returns the start of the current period and the time left in it
func (l *Limiter) period(periodHours int) (time.Time, time.Duration) {
	seconds := int64(periodHours) * 3600
	now := l.now()
	start := time.Unix(now.Unix()/seconds*seconds, 0)
	left := start.Add(time.Duration(seconds) * time.Second).Sub(now)
	if left < time.Millisecond {
		left = time.Millisecond
	}
	return start, left
}
