// Package ratelimit admits requests against a sliding window kept in a Redis
// sorted set per identifier.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/multimodal-agent/server/internal/infra"
)

const keyPrefix = "rate_limit:"

// slidingWindow trims, counts and conditionally records in one round trip.
// KEYS[1] window key; ARGV: window start, now, member, limit, window seconds.
// Returns {allowed, count before this request}.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[4]) then
  return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('EXPIRE', KEYS[1], ARGV[5])
return {1, count}
`)

// Limiter enforces Limit requests per Window for each identifier.
type Limiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	now    func() time.Time
	logger *infra.Logger
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger attaches a logger for store failures.
func WithLogger(logger *infra.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Limiter. A nil client admits everything.
func New(client redis.Scripter, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{client: client, limit: limit, window: window, now: time.Now, logger: infra.NopLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit is the configured request budget per window.
func (l *Limiter) Limit() int { return l.limit }

// Window is the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// IsAllowed records one request for identifier when it fits in the window
// and returns the remaining budget. A denied request is not recorded. When
// the store is absent or fails the request is admitted with the full limit.
func (l *Limiter) IsAllowed(ctx context.Context, identifier string) (bool, int) {
	if l == nil {
		return true, 0
	}
	if l.client == nil {
		return true, l.limit
	}

	now := l.now()
	windowStart := now.Add(-l.window)
	seconds := int64(l.window / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	res, err := slidingWindow.Run(ctx, l.client,
		[]string{keyPrefix + identifier},
		strconv.FormatInt(windowStart.UnixMicro(), 10),
		strconv.FormatInt(now.UnixMicro(), 10),
		strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
		l.limit,
		seconds,
	).Int64Slice()
	if err != nil || len(res) != 2 {
		l.logger.Warn().Err(err).Str("identifier", identifier).Msg("ratelimit: store unavailable, allowing request")
		return true, l.limit
	}

	if res[0] == 0 {
		return false, 0
	}
	remaining := l.limit - int(res[1]) - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

// ResetAt is when a window opened now closes.
func (l *Limiter) ResetAt() time.Time {
	return l.now().Add(l.window)
}
