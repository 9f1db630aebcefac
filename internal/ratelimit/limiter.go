package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "aegis:admin:rl"

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Checker is implemented by Limiter.
type Checker interface {
	Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error)
}

// Limiter counts submissions per key over a sliding window kept in a Redis
// sorted set. With no Redis client, or when Redis errors, every check passes.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewLimiter returns a Limiter whose Redis keys start with prefix.
func NewLimiter(rdb *redis.Client, prefix string) *Limiter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Limiter{rdb: rdb, prefix: prefix, now: time.Now}
}

// windowScript trims entries older than ARGV[1], admits the call at ARGV[2]
// when fewer than ARGV[3] remain, and refreshes the key TTL (ARGV[4] seconds).
// It replies {count, admitted, oldest score}; the oldest score is 0 for an
// empty set.
var windowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[1])
local count = redis.call('ZCARD', key)
local admitted = 0
if count < tonumber(ARGV[3]) then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    count = count + 1
    admitted = 1
end
redis.call('EXPIRE', key, ARGV[4])

local oldest = 0
local head = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if head[2] then
    oldest = tonumber(head[2])
end
return {count, admitted, oldest}
`)

// Check admits one call against key if fewer than limit calls were admitted
// within the trailing window.
func (l *Limiter) Check(ctx context.Context, key string, limit int64, window time.Duration) (LimitResult, error) {
	now := l.now()
	if l.rdb == nil {
		return LimitResult{Allowed: true, Remaining: limit - 1, ResetAt: now.Add(window)}, nil
	}

	reply, err := windowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key},
		now.Add(-window).UnixMicro(), now.UnixMicro(), limit, int64(window.Seconds())+1,
	).Int64Slice()
	if err != nil || len(reply) != 3 {
		slog.Warn("rate limiter unavailable, failing open", "key", key, "error", err)
		return LimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(window)}, nil
	}
	return windowResult(now, window, limit, reply[0], reply[1] == 1, reply[2]), nil
}

// windowResult derives the caller-facing result from the script reply. The
// window frees a slot when its oldest entry expires.
func windowResult(now time.Time, window time.Duration, limit, count int64, admitted bool, oldestMicro int64) LimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(window)
	if oldestMicro > 0 {
		resetAt = time.UnixMicro(oldestMicro).Add(window)
	}

	res := LimitResult{Allowed: admitted, Remaining: remaining, ResetAt: resetAt}
	if !admitted {
		res.RetryAfter = resetAt.Sub(now)
		if res.RetryAfter < time.Second {
			res.RetryAfter = time.Second
		}
	}
	return res
}
