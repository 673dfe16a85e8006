/**
 * @description
 * Distributed fixed-window rate limiting for attribution creation, backed by
 * Redis. Referral links are the one write path exposed to untrusted traffic.
 */
package app

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter gates a keyed operation. Allow reports whether the call may
// proceed within the current window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type noopRateLimiter struct{}

func (noopRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisRateLimiter is a fixed-window counter shared across instances.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisRateLimiter creates a limiter allowing `limit` calls per window per
// key. A nil client yields a limiter that always allows.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "settlement:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisRateLimiter{
		client: client,
		prefix: trimmedPrefix,
		limit:  limit,
		window: window,
	}
}

// Allow consumes one slot for the key. Fails open when Redis is not
// configured or the limit is disabled.
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil || r.limit <= 0 || r.window <= 0 {
		return true, nil
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return true, nil
	}

	windowMs := r.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	count, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + ":" + normalizedKey}, windowMs).Int64()
	if err != nil {
		return false, err
	}

	return count <= int64(r.limit), nil
}
