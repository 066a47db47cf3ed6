/**
 * @description
 * This package provides a distributed fixed-window rate limiter backed by Redis.
 * A single Lua script increments the counter and arms its expiry atomically, so
 * every API instance shares the same per-user budget.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client and script runner.
 */
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// Limiter counts requests per scope and subject in fixed windows.
type Limiter struct {
	client redis.UniversalClient
	prefix string
}

// NewLimiter creates a Limiter. Keys are written as "<prefix>:<scope>:<subject>".
func NewLimiter(client redis.UniversalClient, prefix string) *Limiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = "mealplanner:rate_limit"
	}
	return &Limiter{client: client, prefix: trimmed}
}

// Allow consumes one request from the subject's budget. A nil limiter, a
// non-positive limit or window, or an empty key always allows.
func (l *Limiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (Decision, error) {
	if l == nil || l.client == nil || limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return Decision{Allowed: true, Limit: limit}, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject)
	raw, err := fixedWindowScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Decision{}, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retrySeconds := int64(math.Ceil(float64(ttlMs) / 1000.0))
	if retrySeconds < 1 {
		retrySeconds = 1
	}

	return Decision{
		Allowed:    int(count) <= limit,
		Count:      int(count),
		Limit:      limit,
		RetryAfter: time.Duration(retrySeconds) * time.Second,
	}, nil
}
