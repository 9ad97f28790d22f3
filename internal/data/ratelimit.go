package data

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter backed by Redis. Each window is
// one key incremented atomically; the first increment sets the expiry, so a
// burst of concurrent callers still shares a single window.
type RedisRateLimiter struct {
	client      redis.UniversalClient
	maxRequests int
	window      time.Duration
	prefix      string
}

// RateLimiterConfig holds configuration for the Redis rate limiter.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
	// Prefix namespaces the limiter's keys, e.g. "jobs:create".
	Prefix string
}

// NewRedisRateLimiter creates a rate limiter with the given client and limits.
func NewRedisRateLimiter(client redis.UniversalClient, cfg RateLimiterConfig) *RedisRateLimiter {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 30
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
		prefix:      prefix,
	}
}

// Allow reports whether the caller identified by key may proceed within the
// current window.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if expErr := l.client.Expire(ctx, redisKey, l.window).Err(); expErr != nil {
			return false, fmt.Errorf("rate limit expire: %w", expErr)
		}
	}
	return count <= int64(l.maxRequests), nil
}
