package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushforge/pushforge/internal/testutil"
)

func TestNewRedisRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewRedisRateLimiter(nil, RateLimiterConfig{})
	assert.Equal(t, 30, limiter.maxRequests)
	assert.Equal(t, time.Minute, limiter.window)
	assert.Equal(t, "ratelimit", limiter.prefix)

	limiter = NewRedisRateLimiter(nil, RateLimiterConfig{
		MaxRequests: 5,
		Window:      10 * time.Second,
		Prefix:      "jobs",
	})
	assert.Equal(t, 5, limiter.maxRequests)
	assert.Equal(t, 10*time.Second, limiter.window)
	assert.Equal(t, "jobs", limiter.prefix)
}

func TestRedisRateLimiter_Integration_EnforcesWindow(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})

	limiter := NewRedisRateLimiter(client, RateLimiterConfig{
		MaxRequests: 3,
		Window:      time.Minute,
		Prefix:      "test:ratelimit",
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user-window")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user-window")
	require.NoError(t, err)
	assert.False(t, allowed, "request beyond the limit should be refused")

	// Keys are per caller: another user's budget is untouched.
	allowed, err = limiter.Allow(ctx, "user-other")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_Integration_WindowExpires(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})

	limiter := NewRedisRateLimiter(client, RateLimiterConfig{
		MaxRequests: 1,
		Window:      time.Second,
		Prefix:      "test:ratelimit:expiry",
	})
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user-expiry")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-expiry")
	require.NoError(t, err)
	require.False(t, allowed)

	// After the window lapses the counter key is gone and the budget resets.
	time.Sleep(1100 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "user-expiry")
	require.NoError(t, err)
	assert.True(t, allowed)
}
