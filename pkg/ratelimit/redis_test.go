package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisLimiter connects to the Redis instance named by REDIS_ADDR,
// or skips the test when none is configured.
func newRedisLimiter(t *testing.T) *RedisLimiter {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping Redis-backed tests")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}

	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLimiter(rdb)
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	for i := 1; i <= 3; i++ {
		result, err := limiter.CheckLimit(ctx, key, 3, 60)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "call %d should be allowed", i)
		assert.Equal(t, i, result.Quota.Used)
	}

	// The 4th attempt is denied but its timestamp is still recorded:
	// the sliding window counts attempts, not admissions.
	result, err := limiter.CheckLimit(ctx, key, 3, 60)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 4, result.Quota.Used)

	require.NoError(t, limiter.ResetLimit(ctx, key))
}

func TestRedisLimiter_GetQuotaDoesNotRecord(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	_, err := limiter.CheckLimit(ctx, key, 5, 60)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		quota, err := limiter.GetQuota(ctx, key, 5, 60)
		require.NoError(t, err)
		assert.Equal(t, 1, quota.Used)
	}

	require.NoError(t, limiter.ResetLimit(ctx, key))
}

func TestRedisLimiter_ResetLimit(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	// Two limit shapes on the same logical key.
	_, err := limiter.CheckLimit(ctx, key, 3, 60)
	require.NoError(t, err)
	_, err = limiter.CheckLimit(ctx, key, 10, 120)
	require.NoError(t, err)

	require.NoError(t, limiter.ResetLimit(ctx, key))

	quota, err := limiter.GetQuota(ctx, key, 3, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)

	quota, err = limiter.GetQuota(ctx, key, 10, 120)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	// A 1-second window: entries age out rather than resetting hard.
	for i := 0; i < 2; i++ {
		result, err := limiter.CheckLimit(ctx, key, 2, 1)
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := limiter.CheckLimit(ctx, key, 2, 1)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	time.Sleep(1100 * time.Millisecond)

	result, err = limiter.CheckLimit(ctx, key, 2, 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Quota.Used)

	require.NoError(t, limiter.ResetLimit(ctx, key))
}

func TestRedisLimiter_ResetAtFromOldestEntry(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	before := time.Now()
	result, err := limiter.CheckLimit(ctx, key, 5, 60)
	require.NoError(t, err)

	// The window frees up when the oldest entry ages out.
	assert.WithinDuration(t, before.Add(60*time.Second), result.ResetAt(), 2*time.Second)

	require.NoError(t, limiter.ResetLimit(ctx, key))
}
