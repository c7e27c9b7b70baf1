package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	// Calls 1..3 are allowed with used progressing 1,2,3.
	for i := 1; i <= 3; i++ {
		result, err := limiter.CheckLimit(ctx, "u1", 3, 60)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "call %d should be allowed", i)
		assert.Equal(t, i, result.Quota.Used)
	}

	// Call 4 is denied and does not count as usage.
	result, err := limiter.CheckLimit(ctx, "u1", 3, 60)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 3, result.Quota.Used)
	assert.Equal(t, 0, result.Remaining())
	assert.True(t, result.Quota.IsExceeded())
}

func TestMemoryLimiter_WindowRollover(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := limiter.CheckLimit(ctx, "u1", 3, 60)
		require.NoError(t, err)
	}

	result, err := limiter.CheckLimit(ctx, "u1", 3, 60)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	// Advance past the window: the counter hard-resets and the new call
	// is the only usage.
	now = now.Add(61 * time.Second)

	result, err = limiter.CheckLimit(ctx, "u1", 3, 60)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Quota.Used)
}

func TestMemoryLimiter_GetQuotaIsReadOnly(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	_, err := limiter.CheckLimit(ctx, "u1", 5, 60)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		quota, err := limiter.GetQuota(ctx, "u1", 5, 60)
		require.NoError(t, err)
		assert.Equal(t, 1, quota.Used)
		assert.Equal(t, 4, quota.Remaining())
	}
}

func TestMemoryLimiter_GetQuotaExpiredWindowReadsZero(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	now := time.Now()
	limiter.now = func() time.Time { return now }

	_, err := limiter.CheckLimit(ctx, "u1", 5, 60)
	require.NoError(t, err)

	now = now.Add(61 * time.Second)

	// The expired window reads as fresh without a physical reset.
	quota, err := limiter.GetQuota(ctx, "u1", 5, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)

	// The stored record still holds the old count until the next check
	// performs the rollover.
	limiter.mu.Lock()
	record := limiter.limits[compoundKey("u1", 5, 60)]
	limiter.mu.Unlock()
	require.NotNil(t, record)
	assert.Equal(t, 1, record.count)
}

func TestMemoryLimiter_GetQuotaUnknownKey(t *testing.T) {
	limiter := NewMemoryLimiter()

	quota, err := limiter.GetQuota(context.Background(), "nobody", 10, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
	assert.Equal(t, 10, quota.Remaining())
	assert.False(t, quota.IsExceeded())
}

func TestMemoryLimiter_ResetLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	// Same logical key under two different limit shapes.
	for i := 0; i < 3; i++ {
		_, err := limiter.CheckLimit(ctx, "u1", 3, 60)
		require.NoError(t, err)
	}
	_, err := limiter.CheckLimit(ctx, "u1", 10, 120)
	require.NoError(t, err)

	require.NoError(t, limiter.ResetLimit(ctx, "u1"))

	quota, err := limiter.GetQuota(ctx, "u1", 3, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)

	quota, err = limiter.GetQuota(ctx, "u1", 10, 120)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
}

func TestMemoryLimiter_DistinctKeysIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.CheckLimit(ctx, "u1", 3, 60)
		require.NoError(t, err)
	}

	result, err := limiter.CheckLimit(ctx, "u2", 3, 60)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining())
}

func TestQuota_RemainingNeverNegative(t *testing.T) {
	quota := &Quota{Key: "k", MaxRequests: 3, Used: 5, WindowSeconds: 60, ResetAt: time.Now()}
	assert.Equal(t, 0, quota.Remaining())
	assert.True(t, quota.IsExceeded())
}

func TestQuota_ResetInFlooredAtZero(t *testing.T) {
	quota := &Quota{Key: "k", MaxRequests: 3, Used: 1, WindowSeconds: 60, ResetAt: time.Now().Add(-time.Minute)}
	assert.Equal(t, time.Duration(0), quota.ResetIn())
}
