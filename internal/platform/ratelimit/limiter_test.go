package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsBurstThenRejects(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := New(1, 3, WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow("user-1"), "request %d", i)
	}
	require.False(t, limiter.Allow("user-1"))
	require.True(t, limiter.Allow("user-2"))

	now = now.Add(time.Second)
	require.True(t, limiter.Allow("user-1"))
	require.False(t, limiter.Allow("user-1"))
}

func TestLimiterDisabledWithZeroRate(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("user-1"))
	}
}

func TestLimiterCleanupDropsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := New(1, 1, WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	limiter.Allow("idle")
	now = now.Add(30 * time.Second)
	limiter.Allow("active")

	now = now.Add(45 * time.Second)
	limiter.Cleanup()
	require.Equal(t, 1, limiter.Len())
}
