package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 3, 3, 3},
		{"exceeding burst blocks", 2, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(1, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("203.0.113.7") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "k"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, rl.Wait(ctx, "k"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestKeyedRateLimiter_WaitCancelled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	require.True(t, rl.Allow("k"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "k"))
}

func TestKeyedRateLimiter_SweepEvictsIdleKeys(t *testing.T) {
	rl := NewWithTTL(1, 1, time.Hour)
	defer rl.Stop()

	now := time.Date(2025, time.January, 5, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(50 * time.Minute)
	rl.Allow("recent")
	now = now.Add(20 * time.Minute)

	rl.Sweep()
	assert.Equal(t, 1, rl.Len())

	// An evicted key starts with a full bucket again.
	assert.True(t, rl.Allow("old"))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
	assert.NoError(t, rl.Shutdown())
}
