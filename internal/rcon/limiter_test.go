package rcon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRateLimiter_GetLimiter(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(10), 20)

	l1 := rl.getLimiter("10.0.0.1:27015")
	l2 := rl.getLimiter("10.0.0.1:27015")
	l3 := rl.getLimiter("10.0.0.2:27015")

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, l3)
	assert.Equal(t, 20, l1.Burst())
}

func TestRateLimiter_Disabled(t *testing.T) {
	var nilLimiter *RateLimiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "a"))

	rl := NewRateLimiter(0, 0)
	require.NoError(t, rl.Wait(context.Background(), "a"))
	assert.Empty(t, rl.limiters)
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(0.001), 1)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, rl.Wait(ctx, "a")) // burst
	cancel()
	require.Error(t, rl.Wait(ctx, "a"))
}

func TestRateLimiter_ResetsWhenFull(t *testing.T) {
	rl := NewRateLimiter(rate.Limit(1), 1)
	for i := range maxLimiters {
		rl.limiters[string(rune(i))+"x"] = rate.NewLimiter(1, 1)
	}
	rl.getLimiter("fresh")
	assert.Len(t, rl.limiters, 1)
}
