package rcon

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// maxLimiters caps the per-address map; it is reset when exceeded.
const maxLimiters = 10000

// RateLimiter throttles commands per game server address.
// A zero rate disables throttling.
type RateLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing r commands per second with the given burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a command to addr is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, addr string) error {
	if rl == nil || rl.rate <= 0 {
		return nil
	}
	return rl.getLimiter(addr).Wait(ctx)
}

func (rl *RateLimiter) getLimiter(addr string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[addr]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		l = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[addr] = l
	}
	return l
}
