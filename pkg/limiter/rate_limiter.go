// Package limiter protects outbound provider calls with client-side rate
// limiting, a per-model circuit breaker, and bounded retry. The three guards
// compose into Guard, which executor adapters wrap around every chat call.
package limiter

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Limits bounds outbound traffic for one model.
type Limits struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	Burst             int `json:"burst" yaml:"burst"`
}

// DefaultLimits applies to models with no explicit entry.
var DefaultLimits = Limits{RequestsPerMinute: 300, Burst: 5}

// RateLimiter hands out one token bucket per model name.
type RateLimiter struct {
	limits   map[string]Limits
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a rate limiter. limits may be nil; models without an
// entry fall back to DefaultLimits.
func NewRateLimiter(limits map[string]Limits) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(model string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[model]; ok {
		return limiter
	}

	lim, ok := rl.limits[model]
	if !ok || lim.RequestsPerMinute <= 0 {
		lim = DefaultLimits
	}
	burst := lim.Burst
	if burst <= 0 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(float64(lim.RequestsPerMinute)/60.0), burst)
	rl.limiters[model] = limiter
	return limiter
}

// Wait blocks until the model's bucket admits one request or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context, model string) error {
	if err := rl.limiterFor(model).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// Allow reports whether one request is admitted without waiting. The token is
// consumed when admitted.
func (rl *RateLimiter) Allow(model string) bool {
	return rl.limiterFor(model).Allow()
}

// Reset drops the model's bucket so the next call rebuilds it from limits.
func (rl *RateLimiter) Reset(model string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, model)
}
