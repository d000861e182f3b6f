package limiter

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Guard runs provider calls through the full protection chain: rate limiter
// wait, then circuit breaker, then bounded retry inside the breaker window.
type Guard struct {
	rate     *RateLimiter
	breakers *CircuitBreakerSet
	retrier  *Retrier
}

// NewGuard wires the three protections together. limits may be nil.
func NewGuard(limits map[string]Limits, breaker BreakerConfig, retry RetryConfig, logger *zap.Logger) *Guard {
	return &Guard{
		rate:     NewRateLimiter(limits),
		breakers: NewCircuitBreakerSet(breaker, logger),
		retrier:  NewRetrier(retry),
	}
}

// DefaultGuard creates a guard with default settings for every model.
func DefaultGuard(logger *zap.Logger) *Guard {
	return NewGuard(nil, DefaultBreakerConfig(), DefaultRetryConfig(), logger)
}

// Call executes fn under the model's protections. The whole retried sequence
// counts as one request against the breaker.
func (g *Guard) Call(ctx context.Context, model string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := g.rate.Wait(ctx, model); err != nil {
		return nil, err
	}

	result, err := g.breakers.Execute(model, func() (interface{}, error) {
		return g.retrier.Do(ctx, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("call to %s failed: %w", model, err)
	}
	return result, nil
}

// Available reports whether the model can take a request right now. The rate
// check consumes a token when it admits.
func (g *Guard) Available(model string) bool {
	if g.breakers.State(model) == gobreaker.StateOpen {
		return false
	}
	return g.rate.Allow(model)
}

// Reset clears the model's rate bucket and breaker.
func (g *Guard) Reset(model string) {
	g.rate.Reset(model)
	g.breakers.Reset(model)
}
