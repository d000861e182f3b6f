package limiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds circuit breaker settings for provider calls.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests"`
	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// MinRequests is the minimum window size before the failure rate counts.
	MinRequests uint32 `json:"min_requests" yaml:"min_requests"`
	// FailureRate is the fraction of failed requests that trips the breaker.
	FailureRate float64 `json:"failure_rate" yaml:"failure_rate"`
}

// DefaultBreakerConfig trips after half the calls in a window fail.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		MinRequests: 5,
		FailureRate: 0.5,
	}
}

// CircuitBreakerSet keeps one breaker per model, so a misbehaving judge model
// cannot block generation calls to a healthy one.
type CircuitBreakerSet struct {
	cfg      BreakerConfig
	logger   *zap.Logger
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.Mutex
}

// NewCircuitBreakerSet creates a breaker set. A nil logger disables state
// change logging.
func NewCircuitBreakerSet(cfg BreakerConfig, logger *zap.Logger) *CircuitBreakerSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreakerSet{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *CircuitBreakerSet) breakerFor(model string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if breaker, ok := s.breakers[model]; ok {
		return breaker
	}

	cfg := s.cfg
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("model-%s", model),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= cfg.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	s.breakers[model] = breaker
	return breaker
}

// Execute runs fn through the model's breaker. The function's own error is
// returned unwrapped so callers can classify it for retry.
func (s *CircuitBreakerSet) Execute(model string, fn func() (interface{}, error)) (interface{}, error) {
	return s.breakerFor(model).Execute(fn)
}

// State returns the model's current breaker state.
func (s *CircuitBreakerSet) State(model string) gobreaker.State {
	return s.breakerFor(model).State()
}

// Reset drops the model's breaker so the next call starts closed.
func (s *CircuitBreakerSet) Reset(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.breakers, model)
}
