package limiter

import (
	"context"
	"strings"
	"testing"
	"time"
)

func testGuard() *Guard {
	retry := DefaultRetryConfig()
	retry.BaseDelay = 5 * time.Millisecond
	retry.Jitter = false
	return NewGuard(nil, DefaultBreakerConfig(), retry, nil)
}

func TestGuardCallSuccess(t *testing.T) {
	g := testGuard()

	result, err := g.Call(context.Background(), "gen-model", func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != 42 {
		t.Errorf("Expected result 42, got %v", result)
	}
}

func TestGuardCallRetriesTransientFailure(t *testing.T) {
	g := testGuard()

	attempts := 0
	result, err := g.Call(context.Background(), "gen-model", func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts == 1 {
			return nil, NewHTTPError(500, "server error")
		}
		return "ok", nil
	})
	if err != nil {
		t.Errorf("Expected success after retry, got error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result 'ok', got %v", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestGuardCallWrapsFailureWithModel(t *testing.T) {
	g := testGuard()

	_, err := g.Call(context.Background(), "judge-model", func(ctx context.Context) (interface{}, error) {
		return nil, NewHTTPError(400, "bad request")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "call to judge-model failed") {
		t.Errorf("Expected model name in error, got %v", err)
	}
}

func TestGuardOpenBreakerFailsFast(t *testing.T) {
	g := testGuard()

	for i := 0; i < 5; i++ {
		g.Call(context.Background(), "failing-model", func(ctx context.Context) (interface{}, error) {
			return nil, NewHTTPError(400, "bad request")
		})
	}

	called := false
	_, err := g.Call(context.Background(), "failing-model", func(ctx context.Context) (interface{}, error) {
		called = true
		return "ok", nil
	})
	if err == nil {
		t.Error("Expected error while breaker is open")
	}
	if called {
		t.Error("Expected function not to run while breaker is open")
	}

	if g.Available("failing-model") {
		t.Error("Expected tripped model to be unavailable")
	}
	if !g.Available("gen-model") {
		t.Error("Expected healthy model to be available")
	}
}
