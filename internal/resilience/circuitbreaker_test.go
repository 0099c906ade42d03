package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() (string, error) { return "", errBoom }
func succeeding() (string, error) { return "ok", nil }

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := ExecuteWithResult(cb, ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN after threshold failures", cb.State())
	}

	// Open circuit rejects without calling the function.
	called := false
	_, err := ExecuteWithResult(cb, ctx, func() (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("function must not run while the circuit is open")
	}
}

func TestCircuitRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Millisecond,
	})
	ctx := context.Background()

	if _, err := ExecuteWithResult(cb, ctx, failing); !errors.Is(err, errBoom) {
		t.Fatal(err)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	time.Sleep(5 * time.Millisecond)

	// The probe succeeds and closes the circuit.
	result, err := ExecuteWithResult(cb, ctx, succeeding)
	if err != nil || result != "ok" {
		t.Fatalf("probe: %q, %v", result, err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED after successful probe", cb.State())
	}
}

func TestCircuitReopensOnFailedProbe(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Millisecond,
	})
	ctx := context.Background()

	ExecuteWithResult(cb, ctx, failing)
	time.Sleep(5 * time.Millisecond)

	// The failed probe sends the circuit straight back to open.
	ExecuteWithResult(cb, ctx, failing)
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s, want OPEN after failed probe", cb.State())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})
	ctx := context.Background()

	ExecuteWithResult(cb, ctx, failing)
	ExecuteWithResult(cb, ctx, succeeding)
	ExecuteWithResult(cb, ctx, failing)

	if cb.State() != CircuitClosed {
		t.Errorf("state = %s, want CLOSED: success must reset the streak", cb.State())
	}
}

func TestCancelledContextCountsAsFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Cooldown:         time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecuteWithResult(cb, ctx, succeeding)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if cb.State() != CircuitOpen {
		t.Errorf("state = %s, want OPEN", cb.State())
	}
}

func TestStats(t *testing.T) {
	cb := NewCircuitBreaker("claude", DefaultConfig())
	ctx := context.Background()

	ExecuteWithResult(cb, ctx, succeeding)
	ExecuteWithResult(cb, ctx, failing)

	stats := cb.Stats()
	if stats.Name != "claude" {
		t.Errorf("Name = %s", stats.Name)
	}
	if stats.TotalRequests != 2 || stats.TotalSuccesses != 1 || stats.TotalFailures != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
