package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(), fastConfig(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || attempts != 3 {
		t.Errorf("result = %q after %d attempts", result, attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := RetryWithResult(context.Background(), fastConfig(), func() (int, error) {
		attempts++
		return 0, errors.New("always fails")
	})
	if err == nil || err.Error() != "always fails" {
		t.Errorf("err = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryNonRetryableStopsImmediately(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryableMatch = []string{"429", "rate limit"}

	attempts := 0
	_, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		attempts++
		return 0, errors.New("invalid api key")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for non-retryable error", attempts)
	}
}

func TestRetryMatchIsCaseInsensitive(t *testing.T) {
	cfg := RateLimitRetryConfig()

	retryable := []error{
		errors.New("HTTP 429 Too Many Requests"),
		errors.New("Rate Limit exceeded"),
		errors.New("model is OVERLOADED, try later"),
		errors.New("RESOURCE EXHAUSTED: quota"),
		errors.New("upstream returned 503"),
	}
	for _, err := range retryable {
		if !cfg.IsRetryable(err) {
			t.Errorf("IsRetryable(%v) = false, want true", err)
		}
	}

	if cfg.IsRetryable(errors.New("bad request: image too large")) {
		t.Error("unrelated errors must not be retryable under the rate-limit config")
	}
	if cfg.IsRetryable(nil) {
		t.Error("nil error is never retryable")
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := RetryWithResult(ctx, fastConfig(), func() (int, error) {
		attempts++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 after cancellation", attempts)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{10, 30 * time.Second}, // capped
	}
	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, time.Second, 30*time.Second, 2.0)
		if got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
