package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chartwatch/internal/config"
)

func scheduleConfig() config.ScheduleConfig {
	return config.ScheduleConfig{
		IntervalSeconds: 3600,
		Timezone:        "US/Eastern",
		MarketOpen:      "09:30",
		MarketClose:     "16:00",
		RecheckMinutes:  5,
	}
}

func noopRun(ctx context.Context) error { return nil }

func TestNew(t *testing.T) {
	s, err := New(scheduleConfig(), noopRun, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", s.interval)
	}
	if s.recheck != 5*time.Minute {
		t.Errorf("recheck = %v, want 5m", s.recheck)
	}
}

func TestNewDefaultsRecheck(t *testing.T) {
	cfg := scheduleConfig()
	cfg.RecheckMinutes = 0

	s, err := New(cfg, noopRun, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.recheck != 5*time.Minute {
		t.Errorf("recheck = %v, want the 5m default", s.recheck)
	}
}

func TestNewRejectsBadWindow(t *testing.T) {
	cfg := scheduleConfig()
	cfg.Timezone = "Mars/Olympus"
	if _, err := New(cfg, noopRun, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown timezone")
	}

	cfg = scheduleConfig()
	cfg.MarketOpen = "16:00"
	cfg.MarketClose = "09:30"
	if _, err := New(cfg, noopRun, zerolog.Nop()); err == nil {
		t.Error("expected error for inverted market window")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	called := false
	s, err := New(scheduleConfig(), func(ctx context.Context) error {
		called = true
		return nil
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if called {
		t.Error("no pass must run on a cancelled context")
	}
}

func TestRunPassContainsPanic(t *testing.T) {
	s, err := New(scheduleConfig(), func(ctx context.Context) error {
		panic("chart service gone")
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	passErr := s.runPass(context.Background())
	if passErr == nil {
		t.Fatal("panicking pass must surface as an error, not a panic")
	}
	if !strings.Contains(passErr.Error(), "chart service gone") {
		t.Errorf("err = %v, want the panic value in the message", passErr)
	}
}

func TestRunPropagatesCancelDuringWait(t *testing.T) {
	// A short deadline must unblock the scheduler whether it is waiting
	// out a closed market or sitting between passes.
	s, err := New(scheduleConfig(), noopRun, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Run = %v, want context.DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context deadline")
	}
}
