// Package scheduler drives repeated analysis passes during market
// hours.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"chartwatch/internal/config"
	"chartwatch/pkg/utils"
)

// RunFunc executes one analysis pass over all watched symbols.
type RunFunc func(ctx context.Context) error

// Scheduler runs the pipeline on an interval while the market is open
// and idles outside market hours.
type Scheduler struct {
	window   *utils.MarketWindow
	interval time.Duration
	recheck  time.Duration
	run      RunFunc
	logger   zerolog.Logger
}

// New creates a scheduler from the schedule configuration.
func New(cfg config.ScheduleConfig, run RunFunc, logger zerolog.Logger) (*Scheduler, error) {
	window, err := utils.NewMarketWindow(cfg.Timezone, cfg.MarketOpen, cfg.MarketClose)
	if err != nil {
		return nil, err
	}

	recheck := time.Duration(cfg.RecheckMinutes) * time.Minute
	if recheck <= 0 {
		recheck = 5 * time.Minute
	}

	return &Scheduler{
		window:   window,
		interval: cfg.Interval(),
		recheck:  recheck,
		run:      run,
		logger:   logger,
	}, nil
}

// Run blocks until the context is cancelled, executing passes while the
// market is open. A failed pass is logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Str("open", s.window.OpenString()).
		Str("close", s.window.CloseString()).
		Msg("Scheduler started")

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info().Int("runs", runs).Msg("Scheduler stopped")
			return err
		}

		if !s.window.IsOpen() {
			next := s.window.NextOpen(time.Now())
			s.logger.Info().
				Time("next_open", next).
				Dur("recheck", s.recheck).
				Msg("Market closed, waiting")
			if err := sleep(ctx, s.recheck); err != nil {
				return err
			}
			continue
		}

		runs++
		s.logger.Info().Int("run", runs).Msg("Starting analysis pass")
		if err := s.runPass(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Error().Err(err).Int("run", runs).Msg("Analysis pass failed")
		}

		wait := s.interval
		if remaining := s.window.TimeUntilClose(time.Now()); remaining > 0 && remaining < wait {
			// No point sleeping past the close.
			wait = remaining + time.Minute
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// runPass executes one pass, converting a panic into an error so a bad
// pass cannot kill the watch loop.
func (s *Scheduler) runPass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis pass panicked: %v", r)
		}
	}()
	return s.run(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
