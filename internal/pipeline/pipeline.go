// Package pipeline runs the full per-symbol analysis pass: capture,
// multi-provider analysis, consolidation, reporting, persistence, and
// alert delivery.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chartwatch/internal/analysis"
	"chartwatch/internal/capture"
	"chartwatch/internal/config"
	"chartwatch/internal/consolidate"
	"chartwatch/internal/logging"
	"chartwatch/internal/models"
	"chartwatch/internal/notify"
	"chartwatch/internal/report"
	"chartwatch/internal/security"
	"chartwatch/internal/store"
)

// Pipeline wires the stages together. Store and notifier are optional;
// a nil store skips persistence and a nil notifier skips delivery.
type Pipeline struct {
	cfg          *config.Config
	capture      *capture.Service
	analyzer     *analysis.Analyzer
	consolidator *consolidate.Service
	reports      *report.Writer
	store        store.DataStore
	notifier     notify.Notifier
	channels     []string
	logger       zerolog.Logger
}

// New creates a pipeline from pre-built stages.
func New(
	cfg *config.Config,
	cap *capture.Service,
	analyzer *analysis.Analyzer,
	consolidator *consolidate.Service,
	reports *report.Writer,
	dataStore store.DataStore,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *Pipeline {
	p := &Pipeline{
		cfg:          cfg,
		capture:      cap,
		analyzer:     analyzer,
		consolidator: consolidator,
		reports:      reports,
		store:        dataStore,
		notifier:     notifier,
		logger:       logger,
	}
	if mn, ok := notifier.(*notify.MultiNotifier); ok {
		p.channels = mn.ChannelNames()
	}
	return p
}

// Options control a single pipeline pass.
type Options struct {
	// SkipCapture analyzes screenshots already on disk instead of
	// capturing fresh ones.
	SkipCapture bool
	// SkipNotify suppresses alert delivery (dry run).
	SkipNotify bool
}

// RunSymbol executes one full analysis pass for a symbol.
func (p *Pipeline) RunSymbol(ctx context.Context, symbol string, opts Options) (*models.Run, error) {
	symbol = security.SanitizeSymbol(symbol)
	if err := security.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	logger := logging.WithSymbol(p.logger, symbol)
	started := time.Now()

	views := p.cfg.EnabledViews()

	var cap *models.CaptureResult
	var err error
	if opts.SkipCapture {
		cap = p.capture.ExistingScreenshots(symbol, views)
		logger.Info().Int("screenshots", len(cap.Screenshots)).Msg("Using existing screenshots")
	} else {
		cap, err = p.capture.CaptureSymbol(ctx, symbol, views)
		if err != nil {
			return nil, fmt.Errorf("capturing %s: %w", symbol, err)
		}
	}

	prior := p.priorAnalysis(ctx, symbol)

	results, err := p.analyzer.AnalyzeSymbol(ctx, analysis.Input{
		Symbol:        symbol,
		Capture:       cap,
		PriorAnalysis: prior,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", symbol, err)
	}

	outcome := p.consolidator.Consolidate(ctx, symbol, results)

	combined, err := p.reports.Write(report.Input{
		Symbol:      symbol,
		OutputDir:   p.capture.SymbolDir(symbol),
		Screenshots: cap.Screenshots,
		Results:     results,
		Decision:    outcome.Decision,
		Consensus:   outcome.Consensus,
		Alerts:      outcome.Alerts,
		GeneratedAt: started,
	})
	if err != nil {
		return nil, fmt.Errorf("writing reports for %s: %w", symbol, err)
	}

	run := &models.Run{
		ID:           runID(symbol, started),
		Symbol:       symbol,
		Timestamp:    started,
		Results:      results,
		Decision:     outcome.Decision,
		CombinedText: combined,
		Consensus:    outcome.Consensus,
	}

	if outcome.Consensus.HasChanges && !opts.SkipNotify && p.notifier != nil {
		p.deliverAlert(ctx, run, outcome, combined)
	}

	if p.store != nil {
		if err := p.store.SaveRun(ctx, run); err != nil {
			logger.Error().Err(err).Msg("Failed to persist run")
		}
	}

	logging.LogAlert(logger, symbol, string(outcome.Consensus.AlertLevel),
		outcome.Consensus.AvgProbability, run.AlertSent)
	logger.Info().
		Dur("duration", time.Since(started)).
		Int("providers", len(results)).
		Bool("alert", outcome.Consensus.HasChanges).
		Msg("Analysis pass complete")

	return run, nil
}

// priorAnalysis seeds the trend evaluation with the previous pass. The
// stored run record wins over the on-disk report.
func (p *Pipeline) priorAnalysis(ctx context.Context, symbol string) string {
	if p.store != nil {
		if latest, err := p.store.GetLatestRun(ctx, symbol); err == nil && latest != nil {
			if prior := report.ExtractPriorFromText(latest.CombinedText); prior != "" {
				return prior
			}
		}
	}
	return report.ExtractPriorAnalysis(p.capture.SymbolDir(symbol))
}

func (p *Pipeline) deliverAlert(ctx context.Context, run *models.Run, outcome *consolidate.Outcome, combined string) {
	logger := logging.WithSymbol(p.logger, run.Symbol)

	change := representativeChange(run.Results, outcome)

	if err := p.notifier.SendTrendAlert(ctx, run.Symbol, outcome.Consensus, change, combined); err != nil {
		logger.Error().Err(err).Msg("Failed to deliver trend alert")
	} else {
		run.AlertSent = true
	}

	if p.store != nil {
		event := &models.AlertEvent{
			ID:          runID(run.Symbol, run.Timestamp) + "-alert",
			Symbol:      run.Symbol,
			Timestamp:   time.Now(),
			Level:       outcome.Consensus.AlertLevel,
			Probability: outcome.Consensus.AvgProbability,
			Summary:     outcome.Consensus.Summary,
			Channels:    p.channels,
			Sent:        run.AlertSent,
		}
		if err := p.store.SaveAlertEvent(ctx, event); err != nil {
			logger.Error().Err(err).Msg("Failed to persist alert event")
		}
	}
}

// representativeChange picks the provider evaluation with the highest
// probability among those that flagged changes, so the alert carries
// the strongest reasoning and key-change list.
func representativeChange(results []models.ProviderResult, outcome *consolidate.Outcome) *models.ChangeAnalysis {
	var best *models.ChangeAnalysis
	for _, r := range results {
		if r.Change == nil || !r.Change.HasChanges {
			continue
		}
		if best == nil || r.Change.TrendChangeProb > best.TrendChangeProb {
			best = r.Change
		}
	}
	if best != nil {
		return best
	}
	c := outcome.Consensus
	return &models.ChangeAnalysis{
		HasChanges:      c.HasChanges,
		AlertLevel:      c.AlertLevel,
		TrendChangeProb: c.AvgProbability,
		ConfidenceLevel: c.ConfidenceLevel,
		Summary:         c.Summary,
	}
}

func runID(symbol string, t time.Time) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(symbol), t.Format("20060102T150405"))
}
