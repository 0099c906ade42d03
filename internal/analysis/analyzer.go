package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "chartwatch/internal/errors"
	"chartwatch/internal/logging"
	"chartwatch/internal/models"
	"chartwatch/internal/prompts"
	"chartwatch/internal/providers"
)

// Analyzer fans one symbol's screenshots out to every enabled provider
// and collects the parsed results.
type Analyzer struct {
	registry       *providers.Registry
	emailThreshold float64
	logger         zerolog.Logger
}

// NewAnalyzer creates an analyzer over a provider registry.
func NewAnalyzer(registry *providers.Registry, emailThreshold float64, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		registry:       registry,
		emailThreshold: emailThreshold,
		logger:         logger,
	}
}

// Input describes one analysis pass.
type Input struct {
	Symbol        string
	Capture       *models.CaptureResult
	PriorAnalysis string
}

// AnalyzeSymbol runs every enabled provider against the symbol's
// screenshots in parallel. Individual provider failures are logged and
// dropped; the pass fails only when no provider succeeds.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, input Input) ([]models.ProviderResult, error) {
	provs := a.registry.Providers()
	if len(provs) == 0 {
		return nil, apperrors.ErrNoProviders
	}
	if input.Capture == nil || len(input.Capture.Screenshots) == 0 {
		return nil, apperrors.ErrNoScreenshots
	}

	views := make([]models.ChartView, 0, len(input.Capture.Screenshots))
	paths := make([]string, 0, len(input.Capture.Screenshots))
	for _, shot := range input.Capture.Screenshots {
		views = append(views, shot.View)
		paths = append(paths, shot.Path)
	}

	images, err := providers.EncodeImages(paths)
	if err != nil {
		return nil, fmt.Errorf("encoding screenshots: %w", err)
	}

	prompt, err := prompts.BuildAnalysisPrompt(prompts.AnalysisRequest{
		Symbol:         input.Symbol,
		Views:          views,
		PriorAnalysis:  input.PriorAnalysis,
		EmailThreshold: a.emailThreshold,
	})
	if err != nil {
		return nil, err
	}

	req := providers.Request{
		Symbol: input.Symbol,
		Prompt: prompt,
		Images: images,
	}

	type providerOutcome struct {
		result models.ProviderResult
		err    error
		name   string
	}

	resultChan := make(chan providerOutcome, len(provs))
	var wg sync.WaitGroup

	for _, p := range provs {
		wg.Add(1)
		go func(p providers.Provider) {
			defer wg.Done()

			start := time.Now()
			raw, err := p.AnalyzeCharts(ctx, req)
			logging.LogAPICall(a.logger, p.Name(), "analyze charts", time.Since(start), err)
			if err != nil {
				resultChan <- providerOutcome{name: p.Name(), err: err}
				return
			}

			analysisText, change := ParseResponse(raw, a.emailThreshold)
			resultChan <- providerOutcome{
				name: p.Name(),
				result: models.ProviderResult{
					Provider: p.Name(),
					Analysis: analysisText,
					Change:   change,
				},
			}
		}(p)
	}

	wg.Wait()
	close(resultChan)

	var results []models.ProviderResult
	for outcome := range resultChan {
		if outcome.err != nil {
			a.logger.Warn().Err(outcome.err).
				Str("provider", outcome.name).
				Str("symbol", input.Symbol).
				Msg("Provider analysis failed")
			continue
		}
		results = append(results, outcome.result)
		logging.LogAnalysis(a.logger, input.Symbol, outcome.result.Provider,
			outcome.result.Change.TrendChangeProb, string(outcome.result.Change.AlertLevel))
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("symbol %s: %w", input.Symbol, apperrors.ErrAllProvidersFail)
	}

	OrderResults(results)
	return results, nil
}

// providerRank fixes the presentation order: claude, perplexity, google,
// then everything else alphabetically.
func providerRank(name string) int {
	switch name {
	case "claude":
		return 0
	case "perplexity":
		return 1
	case "google":
		return 2
	default:
		return 3
	}
}

// OrderResults sorts provider results into the canonical report order.
func OrderResults(results []models.ProviderResult) {
	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := providerRank(results[i].Provider), providerRank(results[j].Provider)
		if ri != rj {
			return ri < rj
		}
		return results[i].Provider < results[j].Provider
	})
}
