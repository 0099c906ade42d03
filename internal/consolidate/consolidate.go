// Package consolidate merges the individual provider analyses into a
// single consensus, a consolidated trading decision, and the email
// alert decision.
package consolidate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"chartwatch/internal/models"
	"chartwatch/internal/prompts"
	"chartwatch/internal/providers"
)

// Service performs consolidation for one run.
type Service struct {
	consolidator providers.Consolidator
	logger       zerolog.Logger
}

// NewService creates a consolidation service. consolidator may be nil;
// the deterministic local vote then produces the decision text.
func NewService(consolidator providers.Consolidator, logger zerolog.Logger) *Service {
	return &Service{consolidator: consolidator, logger: logger}
}

// Outcome is the result of consolidating one run.
type Outcome struct {
	Decision  string
	Consensus *models.Consensus
	Alerts    []models.ProviderAlert
}

// Consolidate computes the provider consensus and the consolidated
// decision text. The consolidation model's explicit email decision
// overrides the provider consensus.
func (s *Service) Consolidate(ctx context.Context, symbol string, results []models.ProviderResult) *Outcome {
	alerts := CollectAlerts(results)
	avg, min, max := ProbabilityStats(results)

	decision, consolidatorRan := s.decisionText(ctx, symbol, results, avg, alerts)

	emailRequested := false
	if consolidatorRan {
		emailRequested = ParseEmailDecision(decision)
	}

	consensus := buildConsensus(results, alerts, avg, min, max, emailRequested)

	return &Outcome{
		Decision:  decision,
		Consensus: consensus,
		Alerts:    alerts,
	}
}

func (s *Service) decisionText(ctx context.Context, symbol string, results []models.ProviderResult, avg float64, alerts []models.ProviderAlert) (string, bool) {
	if s.consolidator == nil {
		return LocalDecision(symbol, results, avg, alerts), false
	}

	prompt, err := prompts.BuildConsolidationPrompt(symbol, results)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Consolidation prompt failed, using local vote")
		return LocalDecision(symbol, results, avg, alerts), false
	}

	decision, err := s.consolidator.Consolidate(ctx, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).
			Msg("Consolidation model failed, using local vote")
		return LocalDecision(symbol, results, avg, alerts), false
	}
	return decision, true
}

// CollectAlerts returns the alerts from providers whose result flagged
// significant changes.
func CollectAlerts(results []models.ProviderResult) []models.ProviderAlert {
	var alerts []models.ProviderAlert
	for _, r := range results {
		if r.Change == nil || !r.Change.HasChanges {
			continue
		}
		alerts = append(alerts, models.ProviderAlert{
			Provider:    r.Provider,
			Level:       r.Change.AlertLevel,
			Probability: r.Change.TrendChangeProb,
			Summary:     r.Change.Summary,
		})
	}
	return alerts
}

// ProbabilityStats returns the average, minimum, and maximum trend
// change probability across providers. Zero probabilities count; only
// providers without a parsed result are excluded.
func ProbabilityStats(results []models.ProviderResult) (avg, min, max float64) {
	var probs []float64
	for _, r := range results {
		if r.Change != nil {
			probs = append(probs, r.Change.TrendChangeProb)
		}
	}
	if len(probs) == 0 {
		return 0, 0, 0
	}

	min, max = probs[0], probs[0]
	var sum float64
	for _, p := range probs {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return sum / float64(len(probs)), min, max
}

func buildConsensus(results []models.ProviderResult, alerts []models.ProviderAlert, avg, min, max float64, emailRequested bool) *models.Consensus {
	c := &models.Consensus{
		AvgProbability: avg,
		MinProbability: min,
		MaxProbability: max,
		ProviderCount:  len(results),
	}

	agreement := 0.0
	if len(results) > 0 {
		agreement = float64(len(alerts)) / float64(len(results)) * 100
	}

	switch {
	case emailRequested:
		// The consolidation model's decision overrides the provider
		// consensus.
		c.HasChanges = true
		c.ConsolidatorDecided = true
		c.ConfidenceLevel = "high"
		c.ProviderAgreement = agreement
		if len(alerts) > 0 {
			c.AlertLevel, c.Summary = maxAlert(alerts)
		} else {
			if avg >= 50 {
				c.AlertLevel = models.AlertMedium
			} else {
				c.AlertLevel = models.AlertLow
			}
			c.Summary = fmt.Sprintf("Consolidation model requested alert (avg probability %.1f%%)", avg)
		}

	case len(alerts) > 0:
		c.HasChanges = true
		c.ConfidenceLevel = "high"
		c.ProviderAgreement = agreement
		c.AlertLevel, c.Summary = maxAlert(alerts)

	default:
		c.HasChanges = false
		c.AlertLevel = models.AlertLow
		c.ConfidenceLevel = "medium"
		c.ProviderAgreement = 0
		c.Summary = "No significant changes detected"
	}

	return c
}

// maxAlert returns the highest-ranked alert's level and summary.
func maxAlert(alerts []models.ProviderAlert) (models.AlertLevel, string) {
	best := alerts[0]
	for _, a := range alerts[1:] {
		if a.Level.Rank() > best.Level.Rank() {
			best = a
		}
	}
	return best.Level, best.Summary
}
