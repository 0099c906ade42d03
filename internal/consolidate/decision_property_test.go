package consolidate

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"chartwatch/internal/models"
)

// Property: Vote maps every (level, probability) pair to exactly one of
// BUY, SELL, HOLD, and high-probability high alerts always vote BUY
// while low-probability low alerts always vote SELL.
func TestProperty_VoteTotalAndMonotone(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	levels := []models.AlertLevel{
		models.AlertInfo, models.AlertLow, models.AlertMedium,
		models.AlertHigh, models.AlertCritical,
	}

	properties.Property("Vote always returns a valid recommendation", prop.ForAll(
		func(levelIdx int, probability float64) bool {
			level := levels[levelIdx%len(levels)]
			rec := Vote(level, probability)
			return rec == models.Buy || rec == models.Sell || rec == models.Hold
		},
		gen.IntRange(0, len(levels)-1),
		gen.Float64Range(0, 100),
	))

	properties.Property("high alerts vote BUY regardless of probability", prop.ForAll(
		func(probability float64) bool {
			return Vote(models.AlertHigh, probability) == models.Buy
		},
		gen.Float64Range(0, 100),
	))

	properties.Property("probability above 70% votes BUY for any level", prop.ForAll(
		func(levelIdx int, probability float64) bool {
			level := levels[levelIdx%len(levels)]
			return Vote(level, probability) == models.Buy
		},
		gen.IntRange(0, len(levels)-1),
		gen.Float64Range(70.01, 100),
	))

	properties.TestingRun(t)
}

// Property: LocalDecision always emits the decision header, names every
// provider, and pads the recommendation list to the provider count.
func TestProperty_LocalDecisionStructure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	providerNames := []string{"claude", "google", "openai", "perplexity", "grok"}

	properties.Property("decision text names every provider", prop.ForAll(
		func(count int, avg float64, hasChanges bool) bool {
			var results []models.ProviderResult
			for i := 0; i < count; i++ {
				results = append(results, models.ProviderResult{
					Provider: providerNames[i%len(providerNames)],
					Change: &models.ChangeAnalysis{
						HasChanges:      hasChanges && i == 0,
						AlertLevel:      models.AlertMedium,
						TrendChangeProb: avg,
					},
				})
			}
			alerts := CollectAlerts(results)

			decision := LocalDecision("SPY", results, avg, alerts)

			if !strings.Contains(decision, "LOCAL CONSOLIDATED TRADING DECISION FOR SPY") {
				return false
			}
			for i := 0; i < count; i++ {
				if !strings.Contains(decision, "- "+providerNames[i%len(providerNames)]+":") {
					return false
				}
			}
			return strings.Contains(decision, "TRADING DECISION:")
		},
		gen.IntRange(1, 5),
		gen.Float64Range(0, 100),
		gen.Bool(),
	))

	properties.Property("empty results produce the no-providers message", prop.ForAll(
		func(avg float64) bool {
			decision := LocalDecision("SPY", nil, avg, nil)
			return strings.Contains(decision, "No provider analyses available")
		},
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

// Property: the consensus invariants hold for any mix of provider
// results: agreement is alerts/results*100, HasChanges follows alerts
// unless the consolidator overrides, and the level is the alert max.
func TestProperty_ConsensusInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	levels := []models.AlertLevel{
		models.AlertLow, models.AlertMedium, models.AlertHigh, models.AlertCritical,
	}

	properties.Property("consensus invariants", prop.ForAll(
		func(flags []bool, levelIdx int, emailRequested bool) bool {
			var results []models.ProviderResult
			for i, flagged := range flags {
				results = append(results, models.ProviderResult{
					Provider: "p",
					Change: &models.ChangeAnalysis{
						HasChanges:      flagged,
						AlertLevel:      levels[(levelIdx+i)%len(levels)],
						TrendChangeProb: float64(i * 10),
					},
				})
			}
			alerts := CollectAlerts(results)
			avg, min, max := ProbabilityStats(results)

			c := buildConsensus(results, alerts, avg, min, max, emailRequested)

			if emailRequested && (!c.HasChanges || !c.ConsolidatorDecided) {
				return false
			}
			if !emailRequested && c.HasChanges != (len(alerts) > 0) {
				return false
			}
			if len(alerts) > 0 {
				wantAgreement := float64(len(alerts)) / float64(len(results)) * 100
				if c.ProviderAgreement < wantAgreement-0.01 || c.ProviderAgreement > wantAgreement+0.01 {
					return false
				}
				maxLevel, _ := maxAlert(alerts)
				if c.AlertLevel != maxLevel {
					return false
				}
			}
			return c.ProviderCount == len(results)
		},
		gen.SliceOfN(4, gen.Bool()),
		gen.IntRange(0, len(levels)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
