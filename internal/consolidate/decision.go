package consolidate

import (
	"fmt"
	"strings"

	"chartwatch/internal/models"
)

// Explicit decision patterns checked before any keyword heuristics.
var (
	yesPatterns = []string{
		"EMAIL ALERT DECISION: YES",
		"EMAIL ALERT DECISION:YES",
		"SEND EMAIL ALERT",
		"EMAIL: YES",
		"ALERT: YES",
		"RECOMMENDATION: SEND EMAIL",
		"SHOULD SEND EMAIL",
		"ALERT RECOMMENDED",
	}

	noPatterns = []string{
		"EMAIL ALERT DECISION: NO",
		"EMAIL ALERT DECISION:NO",
		"DO NOT SEND EMAIL",
		"DON'T SEND EMAIL",
		"EMAIL: NO",
		"ALERT: NO",
		"NO EMAIL NEEDED",
		"NOT ALERT",
		"NO ALERT NEEDED",
	}

	bullishKeywords = []string{
		"BUY", "STRONG BUY", "BULLISH", "UPTREND", "SIGNAL", "ALERT",
		"OPPORTUNITY", "REVERSAL UP", "BREAKOUT",
	}

	bearishKeywords = []string{
		"SELL", "STRONG SELL", "BEARISH", "DOWNTREND", "WARNING",
		"CAUTION", "REVERSAL DOWN", "BREAKDOWN",
	}
)

// ParseEmailDecision extracts the email alert decision from the
// consolidated decision text. Explicit YES/NO statements win; otherwise
// keyword heuristics decide, defaulting to no.
func ParseEmailDecision(decision string) bool {
	if decision == "" {
		return false
	}

	text := strings.ToUpper(decision)

	for _, p := range yesPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	for _, p := range noPatterns {
		if strings.Contains(text, p) {
			return false
		}
	}

	bullish := 0
	for _, kw := range bullishKeywords {
		if strings.Contains(text, kw) {
			bullish++
		}
	}
	bearish := 0
	for _, kw := range bearishKeywords {
		if strings.Contains(text, kw) {
			bearish++
		}
	}

	if (strings.Contains(text, "ALERT") || strings.Contains(text, "SIGNAL")) && bullish > bearish {
		return true
	}
	if (strings.Contains(text, "WARNING") || strings.Contains(text, "CAUTION")) && bearish > 0 {
		return true
	}

	return false
}

// Vote maps one provider alert to a recommendation: high alert or
// probability above 70% votes BUY, low alert or probability below 30%
// votes SELL, everything else HOLD. Probabilities are percentages.
func Vote(level models.AlertLevel, probability float64) models.Recommendation {
	p := probability / 100
	switch {
	case level == models.AlertHigh || p > 0.7:
		return models.Buy
	case level == models.AlertLow || p < 0.3:
		return models.Sell
	default:
		return models.Hold
	}
}

// LocalDecision produces the deterministic fallback decision text when
// the consolidation model is unavailable. Majority vote wins; ties hold.
func LocalDecision(symbol string, results []models.ProviderResult, avgProbability float64, alerts []models.ProviderAlert) string {
	if len(results) == 0 {
		return "\n=== CONSOLIDATED TRADING DECISION ===\nNo provider analyses available.\n"
	}

	var recommendations []models.Recommendation
	if len(alerts) > 0 {
		for _, alert := range alerts {
			recommendations = append(recommendations, Vote(alert.Level, alert.Probability))
		}
	} else {
		for _, r := range results {
			if r.Change != nil && r.Change.HasChanges {
				recommendations = append(recommendations, Vote(r.Change.AlertLevel, r.Change.TrendChangeProb))
			} else {
				recommendations = append(recommendations, models.Hold)
			}
		}
	}
	for len(recommendations) < len(results) {
		recommendations = append(recommendations, models.Hold)
	}

	var buy, sell, hold int
	for _, rec := range recommendations {
		switch rec {
		case models.Buy:
			buy++
		case models.Sell:
			sell++
		default:
			hold++
		}
	}

	total := len(results)
	decision := models.Hold
	strength := hold
	switch {
	case buy > sell && buy > hold:
		decision = models.Buy
		strength = buy
	case sell > buy && sell > hold:
		decision = models.Sell
		strength = sell
	}

	divider := strings.Repeat("=", 50)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", divider)
	fmt.Fprintf(&b, "LOCAL CONSOLIDATED TRADING DECISION FOR %s\n", symbol)
	fmt.Fprintf(&b, "%s\n\n", divider)
	fmt.Fprintf(&b, "TRADING DECISION: %s\n", decision)
	fmt.Fprintf(&b, "Provider Consensus: %d/%d providers agree\n", strength, total)
	fmt.Fprintf(&b, "Average Probability: %.1f%%\n\n", avgProbability)

	b.WriteString("TREND CHANGE EVALUATION:\n")
	switch {
	case avgProbability > 60:
		fmt.Fprintf(&b, "High probability (%.1f%%) of significant trend change\n", avgProbability)
	case avgProbability > 40:
		fmt.Fprintf(&b, "Moderate probability (%.1f%%) of trend change\n", avgProbability)
	default:
		fmt.Fprintf(&b, "Low probability (%.1f%%) of trend change\n", avgProbability)
	}

	b.WriteString("\nProvider Breakdown:\n")
	for i, r := range results {
		rec := models.Hold
		if i < len(recommendations) {
			rec = recommendations[i]
		}
		conf := avgProbability
		if r.Change != nil {
			conf = r.Change.TrendChangeProb
		}
		fmt.Fprintf(&b, "- %s: %s (probability: %.1f%%)\n", r.Provider, rec, conf)
	}
	fmt.Fprintf(&b, "\n%s\n", divider)

	return b.String()
}
