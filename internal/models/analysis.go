package models

import (
	"strings"
	"time"
)

// AlertLevel represents the severity of a detected trend change.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// Rank returns a numeric rank for comparing alert levels.
// Unknown levels rank below every known level.
func (l AlertLevel) Rank() int {
	switch AlertLevel(strings.ToLower(string(l))) {
	case AlertInfo:
		return 1
	case AlertLow:
		return 2
	case AlertMedium:
		return 3
	case AlertHigh:
		return 4
	case AlertCritical:
		return 5
	default:
		return 0
	}
}

// ChangeAnalysis is the structured trend evaluation parsed from a provider
// response. It is loosely typed on purpose: providers return free text and
// the JSON block is best-effort.
type ChangeAnalysis struct {
	HasChanges           bool       `json:"has_changes"`
	ChangeType           string     `json:"change_type,omitempty"`
	AlertLevel           AlertLevel `json:"alert_level"`
	TrendChangeProb      float64    `json:"trend_change_probability"`
	ConfidenceLevel      string     `json:"confidence_level"`
	Summary              string     `json:"summary"`
	KeyChanges           []string   `json:"key_changes,omitempty"`
	ProbabilityReasoning string     `json:"probability_reasoning,omitempty"`
}

// ProviderResult holds one provider's analysis of a symbol.
type ProviderResult struct {
	Provider string
	Analysis string
	Change   *ChangeAnalysis
}

// ProviderAlert is a provider vote that flagged significant changes.
type ProviderAlert struct {
	Provider    string
	Level       AlertLevel
	Probability float64
	Summary     string
}

// Recommendation represents a trading recommendation.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// Consensus is the merged view across all providers for one run.
type Consensus struct {
	HasChanges          bool
	AlertLevel          AlertLevel
	Summary             string
	AvgProbability      float64
	MinProbability      float64
	MaxProbability      float64
	ConfidenceLevel     string
	ProviderCount       int
	ProviderAgreement   float64 // percentage of providers that flagged changes
	ConsolidatorDecided bool    // consolidation model explicitly requested the alert
}

// Run is one complete analysis pass for a symbol.
type Run struct {
	ID           string
	Symbol       string
	Timestamp    time.Time
	Results      []ProviderResult
	Decision     string // consolidated trading decision text
	CombinedText string
	Consensus    *Consensus
	AlertSent    bool
}

// AlertEvent records a delivered (or attempted) trend alert.
type AlertEvent struct {
	ID          string
	Symbol      string
	Timestamp   time.Time
	Level       AlertLevel
	Probability float64
	Summary     string
	Channels    []string
	Sent        bool
}

// RunStats aggregates run history for reporting.
type RunStats struct {
	TotalRuns      int
	AlertsSent     int
	AvgProbability float64
	ByProvider     map[string]*ProviderStats
}

// ProviderStats counts per-provider participation across runs.
type ProviderStats struct {
	Provider   string
	TotalRuns  int
	AvgProb    float64
	AlertCount int
}
