// Package analysis orchestrates multi-provider chart analysis runs and
// parses the loosely structured provider responses.
package analysis

import (
	"encoding/json"
	"strings"

	"chartwatch/internal/models"
	"chartwatch/internal/prompts"
)

// trendEvalPayload mirrors the JSON block providers are asked to emit.
// Every field is optional; missing values fall back to safe defaults.
type trendEvalPayload struct {
	HasChanges           *bool           `json:"has_changes"`
	AlertLevel           string          `json:"alert_level"`
	TrendChangeProb      json.Number     `json:"trend_change_probability"`
	ConfidenceLevel      string          `json:"confidence_level"`
	Summary              string          `json:"summary"`
	KeyChanges           []string        `json:"key_changes"`
	ProbabilityReasoning string          `json:"probability_reasoning"`
}

// ParseResponse splits a provider response into the free-text analysis
// section and the structured trend evaluation. Responses that do not
// follow the section contract, or whose JSON cannot be decoded, fall
// back to a low-alert result wrapping the raw text.
//
// alertThreshold (0-100) decides HasChanges when the provider did not
// state it explicitly.
func ParseResponse(response string, alertThreshold float64) (string, *models.ChangeAnalysis) {
	if strings.Contains(response, prompts.AnalysisMarker) &&
		strings.Contains(response, prompts.TrendEvalMarker) {

		afterAnalysis := strings.SplitN(response, prompts.AnalysisMarker, 2)[1]
		pieces := strings.SplitN(afterAnalysis, prompts.TrendEvalMarker, 2)
		analysisSection := strings.TrimSpace(pieces[0])
		trendSection := strings.TrimSpace(pieces[1])

		if change := parseTrendJSON(trendSection, alertThreshold); change != nil {
			return analysisSection, change
		}
	}

	return response, fallbackAnalysis()
}

func parseTrendJSON(section string, alertThreshold float64) *models.ChangeAnalysis {
	start := strings.Index(section, "{")
	end := strings.LastIndex(section, "}")
	if start == -1 || end <= start {
		return nil
	}

	var payload trendEvalPayload
	if err := json.Unmarshal([]byte(section[start:end+1]), &payload); err != nil {
		return nil
	}

	prob, _ := payload.TrendChangeProb.Float64()

	change := &models.ChangeAnalysis{
		ChangeType:           "consolidated_evaluation",
		AlertLevel:           models.AlertLevel(strings.ToLower(payload.AlertLevel)),
		TrendChangeProb:      prob,
		ConfidenceLevel:      payload.ConfidenceLevel,
		Summary:              payload.Summary,
		KeyChanges:           payload.KeyChanges,
		ProbabilityReasoning: payload.ProbabilityReasoning,
	}
	if change.AlertLevel == "" {
		change.AlertLevel = models.AlertLow
	}
	if change.ConfidenceLevel == "" {
		change.ConfidenceLevel = "low"
	}
	if change.Summary == "" {
		change.Summary = "No summary"
	}

	if payload.HasChanges != nil {
		change.HasChanges = *payload.HasChanges
	} else {
		change.HasChanges = prob >= alertThreshold && prob > 0
	}

	return change
}

func fallbackAnalysis() *models.ChangeAnalysis {
	return &models.ChangeAnalysis{
		HasChanges:           false,
		ChangeType:           "parsing_fallback",
		AlertLevel:           models.AlertLow,
		TrendChangeProb:      0,
		ConfidenceLevel:      "low",
		Summary:              "Analysis completed",
		ProbabilityReasoning: "Could not parse structured response",
	}
}
