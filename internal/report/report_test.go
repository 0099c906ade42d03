package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartwatch/internal/models"
)

func sampleInput(dir string) Input {
	return Input{
		Symbol:    "SPY",
		OutputDir: dir,
		Screenshots: []models.Screenshot{
			{Symbol: "SPY", View: models.ViewTrendAnalysis, Path: filepath.Join(dir, "spy_trend_analysis.png")},
			{Symbol: "SPY", View: models.ViewHeikenAshi, Path: filepath.Join(dir, "spy_heiken_ashi.png")},
		},
		Results: []models.ProviderResult{
			{Provider: "claude", Analysis: "Claude sees an uptrend."},
			{Provider: "google", Analysis: "Gemini agrees, momentum strong."},
		},
		Decision: "TRADING DECISION: BUY\nEMAIL ALERT DECISION: YES",
		Consensus: &models.Consensus{
			HasChanges:        true,
			AlertLevel:        models.AlertHigh,
			Summary:           "Breakout confirmed",
			AvgProbability:    78.5,
			MinProbability:    70,
			MaxProbability:    87,
			ConfidenceLevel:   "high",
			ProviderCount:     2,
			ProviderAgreement: 100,
		},
		Alerts: []models.ProviderAlert{
			{Provider: "claude", Level: models.AlertHigh, Probability: 87, Summary: "Breakout confirmed"},
		},
		GeneratedAt: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}
}

func TestWriteTextReport(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(false, true)

	combined, err := w.Write(sampleInput(dir))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, TextReportName))
	require.NoError(t, err)
	assert.Equal(t, combined, string(data))

	assert.Contains(t, combined, "Multi-Provider Analysis Report for SPY")
	assert.Contains(t, combined, "[DATA] Trend Change Probability: 78.5%")
	assert.Contains(t, combined, "[ALERT] Status: ALERT (HIGH)")
	assert.Contains(t, combined, "--- CLAUDE ---")
	assert.Contains(t, combined, "--- GOOGLE ---")
	assert.Contains(t, combined, "Combined Analysis Results:")

	// No HTML report was requested.
	_, err = os.Stat(filepath.Join(dir, HTMLReportName))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteHTMLReport(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false)

	_, err := w.Write(sampleInput(dir))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, HTMLReportName))
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "Multi-Provider AI Analysis Report for SPY")
	assert.Contains(t, html, "Claude Analysis")
	assert.Contains(t, html, "Google AI Analysis")
	assert.Contains(t, html, "consensus-high")
	assert.Contains(t, html, "CONSENSUS: <b>HIGH</b>")
}

func TestWriteHTMLEscapesProviderText(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false)

	in := sampleInput(dir)
	in.Results = []models.ProviderResult{
		{Provider: "claude", Analysis: "<script>alert(1)</script>"},
	}

	_, err := w.Write(in)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, HTMLReportName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<script>alert(1)</script>")
}

func TestExtractPriorAnalysisRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(false, true)

	in := sampleInput(dir)
	_, err := w.Write(in)
	require.NoError(t, err)

	prior := ExtractPriorAnalysis(dir)
	require.NotEmpty(t, prior)

	// The extracted section starts after the divider: decision first,
	// then the per-provider sections.
	assert.True(t, strings.HasPrefix(prior, "TRADING DECISION: BUY"), "prior = %q", prior)
	assert.Contains(t, prior, "--- CLAUDE ---")
	assert.NotContains(t, prior, "Screenshots Analyzed")
}

func TestExtractPriorAnalysisMissing(t *testing.T) {
	assert.Empty(t, ExtractPriorAnalysis(t.TempDir()))
	assert.Empty(t, ExtractPriorFromText("report without the analysis section"))
	assert.Empty(t, ExtractPriorFromText("Combined Analysis Results:\nbut no divider"))
}

func TestConsensusLowClass(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(true, false)

	in := sampleInput(dir)
	in.Consensus = &models.Consensus{
		HasChanges:      false,
		AlertLevel:      models.AlertLow,
		Summary:         "No significant changes detected",
		ConfidenceLevel: "medium",
		ProviderCount:   2,
	}
	in.Alerts = nil

	_, err := w.Write(in)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, HTMLReportName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "consensus-low")
}
