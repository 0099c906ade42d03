// Package prompts builds the analysis and consolidation prompts sent to
// LLM providers. The response contracts (section markers and the JSON
// trend evaluation block) are part of the prompt text; the parser in the
// analysis package depends on them.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"chartwatch/internal/models"
)

// Section markers the providers are instructed to emit.
const (
	AnalysisMarker  = "=== ANALYSIS ==="
	TrendEvalMarker = "=== TREND_EVALUATION ==="
	EmailMarker     = "=== EMAIL ALERT DECISION ==="
)

// chartContexts maps chart views to the indicator context injected into
// the analysis prompt.
var chartContexts = map[models.ChartView]string{
	models.ViewTrendAnalysis: `CHART CONTEXT - Trend Analysis Window:
This chart displays LuxAlgo Signals & Overlays and Price Action Concepts.
Pay special attention to:
- Signal quality (strong buy/sell signals)
- Support/resistance levels and market structure
- Overlay trend direction and strength
- Signal confirmations and divergences`,

	models.ViewHeikenAshi: `CHART CONTEXT - Smoothed Heiken Ashi Candles Window:
This chart displays Smoothed Heiken Ashi candles, the HEMA trend average,
divergence indicators, and a volume footprint.
Pay special attention to:
- Candle colors (bullish/bearish trends) and HEMA crossovers
- Bullish/bearish divergence signals and reversal patterns
- Volume footprint absorption and exhaustion at key levels`,

	models.ViewVolumeLayout: `CHART CONTEXT - Volume Layout Window:
This chart displays the Money Flow Profile, CVD Divergence Oscillator,
SQZMOM squeeze momentum, and MA distance with standard deviation bands.
Pay special attention to:
- Accumulation/distribution zones and CVD divergences
- Squeeze conditions and momentum direction
- A recent +RD or -RD reversal divergence must be called out explicitly`,

	models.ViewUTBot: `CHART CONTEXT - UT Bot / Lorentzian Window:
This chart displays UT Bot BUY/SELL alerts on an ATR trailing stop and a
Lorentzian machine-learning trend classification.
Pay special attention to:
- UT Bot entry signals and signal line crossovers
- Lorentzian bullish/bearish predictions and their confluence with UT Bot
- Trend color changes and ATR-based stop levels`,

	models.ViewWorkspace: `CHART CONTEXT - Analysis Workspace Window:
This chart displays ATM chart lines, ATM Elliott waves and projections,
pressure alerts, a TKT opportunity score, and Demark Sequential counts.
Pay special attention to:
- Price sitting on or near an ATM chart line (key support/resistance)
- Elliott wave count, projections, and pressure alerts
- Demark Sequential setup/countdown numbers (9s and 13s are critical)`,
}

// ChartContext returns the context block for a view, or empty when the
// view has no registered context.
func ChartContext(view models.ChartView) string {
	return chartContexts[view]
}

var analysisTmpl = template.Must(template.New("analysis").Parse(`You are an expert stock market analyst. Analyze these {{.NumCharts}} chart screenshots{{if .Symbol}} for {{.Symbol}}{{end}}.

CRITICAL INSTRUCTION: Only analyze what you can clearly see in the screenshots. If a chart window appears blank or not loaded, state "Chart not loaded" for that window instead of guessing.

{{.ChartContext}}
ANALYSIS FORMAT (provide detailed content for each section):

**MARKET OVERVIEW**
Current price, timeframe, and overall market condition.

**KEY VISIBLE INDICATORS**
Detailed readings per chart, with specific price levels where visible.

**CRITICAL SIGNALS**
Most important actionable signals, including any +RD/-RD formations,
ATM chart line alignments, and Demark Sequential 9s or 13s.

**TRADING DECISION**
Clear BUY/SELL/HOLD with rationale.

**TREND CHANGE EVALUATION**
{{.TrendEval}}`))

var trendEvalWithPriorTmpl = template.Must(template.New("trendPrior").Parse(`Compare with the prior analysis and evaluate what changed.

Prior: {{.Prior}}

**RESPONSE FORMAT:**
` + AnalysisMarker + `
[Your analysis here]

` + TrendEvalMarker + `
{
    "alert_level": "critical/high/medium/low",
    "trend_change_probability": 85,
    "confidence_level": "very_high/high/medium/low",
    "summary": "Brief explanation",
    "key_changes": ["change1", "change2"],
    "probability_reasoning": "Why this probability"
}

Rules: an email alert is warranted only if probability >= {{.EmailThreshold}}%`))

const trendEvalInitial = `This is the INITIAL ANALYSIS.

` + AnalysisMarker + `
[Your analysis]

` + TrendEvalMarker + `
{
    "alert_level": "info",
    "trend_change_probability": 0,
    "confidence_level": "high",
    "summary": "Initial analysis - no prior data",
    "key_changes": [],
    "probability_reasoning": "First analysis session"
}`

// AnalysisRequest describes the inputs for one analysis prompt.
type AnalysisRequest struct {
	Symbol         string
	Views          []models.ChartView
	PriorAnalysis  string
	EmailThreshold float64
}

// priorAnalysisLimit caps how much of the previous analysis is replayed
// into the prompt.
const priorAnalysisLimit = 500

// BuildAnalysisPrompt assembles the full analysis prompt for a set of
// chart views.
func BuildAnalysisPrompt(req AnalysisRequest) (string, error) {
	var contexts strings.Builder
	for _, view := range req.Views {
		if ctx := chartContexts[view]; ctx != "" {
			contexts.WriteString(ctx)
			contexts.WriteString("\n\n")
		}
	}

	trendEval := trendEvalInitial
	if req.PriorAnalysis != "" {
		prior := req.PriorAnalysis
		if len(prior) > priorAnalysisLimit {
			prior = prior[:priorAnalysisLimit] + "..."
		}
		var b strings.Builder
		err := trendEvalWithPriorTmpl.Execute(&b, struct {
			Prior          string
			EmailThreshold int
		}{prior, int(req.EmailThreshold)})
		if err != nil {
			return "", fmt.Errorf("rendering trend evaluation prompt: %w", err)
		}
		trendEval = b.String()
	}

	var out strings.Builder
	err := analysisTmpl.Execute(&out, struct {
		NumCharts    int
		Symbol       string
		ChartContext string
		TrendEval    string
	}{len(req.Views), req.Symbol, contexts.String(), trendEval})
	if err != nil {
		return "", fmt.Errorf("rendering analysis prompt: %w", err)
	}
	return out.String(), nil
}

var consolidationTmpl = template.Must(template.New("consolidation").Parse(`You are an expert financial analyst tasked with creating a consolidated trading decision based on analyses from multiple AI providers.

**SYMBOL:** {{.Symbol}}

**INDIVIDUAL AI PROVIDER ANALYSES:**
{{.AllAnalyses}}

**YOUR TASK:**
1. Review all provider analyses above
2. Identify consensus and disagreements
3. Weight the most reliable signals
4. Create a FINAL consolidated analysis

**REQUIRED OUTPUT FORMAT:**

=== CONSOLIDATED ANALYSIS ===

**CONSENSUS OVERVIEW**
Summary of where providers agree/disagree.

**KEY TECHNICAL LEVELS**
- Support: [levels from multiple providers]
- Resistance: [levels from multiple providers]

**SIGNAL ALIGNMENT**
Which signals are confirmed across multiple providers.

**CONSOLIDATED TRADING DECISION**
[STRONG BUY / BUY / HOLD / SELL / STRONG SELL]
Confidence: [HIGH/MEDIUM/LOW]
Rationale: [Why this decision based on multi-provider consensus]

**RISK ASSESSMENT**
Key risks and stop-loss recommendations.

` + EmailMarker + `

Based on the consolidated analysis above, should an email alert be sent to notify the trader?

Consider signal significance, provider consensus, risk/reward, and urgency.

**EMAIL ALERT DECISION: [YES/NO]**
**REASON:** [Brief explanation for the decision]`))

// BuildConsolidationPrompt assembles the consolidation prompt from the
// individual provider analyses, numbered in order.
func BuildConsolidationPrompt(symbol string, results []models.ProviderResult) (string, error) {
	var all strings.Builder
	for i, r := range results {
		fmt.Fprintf(&all, "--- PROVIDER %d: %s ---\n%s\n\n", i+1, strings.ToUpper(r.Provider), r.Analysis)
	}

	var out strings.Builder
	err := consolidationTmpl.Execute(&out, struct {
		Symbol      string
		AllAnalyses string
	}{symbol, all.String()})
	if err != nil {
		return "", fmt.Errorf("rendering consolidation prompt: %w", err)
	}
	return out.String(), nil
}
