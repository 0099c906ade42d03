// Package report writes the per-symbol analysis reports: an HTML
// multi-provider report and a plain-text combined report whose analysis
// section seeds the next run's prior context.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chartwatch/internal/models"
)

const (
	// HTMLReportName is the multi-provider HTML report filename.
	HTMLReportName = "multi_provider_analysis.html"
	// TextReportName is the combined text report filename.
	TextReportName = "combined_analysis_latest.txt"

	analysisHeader  = "Combined Analysis Results:"
	analysisDivider = "========================================"
)

// Writer renders reports into a symbol's output directory.
type Writer struct {
	HTMLEnabled bool
	TextEnabled bool
}

// NewWriter creates a report writer.
func NewWriter(htmlEnabled, textEnabled bool) *Writer {
	return &Writer{HTMLEnabled: htmlEnabled, TextEnabled: textEnabled}
}

// Input carries everything one report needs.
type Input struct {
	Symbol      string
	OutputDir   string
	Screenshots []models.Screenshot
	Results     []models.ProviderResult
	Decision    string
	Consensus   *models.Consensus
	Alerts      []models.ProviderAlert
	GeneratedAt time.Time
}

// Write renders the enabled reports and returns the combined text, which
// doubles as the stored run record.
func (w *Writer) Write(in Input) (string, error) {
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	combined := w.combinedText(in)

	if w.TextEnabled {
		path := filepath.Join(in.OutputDir, TextReportName)
		if err := writeFileAtomic(path, []byte(combined)); err != nil {
			return "", fmt.Errorf("writing text report: %w", err)
		}
	}

	if w.HTMLEnabled {
		html, err := w.renderHTML(in)
		if err != nil {
			return "", err
		}
		path := filepath.Join(in.OutputDir, HTMLReportName)
		if err := writeFileAtomic(path, []byte(html)); err != nil {
			return "", fmt.Errorf("writing html report: %w", err)
		}
	}

	return combined, nil
}

// writeFileAtomic writes through a temp file and renames so a reader
// never sees a half-written report.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (w *Writer) combinedText(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Multi-Provider Analysis Report for %s\n", in.Symbol)
	fmt.Fprintf(&b, "Generated: %s\n\n", in.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("Screenshots Analyzed:\n")
	for _, shot := range in.Screenshots {
		fmt.Fprintf(&b, "- %s: %s\n", viewTitle(shot.View), filepath.Base(shot.Path))
	}
	b.WriteString("\n")

	if c := in.Consensus; c != nil {
		b.WriteString("Trend Change Analysis:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		fmt.Fprintf(&b, "[DATA] Trend Change Probability: %.1f%%\n", c.AvgProbability)
		fmt.Fprintf(&b, "[>>] Confidence Level: %s\n", strings.ToUpper(c.ConfidenceLevel))
		status := "NO ALERT"
		if c.HasChanges {
			status = "ALERT"
		}
		fmt.Fprintf(&b, "[ALERT] Status: %s (%s)\n", status, strings.ToUpper(string(c.AlertLevel)))
		fmt.Fprintf(&b, "[SUMMARY] %s\n\n", c.Summary)
	}

	b.WriteString(analysisHeader + "\n")
	b.WriteString(analysisDivider + "\n")

	if in.Decision != "" {
		b.WriteString(strings.TrimSpace(in.Decision))
		b.WriteString("\n\n")
	}
	for _, r := range in.Results {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", strings.ToUpper(r.Provider), strings.TrimSpace(r.Analysis))
	}

	return b.String()
}

// ExtractPriorAnalysis pulls the analysis section out of a previous
// combined report so it can seed the next run's prompt. Returns empty
// when the file is missing or the section cannot be located.
func ExtractPriorAnalysis(outputDir string) string {
	data, err := os.ReadFile(filepath.Join(outputDir, TextReportName))
	if err != nil {
		return ""
	}
	return ExtractPriorFromText(string(data))
}

// ExtractPriorFromText locates the analysis section in combined report
// text. Used for stored run records as well as on-disk reports.
func ExtractPriorFromText(content string) string {
	start := strings.Index(content, analysisHeader)
	if start == -1 {
		return ""
	}
	divider := strings.Index(content[start:], analysisDivider)
	if divider == -1 {
		return ""
	}
	return strings.TrimSpace(content[start+divider+len(analysisDivider):])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func viewTitle(view models.ChartView) string {
	parts := strings.Split(string(view), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

var htmlTmpl = template.Must(template.New("report").Parse(`<html>
<head>
    <meta charset='utf-8'>
    <title>Multi-Provider AI Analysis Report for {{.Symbol}}</title>
    <style>
        body { font-family: Arial, sans-serif; background: #f8f9fa; color: #222; margin: 0; padding: 0; }
        .container { max-width: 900px; margin: 30px auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px #0001; padding: 32px; }
        h1 { text-align: center; font-size: 2.2em; margin-bottom: 0.2em; }
        h2 { border-bottom: 2px solid #eee; padding-bottom: 0.2em; margin-top: 2em; }
        .section { margin: 2em 0; }
        .divider { border-top: 2px solid #bbb; margin: 2em 0; }
        .summary-box { background: #f1f8e9; border-left: 6px solid #4caf50; padding: 1em 1.5em; margin: 1.5em 0; border-radius: 6px; font-size: 1.1em; }
        .consensus-low { background: #fff3e0; border-left: 6px solid #ff9800; }
        .consensus-high { background: #e3f2fd; border-left: 6px solid #2196f3; }
        .provider-title { font-size: 1.3em; color: #333; margin-top: 1.5em; }
        .alert-list li { margin-bottom: 0.3em; }
        .meta { color: #888; font-size: 0.95em; text-align: right; margin-bottom: 1em; }
        pre { white-space: pre-wrap; font-family: inherit; font-size: 1.08em; background: #f6f8fa; padding: 1em; border-radius: 6px; border: 1px solid #eee; }
    </style>
</head>
<body>
<div class='container'>
    <h1>Multi-Provider AI Analysis Report for {{.Symbol}}</h1>
    <div class='meta'>Generated: {{.Generated}}</div>
{{if .Decision}}
    <div class='divider'></div>
    <h2>Consolidated Trading Decision</h2>
    <div class='section'><pre>{{.Decision}}</pre></div>
{{end}}
{{range .Providers}}
    <div class='divider'></div>
    <div class='provider-title'>{{.Title}}</div>
    <div class='section'><pre>{{.Analysis}}</pre></div>
{{end}}
    <div class='divider'></div>
    <h2>Consensus Summary</h2>
{{if .Alerts}}
    <ul class='alert-list'>
{{range .Alerts}}
        <li><b>{{.Provider}}:</b> <span style='color:#d84315;font-weight:bold'>{{.Level}}</span> ({{.Probability}}%) - {{.Summary}}</li>
{{end}}
    </ul>
{{end}}
    <div class='summary-box {{.ConsensusClass}}'>CONSENSUS: <b>{{.ConsensusLevel}}</b> | Confidence: <b>{{.Confidence}}</b>{{if .ConsolidatorDecided}} | Consolidator: <b>EMAIL ALERT</b>{{end}} | Providers: <b>{{.ProviderCount}}</b> | Agreement: <b>{{.Agreement}}%</b><br>SUMMARY: {{.Summary}}</div>
</div>
</body>
</html>
`))

type htmlProvider struct {
	Title    string
	Analysis string
}

type htmlAlert struct {
	Provider    string
	Level       string
	Probability string
	Summary     string
}

func (w *Writer) renderHTML(in Input) (string, error) {
	titles := map[string]string{
		"claude":     "Claude Analysis",
		"perplexity": "Perplexity Analysis",
		"google":     "Google AI Analysis",
	}

	var provs []htmlProvider
	for _, r := range in.Results {
		title, ok := titles[r.Provider]
		if !ok {
			title = strings.ToUpper(r.Provider) + " Analysis"
		}
		provs = append(provs, htmlProvider{Title: title, Analysis: strings.TrimSpace(r.Analysis)})
	}

	var alerts []htmlAlert
	for _, a := range in.Alerts {
		alerts = append(alerts, htmlAlert{
			Provider:    titleCase(a.Provider),
			Level:       strings.ToUpper(string(a.Level)),
			Probability: fmt.Sprintf("%.0f", a.Probability),
			Summary:     a.Summary,
		})
	}

	data := struct {
		Symbol              string
		Generated           string
		Decision            string
		Providers           []htmlProvider
		Alerts              []htmlAlert
		ConsensusClass      string
		ConsensusLevel      string
		Confidence          string
		ConsolidatorDecided bool
		ProviderCount       int
		Agreement           string
		Summary             string
	}{
		Symbol:    in.Symbol,
		Generated: in.GeneratedAt.Format("2006-01-02 15:04:05"),
		Decision:  strings.TrimSpace(in.Decision),
		Providers: provs,
		Alerts:    alerts,
	}

	if c := in.Consensus; c != nil {
		data.ConsensusLevel = strings.ToUpper(string(c.AlertLevel))
		data.Confidence = strings.ToUpper(c.ConfidenceLevel)
		data.ConsolidatorDecided = c.ConsolidatorDecided
		data.ProviderCount = c.ProviderCount
		data.Agreement = fmt.Sprintf("%.1f", c.ProviderAgreement)
		data.Summary = c.Summary
		if c.HasChanges {
			data.ConsensusClass = "consensus-high"
		} else {
			data.ConsensusClass = "consensus-low"
		}
	}

	var b strings.Builder
	if err := htmlTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering html report: %w", err)
	}
	return b.String(), nil
}
