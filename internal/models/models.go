// Package models defines the core data types shared across the application.
package models

import "time"

// ChartView identifies a chart window/layout that gets captured and analyzed.
type ChartView string

const (
	ViewTrendAnalysis ChartView = "trend_analysis"
	ViewHeikenAshi    ChartView = "heiken_ashi"
	ViewVolumeLayout  ChartView = "volume_layout"
	ViewUTBot         ChartView = "utbot"
	ViewWorkspace     ChartView = "workspace"
)

// Screenshot represents a captured chart image for a symbol.
type Screenshot struct {
	Symbol     string
	View       ChartView
	Path       string
	CapturedAt time.Time
	Reused     bool
}

// CaptureResult summarizes a capture pass for one symbol.
type CaptureResult struct {
	Symbol      string
	Screenshots []Screenshot
	Failed      []ChartView
	StartedAt   time.Time
	Duration    time.Duration
}
