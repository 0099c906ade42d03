// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"chartwatch/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Analysis runs
	SaveRun(ctx context.Context, run *models.Run) error
	GetLatestRun(ctx context.Context, symbol string) (*models.Run, error)
	GetRuns(ctx context.Context, filter RunFilter) ([]models.Run, error)

	// Alert events
	SaveAlertEvent(ctx context.Context, event *models.AlertEvent) error
	GetAlertHistory(ctx context.Context, filter AlertFilter) ([]models.AlertEvent, error)

	// Statistics
	GetRunStats(ctx context.Context, symbol string, since time.Time) (*models.RunStats, error)

	// Lifecycle
	Close() error
}

// RunFilter represents filters for querying analysis runs.
type RunFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// AlertFilter represents filters for querying alert events.
type AlertFilter struct {
	Symbol    string
	Level     models.AlertLevel
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
