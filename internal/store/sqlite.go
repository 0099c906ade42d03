// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chartwatch/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Analysis runs, one row per symbol pass
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		decision TEXT,
		combined_text TEXT,
		results TEXT,
		has_changes INTEGER DEFAULT 0,
		alert_level TEXT,
		avg_probability REAL,
		min_probability REAL,
		max_probability REAL,
		confidence_level TEXT,
		provider_count INTEGER,
		provider_agreement REAL,
		consolidator_decided INTEGER DEFAULT 0,
		alert_sent INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Delivered (or attempted) trend alerts
	CREATE TABLE IF NOT EXISTS alert_events (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		probability REAL,
		summary TEXT,
		channels TEXT,
		sent INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_symbol_time ON runs(symbol, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_alerts_symbol_time ON alert_events(symbol, timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists one analysis run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.Run) error {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("marshaling provider results: %w", err)
	}

	c := run.Consensus
	if c == nil {
		c = &models.Consensus{}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, symbol, timestamp, decision, combined_text, results,
			has_changes, alert_level, avg_probability, min_probability,
			max_probability, confidence_level, provider_count,
			provider_agreement, consolidator_decided, alert_sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Timestamp, run.Decision, run.CombinedText,
		string(resultsJSON), boolToInt(c.HasChanges), string(c.AlertLevel),
		c.AvgProbability, c.MinProbability, c.MaxProbability,
		c.ConfidenceLevel, c.ProviderCount, c.ProviderAgreement,
		boolToInt(c.ConsolidatorDecided), boolToInt(run.AlertSent),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetLatestRun returns the most recent run for a symbol, or nil when the
// symbol has no history.
func (s *SQLiteStore) GetLatestRun(ctx context.Context, symbol string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, timestamp, decision, combined_text, results,
			has_changes, alert_level, avg_probability, min_probability,
			max_probability, confidence_level, provider_count,
			provider_agreement, consolidator_decided, alert_sent
		FROM runs WHERE symbol = ? ORDER BY timestamp DESC LIMIT 1`, symbol)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	return run, nil
}

// GetRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]models.Run, error) {
	query := `
		SELECT id, symbol, timestamp, decision, combined_text, results,
			has_changes, alert_level, avg_probability, min_probability,
			max_probability, confidence_level, provider_count,
			provider_agreement, consolidator_decided, alert_sent
		FROM runs WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var c models.Consensus
	var resultsJSON, alertLevel string
	var hasChanges, consolidatorDecided, alertSent int

	err := row.Scan(
		&run.ID, &run.Symbol, &run.Timestamp, &run.Decision,
		&run.CombinedText, &resultsJSON, &hasChanges, &alertLevel,
		&c.AvgProbability, &c.MinProbability, &c.MaxProbability,
		&c.ConfidenceLevel, &c.ProviderCount, &c.ProviderAgreement,
		&consolidatorDecided, &alertSent,
	)
	if err != nil {
		return nil, err
	}

	c.HasChanges = hasChanges != 0
	c.AlertLevel = models.AlertLevel(alertLevel)
	c.ConsolidatorDecided = consolidatorDecided != 0
	run.Consensus = &c
	run.AlertSent = alertSent != 0

	if resultsJSON != "" {
		if err := json.Unmarshal([]byte(resultsJSON), &run.Results); err != nil {
			return nil, fmt.Errorf("unmarshaling provider results: %w", err)
		}
	}
	return &run, nil
}

// SaveAlertEvent persists one alert delivery record.
func (s *SQLiteStore) SaveAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	channels := strings.Join(event.Channels, ",")
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alert_events (
			id, symbol, timestamp, level, probability, summary, channels, sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Symbol, event.Timestamp, string(event.Level),
		event.Probability, event.Summary, channels, boolToInt(event.Sent),
	)
	if err != nil {
		return fmt.Errorf("saving alert event: %w", err)
	}
	return nil
}

// GetAlertHistory returns alert events matching the filter, newest first.
func (s *SQLiteStore) GetAlertHistory(ctx context.Context, filter AlertFilter) ([]models.AlertEvent, error) {
	query := `SELECT id, symbol, timestamp, level, probability, summary, channels, sent
		FROM alert_events WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Level != "" {
		query += " AND level = ?"
		args = append(args, string(filter.Level))
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alert history: %w", err)
	}
	defer rows.Close()

	var events []models.AlertEvent
	for rows.Next() {
		var e models.AlertEvent
		var level, channels string
		var sent int
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Timestamp, &level,
			&e.Probability, &e.Summary, &channels, &sent); err != nil {
			return nil, fmt.Errorf("scanning alert event: %w", err)
		}
		e.Level = models.AlertLevel(level)
		e.Sent = sent != 0
		if channels != "" {
			e.Channels = strings.Split(channels, ",")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetRunStats aggregates run history since the given time. Per-provider
// stats are computed from the stored result payloads.
func (s *SQLiteStore) GetRunStats(ctx context.Context, symbol string, since time.Time) (*models.RunStats, error) {
	runs, err := s.GetRuns(ctx, RunFilter{Symbol: symbol, StartDate: since})
	if err != nil {
		return nil, err
	}

	stats := &models.RunStats{
		ByProvider: make(map[string]*models.ProviderStats),
	}

	var probSum float64
	for _, run := range runs {
		stats.TotalRuns++
		if run.AlertSent {
			stats.AlertsSent++
		}
		if run.Consensus != nil {
			probSum += run.Consensus.AvgProbability
		}

		for _, r := range run.Results {
			ps := stats.ByProvider[r.Provider]
			if ps == nil {
				ps = &models.ProviderStats{Provider: r.Provider}
				stats.ByProvider[r.Provider] = ps
			}
			ps.TotalRuns++
			if r.Change != nil {
				// Running average keeps a second pass unnecessary.
				ps.AvgProb += (r.Change.TrendChangeProb - ps.AvgProb) / float64(ps.TotalRuns)
				if r.Change.HasChanges {
					ps.AlertCount++
				}
			}
		}
	}

	if stats.TotalRuns > 0 {
		stats.AvgProbability = probSum / float64(stats.TotalRuns)
	}
	return stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
