/**
 * Statistics store
 *
 * PostgreSQL-backed extraction counters. Persistence is optional: with no
 * DATABASE_URL the agent runs with a nil store and skips recording.
 */

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Stats is a point-in-time view of the extraction counters.
type Stats struct {
	ProcessedCount int64     `json:"processedCount"`
	SuccessCount   int64     `json:"successCount"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StatsStore handles database operations for extraction statistics.
type StatsStore struct {
	db *sql.DB
}

// NewStatsStore creates a new PostgreSQL-backed statistics store.
func NewStatsStore(databaseURL string) (*StatsStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &StatsStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *StatsStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS extraction_stats (
			id INTEGER PRIMARY KEY,
			processed_count BIGINT NOT NULL DEFAULT 0,
			success_count BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create statistics table: %w", err)
	}
	return nil
}

// Increment records one extraction outcome.
func (s *StatsStore) Increment(ctx context.Context, success bool) error {
	successDelta := 0
	if success {
		successDelta = 1
	}

	query := `
		INSERT INTO extraction_stats (id, processed_count, success_count, updated_at)
		VALUES (1, 1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			processed_count = extraction_stats.processed_count + 1,
			success_count = extraction_stats.success_count + $1,
			updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, successDelta); err != nil {
		return fmt.Errorf("failed to update statistics: %w", err)
	}
	return nil
}

// Snapshot reads the current counters.
func (s *StatsStore) Snapshot(ctx context.Context) (*Stats, error) {
	query := `SELECT processed_count, success_count, updated_at FROM extraction_stats WHERE id = 1`

	var stats Stats
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.ProcessedCount, &stats.SuccessCount, &stats.UpdatedAt)
	if err == sql.ErrNoRows {
		return &Stats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}
	return &stats, nil
}

// Ping verifies database connectivity for the health endpoint.
func (s *StatsStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *StatsStore) Close() error {
	return s.db.Close()
}
