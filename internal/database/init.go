package database

import (
	"context"
	"fmt"

	"github.com/yourusername/clever-edge/internal/config"
)

// schema creates the tables written by the persistence sink
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sizing_decisions (
		cycle_id TEXT NOT NULL,
		selection_id TEXT NOT NULL,
		category TEXT NOT NULL,
		event_id TEXT,
		probability DOUBLE PRECISION NOT NULL,
		decimal_odds DOUBLE PRECISION NOT NULL,
		base_kelly_fraction DOUBLE PRECISION NOT NULL,
		adaptive_fraction DOUBLE PRECISION NOT NULL,
		expected_value DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		risk_profile JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (cycle_id, selection_id)
	)`,
	`CREATE TABLE IF NOT EXISTS patterns (
		id UUID PRIMARY KEY,
		corpus TEXT NOT NULL,
		version INTEGER NOT NULL,
		signature JSONB NOT NULL,
		win_rate DOUBLE PRECISION NOT NULL,
		sample_size INTEGER NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		discovery_method TEXT NOT NULL,
		discovered_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS patterns_corpus_version_idx ON patterns (corpus, version DESC)`,
	`CREATE TABLE IF NOT EXISTS simulation_results (
		id UUID PRIMARY KEY,
		cycle_id TEXT NOT NULL,
		status TEXT NOT NULL,
		trials INTEGER NOT NULL,
		roi_mean DOUBLE PRECISION NOT NULL,
		roi_std DOUBLE PRECISION NOT NULL,
		roi_min DOUBLE PRECISION NOT NULL,
		roi_max DOUBLE PRECISION NOT NULL,
		sharpe DOUBLE PRECISION NOT NULL,
		profit_probability DOUBLE PRECISION NOT NULL,
		var_95 DOUBLE PRECISION NOT NULL,
		cvar_95 DOUBLE PRECISION NOT NULL,
		seed BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// Initialize opens the pool and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDBFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db.pool); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema applies the idempotent schema statements
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
