// Package repository persists cycle output to PostgreSQL.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yourusername/clever-edge/internal/database"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/provider"
)

const errScanPattern = "failed to scan pattern: %w"

// PostgresSink implements provider.PersistenceSink for PostgreSQL
type PostgresSink struct {
	db database.Querier
}

var _ provider.PersistenceSink = (*PostgresSink)(nil)

// NewPostgresSink creates a sink on top of a pool or transaction
func NewPostgresSink(db database.Querier) *PostgresSink {
	return &PostgresSink{db: db}
}

// SaveDecision upserts one sizing decision of a cycle
func (s *PostgresSink) SaveDecision(ctx context.Context, cycleID string, d models.SizingDecision) error {
	profile, err := json.Marshal(d.RiskProfile)
	if err != nil {
		return fmt.Errorf("failed to encode risk profile: %w", err)
	}

	query := `
		INSERT INTO sizing_decisions (
			cycle_id, selection_id, category, event_id, probability, decimal_odds,
			base_kelly_fraction, adaptive_fraction, expected_value, confidence, risk_profile
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (cycle_id, selection_id) DO UPDATE SET
			adaptive_fraction = EXCLUDED.adaptive_fraction,
			expected_value = EXCLUDED.expected_value,
			confidence = EXCLUDED.confidence,
			risk_profile = EXCLUDED.risk_profile
	`
	_, err = s.db.Exec(ctx, query,
		cycleID, d.SelectionID, d.Category, d.EventID, d.Probability, d.DecimalOdds,
		d.BaseKellyFraction, d.AdaptiveFraction, d.ExpectedValue, d.Confidence, profile,
	)
	if err != nil {
		return fmt.Errorf("failed to save decision %s: %w", d.SelectionID, err)
	}
	return nil
}

// SavePattern inserts a discovered pattern
func (s *PostgresSink) SavePattern(ctx context.Context, corpus string, p models.Pattern) error {
	signature, err := json.Marshal(p.Signature)
	if err != nil {
		return fmt.Errorf("failed to encode signature: %w", err)
	}

	query := `
		INSERT INTO patterns (
			id, corpus, version, signature, win_rate, sample_size, confidence,
			discovery_method, discovered_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.db.Exec(ctx, query,
		p.ID, corpus, p.Version, signature, p.WinRate, p.SampleSize, p.Confidence,
		string(p.DiscoveryMethod), p.DiscoveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern %s: %w", p.ID, err)
	}
	return nil
}

// SaveSimulation inserts a simulation result with the batch status it produced
func (s *PostgresSink) SaveSimulation(ctx context.Context, cycleID string, r models.SimulationResult, status models.BatchStatus) error {
	query := `
		INSERT INTO simulation_results (
			id, cycle_id, status, trials, roi_mean, roi_std, roi_min, roi_max,
			sharpe, profit_probability, var_95, cvar_95, seed, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err := s.db.Exec(ctx, query,
		r.ID, cycleID, string(status), r.Trials, r.ROIMean, r.ROIStd, r.ROIMin, r.ROIMax,
		r.Sharpe, r.ProfitProbability, r.VaR95, r.CVaR95, r.Seed, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save simulation %s: %w", r.ID, err)
	}
	return nil
}

// LatestPatternSet loads the newest persisted pattern set of a corpus, used
// to warm the pattern cache on startup. ok is false when none is stored.
func (s *PostgresSink) LatestPatternSet(ctx context.Context, corpus string) (set models.PatternSet, ok bool, err error) {
	query := `
		SELECT id, version, signature, win_rate, sample_size, confidence, discovery_method, discovered_at
		FROM patterns
		WHERE corpus = $1 AND version = (SELECT MAX(version) FROM patterns WHERE corpus = $1)
		ORDER BY discovery_method, id
	`
	rows, err := s.db.Query(ctx, query, corpus)
	if err != nil {
		return models.PatternSet{}, false, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	set.Corpus = corpus
	for rows.Next() {
		var (
			p         models.Pattern
			id        uuid.UUID
			signature []byte
			method    string
		)
		if err := rows.Scan(&id, &p.Version, &signature, &p.WinRate, &p.SampleSize, &p.Confidence, &method, &p.DiscoveredAt); err != nil {
			return models.PatternSet{}, false, fmt.Errorf(errScanPattern, err)
		}
		if err := json.Unmarshal(signature, &p.Signature); err != nil {
			return models.PatternSet{}, false, fmt.Errorf(errScanPattern, err)
		}
		p.ID = id
		p.DiscoveryMethod = models.DiscoveryMethod(method)
		set.Version = p.Version
		set.DiscoveredAt = p.DiscoveredAt
		set.Patterns = append(set.Patterns, p)
	}
	if err := rows.Err(); err != nil {
		return models.PatternSet{}, false, err
	}
	return set, len(set.Patterns) > 0, nil
}
