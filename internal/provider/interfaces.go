// Package provider defines the collaborators the analysis cycle reads from and
// writes to, together with an HTTP implementation of the read side.
package provider

import (
	"context"
	"time"

	"github.com/yourusername/clever-edge/internal/models"
)

// MarketDataProvider supplies current quotes for a market
type MarketDataProvider interface {
	GetQuotes(ctx context.Context, marketID string) ([]models.MarketQuote, error)
}

// ContextProvider supplies the factor signals known for a selection at a point in time
type ContextProvider interface {
	GetFactors(ctx context.Context, selectionID string, asOf time.Time) (models.FactorSet, error)
}

// HistoryProvider supplies the realized return series of a selection
type HistoryProvider interface {
	GetReturnSeries(ctx context.Context, selectionID string) (models.ReturnSeries, error)
}

// OutcomeProvider supplies settled records for pattern discovery
type OutcomeProvider interface {
	GetOutcomeRecords(ctx context.Context, corpus string) ([]models.HistoricalRecord, error)
}

// PersistenceSink stores cycle output
type PersistenceSink interface {
	SaveDecision(ctx context.Context, cycleID string, decision models.SizingDecision) error
	SavePattern(ctx context.Context, corpus string, pattern models.Pattern) error
	SaveSimulation(ctx context.Context, cycleID string, result models.SimulationResult, status models.BatchStatus) error
}

// ReportingSink publishes ranked recommendations
type ReportingSink interface {
	Publish(ctx context.Context, cycleID string, ranked []models.Recommendation) error
}
