// Package backtest validates recommendation batches by repeated simulation
// and by rolling walk-forward evaluation.
package backtest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/risk"
)

const defaultBatchSize = 250

// MonteCarloValidator replays a decision set many times to estimate its ROI distribution
type MonteCarloValidator struct {
	cfg     config.SimulationConfig
	workers int
	logger  *logrus.Logger
	now     func() time.Time
}

// NewMonteCarloValidator creates a validator running trials on workers goroutines
func NewMonteCarloValidator(cfg config.SimulationConfig, workers int, logger *logrus.Logger) *MonteCarloValidator {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &MonteCarloValidator{cfg: cfg, workers: workers, logger: logger, now: time.Now}
}

// Run simulates the decisions and summarizes the per-trial ROI distribution.
// Trial i is seeded with Seed+i, so results do not depend on the worker count.
func (v *MonteCarloValidator) Run(ctx context.Context, decisions []models.SizingDecision) (models.SimulationResult, error) {
	distribution, err := v.Distribution(ctx, decisions)
	if err != nil {
		return models.SimulationResult{}, err
	}
	return v.summarize(distribution)
}

// Distribution returns the ROI of every trial in trial order
func (v *MonteCarloValidator) Distribution(ctx context.Context, decisions []models.SizingDecision) ([]float64, error) {
	trials := v.cfg.Trials
	if trials < v.cfg.MinTrials || trials <= 0 {
		return nil, &models.SimulationDivergenceError{
			Reason: fmt.Sprintf("trial count %d below minimum %d", trials, v.cfg.MinTrials),
			Trial:  -1,
		}
	}
	if len(decisions) == 0 {
		return nil, &models.SimulationDivergenceError{Reason: "no decisions to simulate", Trial: -1}
	}
	for _, d := range decisions {
		if !(d.PayoutOdds() > 1.0) {
			return nil, &models.InvalidOddsError{SelectionID: d.SelectionID, Odds: d.PayoutOdds()}
		}
	}

	batchSize := v.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	distribution := make([]float64, trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	for start := 0; start < trials; start += batchSize {
		start := start
		end := start + batchSize
		if end > trials {
			end = trials
		}
		g.Go(func() error {
			// cancellation is checked between batches
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				roi := v.trial(i, decisions)
				if math.IsNaN(roi) || math.IsInf(roi, 0) {
					return &models.SimulationDivergenceError{Reason: fmt.Sprintf("non-finite ROI %v", roi), Trial: i}
				}
				distribution[i] = roi
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return distribution, nil
}

// trial plays every decision once and returns the summed ROI
func (v *MonteCarloValidator) trial(index int, decisions []models.SizingDecision) float64 {
	rng := rand.New(rand.NewSource(v.cfg.Seed + int64(index)))

	discount := 1.0
	if rng.Float64() < v.cfg.BlackSwanProbability {
		discount = v.cfg.BlackSwanDiscount
	}

	roi := 0.0
	for _, d := range decisions {
		if rng.Float64() < d.Probability*discount {
			roi += d.AdaptiveFraction * (d.PayoutOdds() - 1)
		} else {
			roi -= d.AdaptiveFraction
		}
	}
	return roi
}

func (v *MonteCarloValidator) summarize(distribution []float64) (models.SimulationResult, error) {
	mean := risk.Mean(distribution)
	std := risk.SampleStdDev(distribution)
	lo, hi := risk.MinMax(distribution)

	sharpe := 0.0
	if std > 0 {
		sharpe = mean / std
	}

	profitable := 0
	for _, roi := range distribution {
		if roi > 0 {
			profitable++
		}
	}

	result := models.SimulationResult{
		ID:                uuid.New(),
		Trials:            len(distribution),
		ROIMean:           mean,
		ROIStd:            std,
		ROIMin:            lo,
		ROIMax:            hi,
		Sharpe:            sharpe,
		ProfitProbability: float64(profitable) / float64(len(distribution)),
		VaR95:             risk.ValueAtRisk(distribution, 0.95),
		CVaR95:            risk.ConditionalValueAtRisk(distribution, 0.95),
		Seed:              v.cfg.Seed,
		CreatedAt:         v.now().UTC(),
	}

	for _, f := range []float64{result.ROIMean, result.ROIStd, result.Sharpe, result.VaR95, result.CVaR95} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return models.SimulationResult{}, &models.SimulationDivergenceError{Reason: "non-finite summary statistic", Trial: -1}
		}
	}

	v.logger.WithFields(logrus.Fields{
		"simulation_id":      result.ID,
		"trials":             result.Trials,
		"roi_mean":           result.ROIMean,
		"roi_std":            result.ROIStd,
		"profit_probability": result.ProfitProbability,
		"var_95":             result.VaR95,
	}).Debug("Monte Carlo simulation summarized")

	return result, nil
}
