package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/estimator"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/patterns"
)

// Model predicts a win probability for a historical record
type Model interface {
	Predict(r models.HistoricalRecord) (float64, error)
}

// Fitter builds a Model from a training window
type Fitter interface {
	Fit(ctx context.Context, train []models.HistoricalRecord) (Model, error)
}

// WindowResult is one train/test position of the walk-forward
type WindowResult struct {
	Index         int       `json:"index"`
	TrainStart    time.Time `json:"train_start"`
	TrainEnd      time.Time `json:"train_end"`
	TestStart     time.Time `json:"test_start"`
	TestEnd       time.Time `json:"test_end"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	TrainROI      float64   `json:"train_roi"`
	TestROI       float64   `json:"test_roi"`
	TestBets      int       `json:"test_bets"`
}

// WalkForwardResult aggregates every window
type WalkForwardResult struct {
	Windows          []WindowResult `json:"windows"`
	AvgTestAccuracy  float64        `json:"avg_test_accuracy"`
	AvgTestROI       float64        `json:"avg_test_roi"`
	OverfitScore     float64        `json:"overfit_score"`
	ConsistencyScore float64        `json:"consistency_score"`
	StabilityScore   float64        `json:"stability_score"`
	Stable           bool           `json:"stable"`
}

// RunWalkForward slides a train window and the following test window across
// chronologically ordered records, fitting on train and scoring both.
func RunWalkForward(ctx context.Context, records []models.HistoricalRecord, fitter Fitter, cfg config.WalkForwardConfig) (WalkForwardResult, error) {
	if fitter == nil {
		return WalkForwardResult{}, fmt.Errorf("fitter is required")
	}
	if cfg.TrainSize <= 0 || cfg.TestSize <= 0 {
		return WalkForwardResult{}, fmt.Errorf("train and test sizes must be positive")
	}
	step := cfg.StepSize
	if step <= 0 {
		step = cfg.TestSize
	}

	ordered := append([]models.HistoricalRecord(nil), records...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EventDate.Before(ordered[j].EventDate)
	})

	need := cfg.TrainSize + cfg.TestSize
	if len(ordered) < need {
		return WalkForwardResult{}, &models.InsufficientSampleError{
			Subject:  "walk-forward records",
			Have:     len(ordered),
			Required: need,
		}
	}

	var windows []WindowResult
	for start, index := 0, 0; start+need <= len(ordered); start, index = start+step, index+1 {
		if err := ctx.Err(); err != nil {
			return WalkForwardResult{}, err
		}

		train := ordered[start : start+cfg.TrainSize]
		test := ordered[start+cfg.TrainSize : start+need]

		model, err := fitter.Fit(ctx, train)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d: fit: %w", index, err)
		}
		trainScore, err := score(model, train)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d: train: %w", index, err)
		}
		testScore, err := score(model, test)
		if err != nil {
			return WalkForwardResult{}, fmt.Errorf("window %d: test: %w", index, err)
		}

		windows = append(windows, WindowResult{
			Index:         index,
			TrainStart:    train[0].EventDate,
			TrainEnd:      train[len(train)-1].EventDate,
			TestStart:     test[0].EventDate,
			TestEnd:       test[len(test)-1].EventDate,
			TrainAccuracy: trainScore.accuracy,
			TestAccuracy:  testScore.accuracy,
			TrainROI:      trainScore.roi,
			TestROI:       testScore.roi,
			TestBets:      testScore.bets,
		})
	}

	return summarizeWindows(windows, cfg.MinStability), nil
}

type windowScore struct {
	accuracy float64
	roi      float64
	bets     int
}

// score measures directional accuracy and the ROI of flat unit stakes on
// positive expected value records. Records without a price are never staked.
func score(model Model, records []models.HistoricalRecord) (windowScore, error) {
	correct := 0
	profit := 0.0
	bets := 0
	for _, r := range records {
		p, err := model.Predict(r)
		if err != nil {
			return windowScore{}, err
		}
		if (p > 0.5) == r.Won {
			correct++
		}
		if r.DecimalOdds > 1.0 && p*r.DecimalOdds > 1 {
			bets++
			if r.Won {
				profit += r.DecimalOdds - 1
			} else {
				profit--
			}
		}
	}

	s := windowScore{accuracy: float64(correct) / float64(len(records)), bets: bets}
	if bets > 0 {
		s.roi = profit / float64(bets)
	}
	return s, nil
}

func summarizeWindows(windows []WindowResult, minStability float64) WalkForwardResult {
	result := WalkForwardResult{Windows: windows}
	if len(windows) == 0 {
		return result
	}

	profitable := 0
	gap := 0.0
	for _, w := range windows {
		result.AvgTestAccuracy += w.TestAccuracy
		result.AvgTestROI += w.TestROI
		gap += math.Abs(w.TrainAccuracy - w.TestAccuracy)
		if w.TestROI > 0 {
			profitable++
		}
	}
	n := float64(len(windows))
	result.AvgTestAccuracy /= n
	result.AvgTestROI /= n
	result.OverfitScore = gap / n
	result.ConsistencyScore = float64(profitable) / n
	result.StabilityScore = math.Max(0, math.Min(1, 1-2*result.OverfitScore))
	result.Stable = result.StabilityScore >= minStability
	return result
}

// PatternFitter discovers patterns on the training window and scores records
// with the composite estimator boosted by them.
type PatternFitter struct {
	Discoverer *patterns.Discoverer
	Estimator  *estimator.Estimator
	Corpus     string
}

// Fit implements Fitter
func (f PatternFitter) Fit(ctx context.Context, train []models.HistoricalRecord) (Model, error) {
	set, err := f.Discoverer.Discover(ctx, f.Corpus, 0, train)
	if err != nil {
		return nil, err
	}
	return compositeModel{estimator: f.Estimator, patterns: set.Patterns}, nil
}

type compositeModel struct {
	estimator *estimator.Estimator
	patterns  []models.Pattern
}

func (m compositeModel) Predict(r models.HistoricalRecord) (float64, error) {
	est, err := m.estimator.Composite(r.SelectionID, r.Factors, m.patterns)
	if err != nil {
		return 0, err
	}
	return est.PointEstimate, nil
}
