// Package estimator blends weighted factor signals, discovered patterns and
// realized history into a single win probability with its uncertainty.
package estimator

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/risk"
)

const (
	// maxBayesianConfidence caps confidence regardless of sample size
	maxBayesianConfidence = 0.95
	// confidenceSaturation is the observation count at which sample confidence saturates
	confidenceSaturation = 30.0
	// minVolatilityPenalty floors the posterior volatility penalty
	minVolatilityPenalty = 0.5
)

// FallbackObserver is told when an estimate drops back to the composite
type FallbackObserver interface {
	LogEstimateFallback(selectionID string, err error)
}

// Input is everything needed to estimate one selection
type Input struct {
	SelectionID string
	Factors     models.FactorSet
	Series      models.ReturnSeries
	Patterns    []models.Pattern
}

// Estimator produces ProbabilityEstimates from a versioned weight table
type Estimator struct {
	weights  map[string]float64
	names    []string
	cfg      config.EstimatorConfig
	observer FallbackObserver
}

// Option configures an Estimator
type Option func(*Estimator)

// WithObserver reports composite fallbacks to obs
func WithObserver(obs FallbackObserver) Option {
	return func(e *Estimator) {
		e.observer = obs
	}
}

// New creates an estimator. The weight table must be non-empty, non-negative
// and sum to one.
func New(weights map[string]float64, cfg config.EstimatorConfig, opts ...Option) (*Estimator, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("weight table is empty")
	}
	sum := 0.0
	names := make([]string, 0, len(weights))
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight for %s must be non-negative, got %v", name, w)
		}
		sum += w
		names = append(names, name)
	}
	if math.Abs(sum-1) > config.WeightSumTolerance {
		return nil, fmt.Errorf("weights must sum to 1, got %.6f", sum)
	}
	if !(cfg.ClampLow < cfg.ClampHigh) || cfg.ClampLow < 0 || cfg.ClampHigh > 1 {
		return nil, fmt.Errorf("invalid clamp band [%v, %v]", cfg.ClampLow, cfg.ClampHigh)
	}
	sort.Strings(names)

	copied := make(map[string]float64, len(weights))
	for k, v := range weights {
		copied[k] = v
	}

	e := &Estimator{weights: copied, names: names, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Composite returns the clamped weighted score plus pattern boost. Every
// weighted factor must be present in the set.
func (e *Estimator) Composite(selectionID string, factors models.FactorSet, patterns []models.Pattern) (models.ProbabilityEstimate, error) {
	if err := factors.Validate(); err != nil {
		return models.ProbabilityEstimate{}, fmt.Errorf("selection %s: %w", selectionID, err)
	}
	if err := factors.Require(e.names...); err != nil {
		return models.ProbabilityEstimate{}, fmt.Errorf("selection %s: %w", selectionID, err)
	}

	raw := 0.0
	for _, name := range e.names {
		raw += e.weights[name] * factors[name]
	}

	boost := 0.0
	matched := 0
	for _, p := range patterns {
		if p.Matches(factors, e.cfg.BinarizeThreshold) {
			boost += p.WinRateDeviation() * p.Confidence * e.cfg.BoostConstant
			matched++
		}
	}

	// Weighted dispersion of the signals around their composite
	dispersion := 0.0
	for _, name := range e.names {
		d := factors[name] - raw
		dispersion += e.weights[name] * d * d
	}
	uncertainty := math.Sqrt(dispersion)

	contributing := make(models.FactorSet, len(e.names))
	for _, name := range e.names {
		contributing[name] = factors[name]
	}

	return models.ProbabilityEstimate{
		SelectionID:         selectionID,
		PointEstimate:       clamp(raw+boost, e.cfg.ClampLow, e.cfg.ClampHigh),
		Uncertainty:         uncertainty,
		Confidence:          clamp(e.cfg.CompositeConfidenceScale*math.Max(minVolatilityPenalty, 1-uncertainty), 0, 1),
		ContributingFactors: contributing,
		Mode:                models.EstimateModeComposite,
		RawScore:            raw,
		PatternBoost:        boost,
		MatchedPatterns:     matched,
	}, nil
}

// Estimate uses the composite as the prior mean, the series' return variance as
// the prior variance and its win rate as the observation. With too little
// history it falls back to the composite.
func (e *Estimator) Estimate(in Input) (models.ProbabilityEstimate, error) {
	prior, err := e.Composite(in.SelectionID, in.Factors, in.Patterns)
	if err != nil {
		return models.ProbabilityEstimate{}, err
	}

	n := in.Series.Len()
	if n < e.cfg.MinObservations {
		if e.observer != nil {
			e.observer.LogEstimateFallback(in.SelectionID, &models.InsufficientSampleError{
				Subject:  "return series of " + in.SelectionID,
				Have:     n,
				Required: e.cfg.MinObservations,
			})
		}
		return prior, nil
	}

	post := BayesianUpdate(prior.PointEstimate, e.priorVariance(in.Series), in.Series.WinRate(), n)

	est := prior
	est.Mode = models.EstimateModeBayesian
	est.PointEstimate = clamp(post.Mean, e.cfg.ClampLow, e.cfg.ClampHigh)
	est.Uncertainty = math.Sqrt(post.Variance)
	est.Confidence = post.Confidence
	return est, nil
}

// priorVariance is the sample variance of the series' returns, floored at the
// configured prior variance
func (e *Estimator) priorVariance(series models.ReturnSeries) float64 {
	sd := risk.SampleStdDev(series.Returns)
	return math.Max(e.cfg.PriorVariance, sd*sd)
}

// Weights returns a copy of the weight table
func (e *Estimator) Weights() map[string]float64 {
	out := make(map[string]float64, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

// Posterior is the result of a normal-normal precision update
type Posterior struct {
	Mean       float64
	Variance   float64
	Precision  float64
	Confidence float64
}

// BayesianUpdate combines a prior (mean, variance) with nObs observations
// averaging observed. Precision is 1/priorVar + nObs.
func BayesianUpdate(priorMean, priorVar, observed float64, nObs int) Posterior {
	priorPrecision := 1 / priorVar
	precision := priorPrecision + float64(nObs)
	mean := (priorMean*priorPrecision + observed*float64(nObs)) / precision
	variance := 1 / precision

	confidence := math.Min(maxBayesianConfidence, float64(nObs)/confidenceSaturation) *
		math.Max(minVolatilityPenalty, 1-math.Sqrt(variance))

	return Posterior{
		Mean:       mean,
		Variance:   variance,
		Precision:  precision,
		Confidence: confidence,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
