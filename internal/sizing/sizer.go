// Package sizing turns a probability and a price into a risk-adjusted bankroll fraction.
package sizing

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/risk"
)

// Bounds applied to the individual adjustment factors
const (
	minVolatilityFactor  = 0.5
	minPerformanceFactor = 0.8
	maxPerformanceFactor = 1.2
	minVaRAdjustment     = 0.6
)

// Request carries one selection's estimate, price and history.
// DecimalOdds is the vig-free price Kelly is computed on; OfferedOdds is the
// bookmaker price winning stakes settle at.
type Request struct {
	SelectionID string
	Probability float64
	Confidence  float64
	DecimalOdds float64
	OfferedOdds float64
	Series      models.ReturnSeries

	Category  string
	EventID   string
	Entities  []string
	EventDate time.Time
	Direction models.Direction
}

// Adjustments are the multiplicative shrink factors applied to base Kelly
type Adjustments struct {
	Volatility       float64
	Performance      float64
	VaR              float64
	SampleConfidence float64
}

// Product multiplies all factors
func (a Adjustments) Product() float64 {
	return a.Volatility * a.Performance * a.VaR * a.SampleConfidence
}

// Sizer computes SizingDecisions under a RiskConfig
type Sizer struct {
	cfg    config.RiskConfig
	logger *logrus.Logger
}

// NewSizer creates a sizer
func NewSizer(cfg config.RiskConfig, logger *logrus.Logger) *Sizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sizer{cfg: cfg, logger: logger}
}

// BaseKelly returns the full-Kelly fraction (b*p - q)/b floored at zero.
// Odds at or below 1.0 fail with InvalidOddsError.
func BaseKelly(p, odds float64) (float64, error) {
	if !(odds > 1.0) {
		return 0, &models.InvalidOddsError{Odds: odds}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidProbability, p)
	}
	b := odds - 1
	if b <= 0 {
		return 0, nil
	}
	return math.Max(0, (b*p-(1-p))/b), nil
}

// EffectiveOdds shrinks the payout by the bettor-side vig headroom h
func EffectiveOdds(odds, headroom float64) float64 {
	return 1 + (odds-1)*(1-headroom)
}

// ExpectedValue is the expected profit per unit stake
func ExpectedValue(p, odds float64) float64 {
	return p*(odds-1) - (1 - p)
}

// Size produces a SizingDecision whose AdaptiveFraction lies in [MinFraction, MaxFraction]
func (s *Sizer) Size(req Request) (models.SizingDecision, error) {
	if !(req.DecimalOdds > 1.0) {
		return models.SizingDecision{}, &models.InvalidOddsError{SelectionID: req.SelectionID, Odds: req.DecimalOdds}
	}

	odds := EffectiveOdds(req.DecimalOdds, s.cfg.VigHeadroom)
	kelly, err := BaseKelly(req.Probability, odds)
	if err != nil {
		return models.SizingDecision{}, fmt.Errorf("selection %s: %w", req.SelectionID, err)
	}

	profile := risk.ComputeProfile(req.Series.Returns)
	recent := risk.Mean(req.Series.Recent(s.cfg.RecentWindow))
	adj := s.Adjust(profile, recent)

	adaptive := kelly * s.cfg.BaseFractionCap * adj.Product()
	adaptive = math.Max(s.cfg.MinFraction, math.Min(s.cfg.MaxFraction, adaptive))

	decision := models.SizingDecision{
		SelectionID:       req.SelectionID,
		BaseKellyFraction: kelly,
		AdaptiveFraction:  adaptive,
		RiskProfile:       profile,
		ExpectedValue:     ExpectedValue(req.Probability, odds),
		Confidence:        req.Confidence,
		Probability:       req.Probability,
		DecimalOdds:       req.DecimalOdds,
		OfferedOdds:       req.OfferedOdds,
		Category:          req.Category,
		EventID:           req.EventID,
		Entities:          req.Entities,
		EventDate:         req.EventDate,
		Direction:         req.Direction,
	}

	s.logger.WithFields(logrus.Fields{
		"selection_id":      req.SelectionID,
		"probability":       req.Probability,
		"odds":              req.DecimalOdds,
		"effective_odds":    odds,
		"kelly_fraction":    kelly,
		"volatility_factor": adj.Volatility,
		"performance":       adj.Performance,
		"var_adjustment":    adj.VaR,
		"sample_confidence": adj.SampleConfidence,
		"adaptive_fraction": adaptive,
	}).Debug("Position size calculated")

	return decision, nil
}

// Adjust derives the shrink factors from a risk profile and the mean of recent returns
func (s *Sizer) Adjust(profile models.RiskProfile, recentPerformance float64) Adjustments {
	adj := Adjustments{
		Volatility:  math.Max(minVolatilityFactor, 1-profile.Volatility*s.cfg.K1),
		Performance: math.Max(minPerformanceFactor, math.Min(maxPerformanceFactor, 1+recentPerformance*s.cfg.K2)),
		VaR:         minVaRAdjustment,
	}
	if s.cfg.VaRCap > 0 {
		adj.VaR = math.Max(minVaRAdjustment, 1-profile.VaR99/s.cfg.VaRCap)
	}
	if s.cfg.NCalibration > 0 {
		adj.SampleConfidence = math.Min(1, float64(profile.Observations)/float64(s.cfg.NCalibration))
	}
	return adj
}
