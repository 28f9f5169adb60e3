package sizing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

func newTestSizer(mutate ...func(*config.RiskConfig)) *Sizer {
	cfg := config.DefaultStrategyConfig().Risk
	for _, m := range mutate {
		m(&cfg)
	}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewSizer(cfg, log)
}

func constantSeries(n int, v float64) models.ReturnSeries {
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = v
	}
	return models.ReturnSeries{SelectionID: "s", Returns: returns}
}

func TestBaseKelly(t *testing.T) {
	tests := []struct {
		name     string
		p        float64
		odds     float64
		expected float64
	}{
		{name: "even money edge", p: 0.6, odds: 2.0, expected: 0.20},
		{name: "no edge", p: 0.5, odds: 2.0, expected: 0},
		{name: "negative edge floors at zero", p: 0.3, odds: 2.0, expected: 0},
		{name: "longshot", p: 0.25, odds: 5.0, expected: (4*0.25 - 0.75) / 4},
		{name: "certain win", p: 1.0, odds: 1.5, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kelly, err := BaseKelly(tt.p, tt.odds)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, kelly, 1e-12)
		})
	}
}

func TestBaseKellyInvalidInputs(t *testing.T) {
	_, err := BaseKelly(0.6, 1.0)
	assert.ErrorIs(t, err, models.ErrInvalidOdds)

	_, err = BaseKelly(1.2, 2.0)
	assert.ErrorIs(t, err, models.ErrInvalidProbability)
}

func TestSizeFlatHistory(t *testing.T) {
	s := newTestSizer()

	decision, err := s.Size(Request{
		SelectionID: "s1",
		Probability: 0.6,
		Confidence:  0.7,
		DecimalOdds: 2.0,
		Series:      constantSeries(30, 0),
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.20, decision.BaseKellyFraction, 1e-12)
	assert.InDelta(t, 0.05, decision.AdaptiveFraction, 1e-12)
	assert.InDelta(t, 0.20, decision.ExpectedValue, 1e-12)
	assert.Equal(t, 0.7, decision.Confidence)
	assert.Equal(t, 30, decision.RiskProfile.Observations)
}

func TestSizeShortHistoryShrinks(t *testing.T) {
	s := newTestSizer()

	decision, err := s.Size(Request{
		SelectionID: "s1",
		Probability: 0.6,
		DecimalOdds: 2.0,
		Series:      constantSeries(15, 0.02),
	})
	require.NoError(t, err)

	// performance 1+0.02*0.5, sample confidence 15/30
	assert.InDelta(t, 0.2*0.25*1.01*0.5, decision.AdaptiveFraction, 1e-12)
}

func TestSizeNoHistoryGivesMinFraction(t *testing.T) {
	s := newTestSizer(func(c *config.RiskConfig) { c.MinFraction = 0.001 })

	decision, err := s.Size(Request{SelectionID: "s1", Probability: 0.7, DecimalOdds: 2.2})
	require.NoError(t, err)
	assert.Equal(t, 0.001, decision.AdaptiveFraction)
}

func TestSizeCapsAtMaxFraction(t *testing.T) {
	s := newTestSizer(func(c *config.RiskConfig) { c.BaseFractionCap = 1.0 })

	decision, err := s.Size(Request{SelectionID: "s1", Probability: 0.9, DecimalOdds: 3.0, Series: constantSeries(40, 0)})
	require.NoError(t, err)
	assert.Equal(t, 0.10, decision.AdaptiveFraction)
}

func TestSizeInvalidOdds(t *testing.T) {
	s := newTestSizer()

	_, err := s.Size(Request{SelectionID: "s9", Probability: 0.6, DecimalOdds: 0.95})
	require.Error(t, err)

	var oddsErr *models.InvalidOddsError
	require.True(t, errors.As(err, &oddsErr))
	assert.Equal(t, "s9", oddsErr.SelectionID)
}

func TestSizeVigHeadroom(t *testing.T) {
	plain := newTestSizer()
	shrunk := newTestSizer(func(c *config.RiskConfig) { c.VigHeadroom = 0.05 })
	req := Request{SelectionID: "s1", Probability: 0.6, DecimalOdds: 2.0, Series: constantSeries(30, 0)}

	a, err := plain.Size(req)
	require.NoError(t, err)
	b, err := shrunk.Size(req)
	require.NoError(t, err)

	assert.Less(t, b.BaseKellyFraction, a.BaseKellyFraction)
	assert.Less(t, b.ExpectedValue, a.ExpectedValue)
	assert.InDelta(t, 1.95, EffectiveOdds(2.0, 0.05), 1e-12)
}

func TestAdjustFactorBounds(t *testing.T) {
	s := newTestSizer()

	wild := s.Adjust(models.RiskProfile{Volatility: 3, VaR99: 5, Observations: 1000}, 10)
	assert.Equal(t, 0.5, wild.Volatility)
	assert.Equal(t, 1.2, wild.Performance)
	assert.Equal(t, 0.6, wild.VaR)
	assert.Equal(t, 1.0, wild.SampleConfidence)

	poor := s.Adjust(models.RiskProfile{Volatility: 0.1, VaR99: 0.1, Observations: 6}, -10)
	assert.InDelta(t, 0.8, poor.Volatility, 1e-12)
	assert.Equal(t, 0.8, poor.Performance)
	assert.InDelta(t, 0.8, poor.VaR, 1e-12)
	assert.InDelta(t, 0.2, poor.SampleConfidence, 1e-12)
}

func TestAdaptiveFractionAlwaysBounded(t *testing.T) {
	s := newTestSizer(func(c *config.RiskConfig) { c.MinFraction = 0.002 })
	cfg := s.cfg
	rng := rand.New(rand.NewSource(11))

	probabilities := []float64{0, 1e-9, 0.5, 1 - 1e-9, 1}
	odds := []float64{1 + 1e-9, 1.0001, 2, 50}
	for i := 0; i < 300; i++ {
		probabilities = append(probabilities, rng.Float64())
		odds = append(odds, 1+rng.Float64()*10+1e-6)
	}

	for i, p := range probabilities {
		o := odds[i%len(odds)]
		n := rng.Intn(60)
		returns := make([]float64, n)
		for j := range returns {
			returns[j] = rng.NormFloat64() * 0.5
		}

		decision, err := s.Size(Request{
			SelectionID: "s",
			Probability: p,
			DecimalOdds: o,
			Series:      models.ReturnSeries{Returns: returns},
		})
		require.NoError(t, err, "p=%v o=%v", p, o)
		assert.GreaterOrEqual(t, decision.AdaptiveFraction, cfg.MinFraction, "p=%v o=%v", p, o)
		assert.LessOrEqual(t, decision.AdaptiveFraction, cfg.MaxFraction, "p=%v o=%v", p, o)
	}
}

func TestSizeKeepsOfferedPriceForPayout(t *testing.T) {
	s := newTestSizer(func(c *config.RiskConfig) { c.VigHeadroom = 0 })

	decision, err := s.Size(Request{SelectionID: "s1", Probability: 0.55, DecimalOdds: 2.0, OfferedOdds: 1.95, Series: constantSeries(40, 0.02)})
	require.NoError(t, err)

	assert.InDelta(t, 0.10, decision.BaseKellyFraction, 1e-9, "kelly uses the vig-free price")
	assert.InDelta(t, 0.10, decision.ExpectedValue, 1e-9)
	assert.Equal(t, 1.95, decision.OfferedOdds)
	assert.Equal(t, 1.95, decision.PayoutOdds())
}
