package odds

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-edge/internal/models"
)

func quotes(odds ...float64) []models.MarketQuote {
	out := make([]models.MarketQuote, len(odds))
	for i, o := range odds {
		out[i] = models.MarketQuote{
			MarketID:    "m1",
			SelectionID: string(rune('a' + i)),
			DecimalOdds: o,
		}
	}
	return out
}

func sumFair(m Market) float64 {
	s := 0.0
	for _, p := range m.FairProbabilities() {
		s += p
	}
	return s
}

func TestNormalizeSymmetricTwoWay(t *testing.T) {
	n := NewNormalizer(MethodMultiplicative)

	market, err := n.Normalize(quotes(1.91, 1.91))
	require.NoError(t, err)

	require.Len(t, market.Outcomes, 2)
	for _, o := range market.Outcomes {
		assert.InDelta(t, 0.5, o.FairProbability, 1e-9)
		assert.InDelta(t, 2.0, o.FairOdds, 1e-9)
	}
	assert.InDelta(t, 2/1.91-1, market.Overround, 1e-9)
	assert.Equal(t, "m1", market.MarketID)
}

func TestNormalizeSingleOutcome(t *testing.T) {
	n := NewNormalizer(MethodMultiplicative)

	market, err := n.Normalize(quotes(2.5))
	require.NoError(t, err)

	require.Len(t, market.Outcomes, 1)
	assert.InDelta(t, 0.4, market.Outcomes[0].FairProbability, 1e-12)
	assert.InDelta(t, 2.5, market.Outcomes[0].FairOdds, 1e-9)
}

func TestNormalizeInvalidOdds(t *testing.T) {
	n := NewNormalizer(MethodMultiplicative)

	tests := []struct {
		name string
		odds []float64
	}{
		{name: "exactly one", odds: []float64{1.0, 3.0}},
		{name: "below one", odds: []float64{2.0, 0.5}},
		{name: "zero", odds: []float64{0}},
		{name: "nan", odds: []float64{math.NaN(), 2.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(quotes(tt.odds...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidOdds))

			var oddsErr *models.InvalidOddsError
			assert.True(t, errors.As(err, &oddsErr))
		})
	}
}

func TestNormalizeEmptyMarket(t *testing.T) {
	_, err := NewNormalizer(MethodPower).Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptyMarket)
}

func TestNormalizeSumsToOneRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for _, method := range []Method{MethodMultiplicative, MethodPower} {
		n := NewNormalizer(method)
		for i := 0; i < 500; i++ {
			outcomes := 2 + rng.Intn(6)
			odds := make([]float64, outcomes)
			for j := range odds {
				odds[j] = 1.01 + rng.Float64()*20
			}

			market, err := n.Normalize(quotes(odds...))
			require.NoError(t, err, "method %s odds %v", method, odds)
			assert.InDelta(t, 1.0, sumFair(market), SumTolerance, "method %s odds %v", method, odds)
		}
	}
}

func TestNormalizePowerShrinksLongshot(t *testing.T) {
	q := quotes(1.25, 4.5)

	mult, err := NewNormalizer(MethodMultiplicative).Normalize(q)
	require.NoError(t, err)
	power, err := NewNormalizer(MethodPower).Normalize(q)
	require.NoError(t, err)

	assert.Less(t, power.Outcomes[1].FairProbability, mult.Outcomes[1].FairProbability)
	assert.Greater(t, power.Outcomes[0].FairProbability, mult.Outcomes[0].FairProbability)
	assert.Equal(t, MethodPower, power.Method)
}

func TestMarketOutcomeLookup(t *testing.T) {
	market, err := NewNormalizer(MethodMultiplicative).Normalize(quotes(1.5, 2.8))
	require.NoError(t, err)

	o, ok := market.Outcome("b")
	require.True(t, ok)
	assert.Equal(t, 2.8, o.DecimalOdds)

	_, ok = market.Outcome("zz")
	assert.False(t, ok)
}

func TestNormalizeBatchIsolatesFailures(t *testing.T) {
	n := NewNormalizer(MethodMultiplicative)
	bad := quotes(0.9, 2.0)
	bad[0].MarketID, bad[1].MarketID = "bad", "bad"

	results, err := n.NormalizeBatch(context.Background(), [][]models.MarketQuote{
		quotes(1.91, 1.91),
		bad,
		quotes(1.4, 3.2, 7.0),
	}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, models.ErrInvalidOdds)
	assert.Equal(t, "bad", results[1].MarketID)
	assert.NoError(t, results[2].Err)
	assert.InDelta(t, 1.0, sumFair(results[2].Market), SumTolerance)
}

func TestNormalizeBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNormalizer(MethodMultiplicative).NormalizeBatch(ctx, [][]models.MarketQuote{quotes(2, 2)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
