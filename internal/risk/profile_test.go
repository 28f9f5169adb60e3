package risk

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProfileTenSamples(t *testing.T) {
	returns := []float64{-0.1, -0.08, 0.05, 0.12, -0.15, 0.20, -0.05, 0.03, -0.02, 0.18}

	profile := ComputeProfile(returns)

	assert.InDelta(t, 0.15, profile.VaR99, 1e-12)
	assert.InDelta(t, 0.15, profile.VaR95, 1e-12)
	assert.InDelta(t, 0.15, profile.CVaR95, 1e-12)
	assert.Equal(t, 10, profile.Observations)
	assert.Greater(t, profile.Volatility, 0.0)
	assert.Equal(t, -0.1, returns[0], "input must not be reordered")
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{name: "empty", returns: nil, expected: 0},
		{name: "monotonic gains", returns: []float64{0.1, 0.2, 0.3}, expected: 0},
		{name: "single dip", returns: []float64{0.2, -0.1, -0.15, 0.3}, expected: 0.25},
		{name: "losses from start", returns: []float64{-0.1, -0.1}, expected: 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, MaxDrawdown(tt.returns), 1e-12)
		})
	}
}

func TestCVaRNeverBelowVaR(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(300)
		returns := make([]float64, n)
		for j := range returns {
			returns[j] = rng.NormFloat64() * 0.2
		}
		profile := ComputeProfile(returns)
		require.GreaterOrEqual(t, profile.CVaR95, profile.VaR95, "series %d", i)
		require.GreaterOrEqual(t, profile.VaR99, profile.VaR95-1e-12, "series %d", i)
	}
}

func TestCVaRWithTiedTail(t *testing.T) {
	tied := 0 - 0.08 - 0.04 - 0.1
	returns := make([]float64, 5000)
	for i := range returns {
		if i < 300 {
			returns[i] = tied
		} else {
			returns[i] = 0.1
		}
	}

	profile := ComputeProfile(returns)
	assert.InDelta(t, 0.22, profile.VaR95, 1e-12)
	assert.GreaterOrEqual(t, profile.CVaR95, profile.VaR95)
	assert.InDelta(t, 0.22, profile.CVaR95, 1e-12)
	assert.GreaterOrEqual(t, ConditionalValueAtRisk(returns, 0.95), ValueAtRisk(returns, 0.95))
}

func TestLossMagnitudeOfGains(t *testing.T) {
	profile := ComputeProfile([]float64{0.1, 0.2, 0.3})
	assert.Zero(t, profile.VaR95)
	assert.Zero(t, profile.CVaR95)
}

func TestSampleStdDev(t *testing.T) {
	assert.Zero(t, SampleStdDev([]float64{1}))
	assert.InDelta(t, 1.0, SampleStdDev([]float64{1, 2, 3}), 1e-12)
}
