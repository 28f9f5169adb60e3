package portfolio

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

func testConfig(buckets ...config.BucketConfig) config.PortfolioConfig {
	return config.PortfolioConfig{
		Bankroll:               10000,
		Buckets:                buckets,
		MaxCorrelationExposure: 0.65,
		StakePrecision:         2,
	}
}

func decision(id, bucket string, fraction, ev, confidence float64) models.SizingDecision {
	return models.SizingDecision{
		SelectionID:      id,
		Category:         bucket,
		AdaptiveFraction: fraction,
		ExpectedValue:    ev,
		Confidence:       confidence,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRankTiesBySelectionID(t *testing.T) {
	ranked := Rank([]models.SizingDecision{
		decision("c", "safe", 0.01, 0.1, 0.5),
		decision("a", "safe", 0.01, 0.1, 0.5),
		decision("b", "safe", 0.01, 0.2, 0.5),
	})

	ids := []string{ranked[0].SelectionID, ranked[1].SelectionID, ranked[2].SelectionID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestAllocateStopsWhenCapCovered(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 1000, MaxCount: 5}))

	result := a.Allocate([]models.SizingDecision{
		decision("s1", "safe", 0.05, 0.20, 0.9),
		decision("s2", "safe", 0.05, 0.15, 0.9),
		decision("s3", "safe", 0.05, 0.10, 0.9),
	})

	require.Len(t, result.Buckets, 1)
	b := result.Buckets[0]
	require.NoError(t, b.Err)
	require.Len(t, b.Allocations, 2)
	assert.Equal(t, "s1", b.Allocations[0].SelectionID)
	assert.True(t, b.Allocations[0].Stake.Equal(dec("500")))
	assert.True(t, b.Allocations[1].Stake.Equal(dec("500")))
	assert.True(t, b.Allocated.Equal(dec("1000")))
}

func TestAllocateProportionalSplit(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "mid", Cap: 500, MaxCount: 4}))

	result := a.Allocate([]models.SizingDecision{
		decision("s1", "mid", 0.03, 0.2, 0.8),
		decision("s2", "mid", 0.01, 0.1, 0.8),
	})

	b := result.Buckets[0]
	require.Len(t, b.Allocations, 2)
	assert.True(t, b.Allocations[0].Stake.Equal(dec("300")), b.Allocations[0].Stake.String())
	assert.True(t, b.Allocations[1].Stake.Equal(dec("100")), b.Allocations[1].Stake.String())
}

func TestAllocateScalesDownToCap(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "mid", Cap: 500, MaxCount: 4}))

	result := a.Allocate([]models.SizingDecision{
		decision("s1", "mid", 0.04, 0.2, 0.8),
		decision("s2", "mid", 0.04, 0.1, 0.8),
	})

	b := result.Buckets[0]
	require.Len(t, b.Allocations, 2)
	for _, alloc := range b.Allocations {
		assert.True(t, alloc.Stake.Equal(dec("250")), alloc.Stake.String())
		limit := decimal.NewFromFloat(alloc.Decision.AdaptiveFraction * 10000)
		assert.True(t, alloc.Stake.LessThanOrEqual(limit))
	}
}

func TestAllocateMaxCount(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "bold", Cap: 5000, MaxCount: 2}))

	result := a.Allocate([]models.SizingDecision{
		decision("s1", "bold", 0.01, 0.3, 0.5),
		decision("s2", "bold", 0.01, 0.2, 0.5),
		decision("s3", "bold", 0.01, 0.1, 0.5),
	})

	assert.Len(t, result.Buckets[0].Allocations, 2)
}

func TestAllocateSkipsNonPositiveCandidates(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 1000, MaxCount: 5}))

	result := a.Allocate([]models.SizingDecision{
		decision("neg", "safe", 0.02, -0.1, 0.9),
		decision("zero", "safe", 0, 0.2, 0.9),
		decision("ok", "safe", 0.02, 0.1, 0.9),
	})

	require.Len(t, result.Buckets[0].Allocations, 1)
	assert.Equal(t, "ok", result.Buckets[0].Allocations[0].SelectionID)
}

func TestAllocateUnknownBucketDiagnostic(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 1000, MaxCount: 5}))

	result := a.Allocate([]models.SizingDecision{decision("s1", "futures", 0.02, 0.1, 0.9)})

	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0], "futures")
	assert.True(t, result.Total().IsZero())
}

func TestAllocateRoundsDownToPrecision(t *testing.T) {
	a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 100, MaxCount: 5}))

	result := a.Allocate([]models.SizingDecision{
		decision("s1", "safe", 0.01, 0.3, 0.9),
		decision("s2", "safe", 0.01, 0.2, 0.9),
		decision("s3", "safe", 0.01, 0.1, 0.9),
	})

	b := result.Buckets[0]
	// s1 alone covers the cap of 100
	require.Len(t, b.Allocations, 1)
	assert.True(t, b.Allocated.LessThanOrEqual(dec("100")))

	a = NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 100, MaxCount: 5}))
	result = a.Allocate([]models.SizingDecision{
		decision("s1", "safe", 0.003, 0.3, 0.9),
		decision("s2", "safe", 0.003, 0.2, 0.9),
		decision("s3", "safe", 0.003, 0.1, 0.9),
		decision("s4", "safe", 0.003, 0.05, 0.9),
	})
	b = result.Buckets[0]
	require.Len(t, b.Allocations, 4)
	for _, alloc := range b.Allocations {
		assert.True(t, alloc.Stake.Equal(dec("25")), alloc.Stake.String())
	}
}

func TestAllocateNeverExceedsCapUnderTies(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for round := 0; round < 200; round++ {
		capAmount := 10 + rng.Float64()*2000
		maxCount := 1 + rng.Intn(8)
		a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: capAmount, MaxCount: maxCount}))

		fraction := 0.001 + rng.Float64()*0.1
		n := 1 + rng.Intn(30)
		decisions := make([]models.SizingDecision, n)
		for i := range decisions {
			decisions[i] = decision(fmt.Sprintf("s%02d", i), "safe", fraction, 0.1, 0.5)
		}

		result := a.Allocate(decisions)
		b := result.Buckets[0]
		require.NoError(t, b.Err)
		assert.True(t, b.Allocated.LessThanOrEqual(decimal.NewFromFloat(capAmount)),
			"round %d: allocated %s cap %v", round, b.Allocated, capAmount)
		assert.LessOrEqual(t, len(b.Allocations), maxCount)
	}
}

func TestCorrelationHeuristic(t *testing.T) {
	day := time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)
	home := models.SizingDecision{EventID: "g1", Entities: []string{"LAL", "BOS"}, EventDate: day, Direction: models.DirectionHome}
	away := models.SizingDecision{EventID: "g1", Entities: []string{"BOS", "LAL"}, EventDate: day, Direction: models.DirectionAway}
	other := models.SizingDecision{EventID: "g2", Entities: []string{"NYK"}, EventDate: day.Add(2 * time.Hour)}
	unrelated := models.SizingDecision{EventID: "g3", EventDate: day.AddDate(0, 0, 1)}

	assert.InDelta(t, 1.0, Correlation(home, away), 1e-12)
	assert.InDelta(t, 0.1, Correlation(home, other), 1e-12)
	assert.InDelta(t, 0.0, Correlation(other, unrelated), 1e-12)
}

func TestAllocateSuggestsHedges(t *testing.T) {
	day := time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)
	a := NewAllocator(testConfig(config.BucketConfig{Name: "safe", Cap: 1000, MaxCount: 5}))

	first := decision("home", "safe", 0.05, 0.2, 0.9)
	first.EventID, first.Entities, first.EventDate, first.Direction = "g1", []string{"LAL"}, day, models.DirectionHome
	second := decision("away", "safe", 0.03, 0.1, 0.9)
	second.EventID, second.Entities, second.EventDate, second.Direction = "g1", []string{"LAL"}, day, models.DirectionAway
	third := decision("other", "safe", 0.01, 0.05, 0.9)
	third.EventID, third.EventDate = "g9", day

	result := a.Allocate([]models.SizingDecision{first, second, third})

	require.Len(t, result.Hedges, 1)
	h := result.Hedges[0]
	assert.Equal(t, "home", h.Against)
	assert.InDelta(t, 0.8, h.Ratio, 1e-12)
	assert.True(t, h.Amount.Equal(dec("160")), h.Amount.String())

	// original stakes are untouched
	assert.True(t, result.Buckets[0].Allocations[0].Stake.Equal(dec("500")))
}
