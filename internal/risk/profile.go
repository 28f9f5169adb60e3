// Package risk derives tail-risk measures from return distributions.
package risk

import (
	"math"
	"sort"

	"github.com/yourusername/clever-edge/internal/models"
)

// ComputeProfile derives a RiskProfile from a return series snapshot.
// The input slice is never modified.
func ComputeProfile(returns []float64) models.RiskProfile {
	if len(returns) == 0 {
		return models.RiskProfile{}
	}
	sorted := sortedCopy(returns)
	return models.RiskProfile{
		VaR99:        valueAtRisk(sorted, 0.99),
		VaR95:        valueAtRisk(sorted, 0.95),
		CVaR95:       conditionalValueAtRisk(sorted, 0.95),
		MaxDrawdown:  MaxDrawdown(returns),
		Volatility:   SampleStdDev(returns),
		Observations: len(returns),
	}
}

// ValueAtRisk returns the loss magnitude at the (1-level) quantile
func ValueAtRisk(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return valueAtRisk(sortedCopy(returns), level)
}

// ConditionalValueAtRisk returns the mean loss magnitude of the tail up to and
// including the VaR cutoff, so it is never below ValueAtRisk at the same level.
func ConditionalValueAtRisk(returns []float64, level float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return conditionalValueAtRisk(sortedCopy(returns), level)
}

func valueAtRisk(sorted []float64, level float64) float64 {
	return lossMagnitude(sorted[tailIndex(len(sorted), level)])
}

// conditionalValueAtRisk averages the tail with compensated summation and is
// bounded below by VaR, since no tail value exceeds the cutoff return.
func conditionalValueAtRisk(sorted []float64, level float64) float64 {
	idx := tailIndex(len(sorted), level)
	sum, c := 0.0, 0.0
	for _, v := range sorted[:idx+1] {
		y := v - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return math.Max(valueAtRisk(sorted, level), lossMagnitude(sum/float64(idx+1)))
}

func tailIndex(n int, level float64) int {
	index := int(math.Floor((1.0 - level) * float64(n)))
	if index < 0 {
		index = 0
	}
	if index >= n {
		index = n - 1
	}
	return index
}

// a gain in the tail is reported as zero loss
func lossMagnitude(r float64) float64 {
	if r >= 0 {
		return 0
	}
	return -r
}

// MaxDrawdown returns the largest peak-to-trough decline of the cumulative return curve
func MaxDrawdown(returns []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDD := 0.0
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Mean returns the arithmetic mean
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev returns the n-1 standard deviation, 0 for fewer than two values
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// MinMax returns the smallest and largest value
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64{}, values...)
	sort.Float64s(out)
	return out
}
