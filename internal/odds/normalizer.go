// Package odds removes bookmaker margin from mutually exclusive market quotes.
package odds

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/clever-edge/internal/models"
)

// Method selects how the overround is distributed across outcomes
type Method string

const (
	// MethodMultiplicative rescales every implied probability by 1/S
	MethodMultiplicative Method = "multiplicative"
	// MethodPower solves sum(p_i^k) = 1, shrinking longshots more than favourites
	MethodPower Method = "power"
)

// SumTolerance bounds how far fair probabilities may sum from 1
const SumTolerance = 1e-6

// ErrEmptyMarket is returned when a market has no quotes
var ErrEmptyMarket = errors.New("market has no quotes")

// Outcome is one selection of a normalized market
type Outcome struct {
	SelectionID        string  `json:"selection_id"`
	DecimalOdds        float64 `json:"decimal_odds"`
	ImpliedProbability float64 `json:"implied_probability"`
	FairProbability    float64 `json:"fair_probability"`
	FairOdds           float64 `json:"fair_odds"`
}

// Market is a vig-free view of one mutually exclusive market
type Market struct {
	MarketID  string    `json:"market_id"`
	Outcomes  []Outcome `json:"outcomes"`
	Overround float64   `json:"overround"`
	Method    Method    `json:"method"`
}

// Outcome returns the normalized outcome for a selection
func (m Market) Outcome(selectionID string) (Outcome, bool) {
	for _, o := range m.Outcomes {
		if o.SelectionID == selectionID {
			return o, true
		}
	}
	return Outcome{}, false
}

// FairProbabilities returns fair probabilities in quote order
func (m Market) FairProbabilities() []float64 {
	out := make([]float64, len(m.Outcomes))
	for i, o := range m.Outcomes {
		out[i] = o.FairProbability
	}
	return out
}

// Normalizer converts decimal quotes into fair probabilities
type Normalizer struct {
	method Method
}

// NewNormalizer creates a normalizer; an unknown method falls back to multiplicative
func NewNormalizer(method Method) *Normalizer {
	if method != MethodPower {
		method = MethodMultiplicative
	}
	return &Normalizer{method: method}
}

// Normalize removes the overround from one market's quotes. A single-outcome
// market is returned with its implied probability unchanged.
func (n *Normalizer) Normalize(quotes []models.MarketQuote) (Market, error) {
	if len(quotes) == 0 {
		return Market{}, ErrEmptyMarket
	}

	market := Market{
		MarketID: quotes[0].MarketID,
		Outcomes: make([]Outcome, len(quotes)),
		Method:   n.method,
	}

	implied := make([]float64, len(quotes))
	sum := 0.0
	for i, q := range quotes {
		if err := q.Validate(); err != nil {
			return Market{}, err
		}
		implied[i] = q.ImpliedProbability()
		sum += implied[i]
	}
	market.Overround = sum - 1

	fair := implied
	if len(quotes) > 1 {
		switch n.method {
		case MethodPower:
			fair = powerFair(implied)
		default:
			fair = multiplicativeFair(implied, sum)
		}
		if err := checkSum(fair); err != nil {
			return Market{}, err
		}
	}

	for i, q := range quotes {
		market.Outcomes[i] = Outcome{
			SelectionID:        q.SelectionID,
			DecimalOdds:        q.DecimalOdds,
			ImpliedProbability: implied[i],
			FairProbability:    fair[i],
			FairOdds:           1 / fair[i],
		}
	}

	return market, nil
}

func multiplicativeFair(implied []float64, sum float64) []float64 {
	out := make([]float64, len(implied))
	for i, p := range implied {
		out[i] = p / sum
	}
	return out
}

// powerFair raises every implied probability to the exponent k that makes
// them sum to one, then rescales away the residual bisection error.
func powerFair(implied []float64) []float64 {
	k := findPowerExponent(implied)
	out := make([]float64, len(implied))
	sum := 0.0
	for i, p := range implied {
		out[i] = math.Pow(p, k)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// findPowerExponent finds k such that sum(p_i^k) = 1 by bisection.
// Higher k shrinks every p in (0,1), so the sum decreases monotonically in k.
func findPowerExponent(ps []float64) float64 {
	const (
		tolerance = 1e-12
		maxIters  = 200
	)

	powSum := func(k float64) float64 {
		s := 0.0
		for _, p := range ps {
			s += math.Pow(p, k)
		}
		return s
	}

	low, high := 0.01, 10.0
	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		s := powSum(mid)
		if math.Abs(s-1) < tolerance {
			return mid
		}
		if s > 1 {
			low = mid
		} else {
			high = mid
		}
	}
	return (low + high) / 2
}

func checkSum(fair []float64) error {
	sum := 0.0
	for _, p := range fair {
		if math.IsNaN(p) || p <= 0 || p >= 1 {
			return fmt.Errorf("%w: fair probability %v outside (0,1)", models.ErrInvalidProbability, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("%w: fair probabilities sum to %.9f", models.ErrInvalidProbability, sum)
	}
	return nil
}
