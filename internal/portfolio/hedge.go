package portfolio

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/clever-edge/internal/models"
)

// Correlation weights of the exposure heuristic
const (
	sameEventWeight         = 0.4
	sharedEntityWeight      = 0.3
	sameDateWeight          = 0.1
	oppositeDirectionWeight = 0.2

	maxHedgeRatio    = 0.8
	hedgeStakeFactor = 0.4
)

// Hedge suggests an offsetting position against the larger of two correlated stakes
type Hedge struct {
	First       string          `json:"first"`
	Second      string          `json:"second"`
	Against     string          `json:"against"`
	Correlation float64         `json:"correlation"`
	Ratio       float64         `json:"ratio"`
	Amount      decimal.Decimal `json:"amount"`
}

// Correlation scores exposure overlap between two decisions in [0,1]
func Correlation(a, b models.SizingDecision) float64 {
	score := 0.0
	sameEvent := a.EventID != "" && a.EventID == b.EventID
	if sameEvent {
		score += sameEventWeight
	}
	if sharesEntity(a.Entities, b.Entities) {
		score += sharedEntityWeight
	}
	if !a.EventDate.IsZero() && !b.EventDate.IsZero() {
		ay, am, ad := a.EventDate.UTC().Date()
		by, bm, bd := b.EventDate.UTC().Date()
		if ay == by && am == bm && ad == bd {
			score += sameDateWeight
		}
	}
	if sameEvent && a.Direction.Opposes(b.Direction) {
		score += oppositeDirectionWeight
	}
	return math.Min(1, score)
}

func sharesEntity(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, e := range a {
		seen[e] = struct{}{}
	}
	for _, e := range b {
		if _, ok := seen[e]; ok {
			return true
		}
	}
	return false
}

// SuggestHedges emits a hedge for every pair whose correlation exceeds
// maxExposure. Original stakes are never resized.
func SuggestHedges(allocations []Allocation, maxExposure float64, precision int32) []Hedge {
	var hedges []Hedge
	for i := 0; i < len(allocations); i++ {
		for j := i + 1; j < len(allocations); j++ {
			a, b := allocations[i], allocations[j]
			corr := Correlation(a.Decision, b.Decision)
			if corr <= maxExposure {
				continue
			}

			larger := a
			if b.Stake.GreaterThan(a.Stake) {
				larger = b
			}
			ratio := math.Min(maxHedgeRatio, corr)
			amount := larger.Stake.
				Mul(decimal.NewFromFloat(ratio)).
				Mul(decimal.NewFromFloat(hedgeStakeFactor)).
				RoundFloor(precision)

			hedges = append(hedges, Hedge{
				First:       a.SelectionID,
				Second:      b.SelectionID,
				Against:     larger.SelectionID,
				Correlation: corr,
				Ratio:       ratio,
				Amount:      amount,
			})
		}
	}
	return hedges
}
