// Package portfolio spreads a bounded budget across sizing decisions under
// per-bucket caps and flags correlated exposure.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

// Bucket is a named slice of the budget
type Bucket struct {
	Name     string
	Cap      decimal.Decimal
	MaxCount int
}

// Allocation is one accepted stake
type Allocation struct {
	SelectionID string                `json:"selection_id"`
	Bucket      string                `json:"bucket"`
	Stake       decimal.Decimal       `json:"stake"`
	Decision    models.SizingDecision `json:"decision"`
}

// BucketResult is the outcome of allocating one bucket
type BucketResult struct {
	Bucket      string          `json:"bucket"`
	Cap         decimal.Decimal `json:"cap"`
	Allocated   decimal.Decimal `json:"allocated"`
	Allocations []Allocation    `json:"allocations"`
	Err         error           `json:"-"`
}

// Result is a full allocation with hedge suggestions and diagnostics
type Result struct {
	Buckets     []BucketResult `json:"buckets"`
	Hedges      []Hedge        `json:"hedges"`
	Diagnostics []string       `json:"diagnostics"`
}

// Allocations returns every accepted stake across buckets in allocation order
func (r Result) Allocations() []Allocation {
	var out []Allocation
	for _, b := range r.Buckets {
		out = append(out, b.Allocations...)
	}
	return out
}

// Total returns the sum of all accepted stakes
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Buckets {
		total = total.Add(b.Allocated)
	}
	return total
}

// Allocator assigns stakes bucket by bucket
type Allocator struct {
	bankroll    decimal.Decimal
	buckets     []Bucket
	precision   int32
	maxExposure float64
}

// NewAllocator builds an allocator from portfolio configuration
func NewAllocator(cfg config.PortfolioConfig) *Allocator {
	buckets := make([]Bucket, len(cfg.Buckets))
	for i, b := range cfg.Buckets {
		buckets[i] = Bucket{Name: b.Name, Cap: decimal.NewFromFloat(b.Cap), MaxCount: b.MaxCount}
	}
	return &Allocator{
		bankroll:    decimal.NewFromFloat(cfg.Bankroll),
		buckets:     buckets,
		precision:   cfg.StakePrecision,
		maxExposure: cfg.MaxCorrelationExposure,
	}
}

// Allocate ranks decisions within their bucket (Category) and assigns stakes.
// A failing bucket is aborted on its own; the rest of the result stands.
func (a *Allocator) Allocate(decisions []models.SizingDecision) Result {
	byBucket := make(map[string][]models.SizingDecision)
	known := make(map[string]bool, len(a.buckets))
	for _, b := range a.buckets {
		known[b.Name] = true
	}

	var result Result
	for _, d := range decisions {
		if !known[d.Category] {
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("selection %s: no bucket named %q", d.SelectionID, d.Category))
			continue
		}
		byBucket[d.Category] = append(byBucket[d.Category], d)
	}

	for _, b := range a.buckets {
		br, err := a.allocateBucket(b, byBucket[b.Name])
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, err.Error())
			br = BucketResult{Bucket: b.Name, Cap: b.Cap, Allocated: decimal.Zero, Err: err}
		}
		result.Buckets = append(result.Buckets, br)
	}

	result.Hedges = SuggestHedges(result.Allocations(), a.maxExposure, a.precision)
	return result
}

// Rank orders decisions by expected value times confidence, ties by SelectionID
func Rank(decisions []models.SizingDecision) []models.SizingDecision {
	ranked := append([]models.SizingDecision(nil), decisions...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score(), ranked[j].Score()
		if si != sj {
			return si > sj
		}
		return ranked[i].SelectionID < ranked[j].SelectionID
	})
	return ranked
}

func (a *Allocator) allocateBucket(b Bucket, candidates []models.SizingDecision) (BucketResult, error) {
	result := BucketResult{Bucket: b.Name, Cap: b.Cap, Allocated: decimal.Zero}
	if !b.Cap.IsPositive() {
		return result, nil
	}

	// Accept in rank order until the cap is covered or the count limit is hit
	var accepted []models.SizingDecision
	limits := make(map[string]decimal.Decimal)
	covered := decimal.Zero
	for _, d := range Rank(candidates) {
		if d.AdaptiveFraction <= 0 || d.ExpectedValue <= 0 {
			continue
		}
		if b.MaxCount > 0 && len(accepted) >= b.MaxCount {
			break
		}
		if covered.GreaterThanOrEqual(b.Cap) {
			break
		}
		limit := a.bankroll.Mul(decimal.NewFromFloat(d.AdaptiveFraction))
		accepted = append(accepted, d)
		limits[d.SelectionID] = limit
		covered = covered.Add(limit)
	}
	if len(accepted) == 0 {
		return result, nil
	}

	budget := decimal.Min(b.Cap, covered)
	totalFraction := decimal.Zero
	for _, d := range accepted {
		totalFraction = totalFraction.Add(decimal.NewFromFloat(d.AdaptiveFraction))
	}

	for _, d := range accepted {
		share := budget.Mul(decimal.NewFromFloat(d.AdaptiveFraction)).Div(totalFraction)
		stake := decimal.Min(share, limits[d.SelectionID]).RoundFloor(a.precision)
		if !stake.IsPositive() {
			continue
		}
		result.Allocations = append(result.Allocations, Allocation{
			SelectionID: d.SelectionID,
			Bucket:      b.Name,
			Stake:       stake,
			Decision:    d,
		})
		result.Allocated = result.Allocated.Add(stake)
	}

	if result.Allocated.GreaterThan(b.Cap) {
		return BucketResult{}, &models.AllocationOverBudgetError{
			Bucket:    b.Name,
			Allocated: result.Allocated.String(),
			Cap:       b.Cap.String(),
		}
	}
	return result, nil
}
