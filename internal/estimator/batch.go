package estimator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-edge/internal/models"
)

// BatchResult holds one selection's estimate or the error that skipped it
type BatchResult struct {
	SelectionID string
	Estimate    models.ProbabilityEstimate
	Err         error
}

// EstimateBatch evaluates independent selections concurrently, keeping input order.
// Per-selection errors are returned in the results; only cancellation fails the batch.
func (e *Estimator) EstimateBatch(ctx context.Context, inputs []Input, workers int) ([]BatchResult, error) {
	results := make([]BatchResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			est, err := e.Estimate(in)
			results[i] = BatchResult{SelectionID: in.SelectionID, Estimate: est, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
