package odds

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-edge/internal/models"
)

// BatchResult is the outcome of normalizing one market in a batch
type BatchResult struct {
	MarketID string
	Market   Market
	Err      error
}

// NormalizeBatch normalizes independent markets concurrently. A failing market
// is reported in its result and never aborts the others. Results keep input order.
func (n *Normalizer) NormalizeBatch(ctx context.Context, markets [][]models.MarketQuote, workers int) ([]BatchResult, error) {
	results := make([]BatchResult, len(markets))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, quotes := range markets {
		i, quotes := i, quotes
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := BatchResult{}
			if len(quotes) > 0 {
				res.MarketID = quotes[0].MarketID
			}
			res.Market, res.Err = n.Normalize(quotes)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
