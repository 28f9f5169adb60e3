package patterns

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-edge/internal/models"
)

// RunResult is the outcome of discovery over one corpus
type RunResult struct {
	Corpus string
	Set    models.PatternSet
	Err    error
}

// DiscoverAll runs independent corpora concurrently. Versions are taken from
// the cache so every replacement is strictly newer than what it replaces.
// Results are ordered by corpus name.
func (d *Discoverer) DiscoverAll(ctx context.Context, cache *Cache, corpora map[string][]models.HistoricalRecord, workers int) ([]RunResult, error) {
	names := make([]string, 0, len(corpora))
	for name := range corpora {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]RunResult, len(names))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			set, err := d.Discover(ctx, name, cache.NextVersion(name), corpora[name])
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = RunResult{Corpus: name, Set: set, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
