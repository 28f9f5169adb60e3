// Package patterns mines historical outcome records for factor signatures
// whose win rate deviates sharply from a coin flip.
package patterns

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

// Discoverer runs distance clustering and pairwise association mining
type Discoverer struct {
	cfg config.DiscoveryConfig
	now func() time.Time
}

// NewDiscoverer creates a discoverer with the given thresholds
func NewDiscoverer(cfg config.DiscoveryConfig) *Discoverer {
	return &Discoverer{cfg: cfg, now: time.Now}
}

// Confidence is min(maxConfidence, sampleSize/calibration)
func Confidence(sampleSize int, calibration, maxConfidence float64) float64 {
	if calibration <= 0 {
		return maxConfidence
	}
	return math.Min(maxConfidence, float64(sampleSize)/calibration)
}

// Discover produces a fresh PatternSet for one corpus. Every record must
// carry the factor dimensions of the first record.
func (d *Discoverer) Discover(ctx context.Context, corpus string, version int, records []models.HistoricalRecord) (models.PatternSet, error) {
	set := models.PatternSet{
		Version:      version,
		Corpus:       corpus,
		DiscoveredAt: d.now().UTC(),
	}
	if len(records) == 0 {
		return set, nil
	}

	dims := records[0].Factors.Names()
	for i, r := range records {
		if err := r.Factors.Validate(); err != nil {
			return models.PatternSet{}, fmt.Errorf("record %d: %w", i, err)
		}
		if err := r.Factors.Require(dims...); err != nil {
			return models.PatternSet{}, fmt.Errorf("record %d: %w", i, err)
		}
	}

	clustered, err := d.clusterPatterns(ctx, dims, records)
	if err != nil {
		return models.PatternSet{}, err
	}
	associated, err := d.associationPatterns(ctx, dims, records)
	if err != nil {
		return models.PatternSet{}, err
	}

	all := append(clustered, associated...)
	for i := range all {
		all[i].ID = uuid.New()
		all[i].Version = version
		all[i].DiscoveredAt = set.DiscoveredAt
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].DiscoveryMethod != all[j].DiscoveryMethod {
			return all[i].DiscoveryMethod < all[j].DiscoveryMethod
		}
		return all[i].Key() < all[j].Key()
	})
	set.Patterns = all
	return set, nil
}

// checkpoint reports cancellation every CancelCheckEvery records
func (d *Discoverer) checkpoint(ctx context.Context, i int) error {
	every := d.cfg.CancelCheckEvery
	if every <= 0 {
		every = 1
	}
	if i%every == 0 {
		return ctx.Err()
	}
	return nil
}

type cluster struct {
	centroid []float64
	size     int
	wins     int
}

func (c *cluster) add(point []float64, won bool) {
	c.size++
	for i, v := range point {
		c.centroid[i] += (v - c.centroid[i]) / float64(c.size)
	}
	if won {
		c.wins++
	}
}

// rmsDistance is the Euclidean distance averaged over dimensions
func rmsDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

func (d *Discoverer) clusterPatterns(ctx context.Context, dims []string, records []models.HistoricalRecord) ([]models.Pattern, error) {
	var clusters []*cluster

	for i, r := range records {
		if err := d.checkpoint(ctx, i); err != nil {
			return nil, err
		}

		point := make([]float64, len(dims))
		for j, name := range dims {
			point[j] = r.Factors[name]
		}

		var target *cluster
		for _, c := range clusters {
			if rmsDistance(point, c.centroid) < d.cfg.DistanceThreshold {
				target = c
				break
			}
		}
		if target == nil {
			target = &cluster{centroid: make([]float64, len(dims))}
			clusters = append(clusters, target)
		}
		target.add(point, r.Won)
	}

	var out []models.Pattern
	for _, c := range clusters {
		if c.size < d.cfg.MinClusterSize {
			continue
		}
		winRate := float64(c.wins) / float64(c.size)
		if winRate <= d.cfg.HighWinRate && winRate >= d.cfg.LowWinRate {
			continue
		}

		signature := make(map[string]models.Level)
		for j, name := range dims {
			if c.centroid[j] > d.cfg.DominanceThreshold {
				signature[name] = models.LevelHigh
			}
		}
		if len(signature) == 0 {
			continue
		}

		out = append(out, models.Pattern{
			Signature:       signature,
			WinRate:         winRate,
			SampleSize:      c.size,
			Confidence:      Confidence(c.size, d.cfg.CalibrationConstant, d.cfg.MaxConfidence),
			DiscoveryMethod: models.DiscoveryClustering,
		})
	}
	return out, nil
}

type item struct {
	factor string
	level  models.Level
}

type pairKey struct {
	a, b item
}

type pairCount struct {
	count int
	wins  int
}

func (d *Discoverer) associationPatterns(ctx context.Context, dims []string, records []models.HistoricalRecord) ([]models.Pattern, error) {
	counts := make(map[pairKey]*pairCount)
	items := make([]item, len(dims))

	for i, r := range records {
		if err := d.checkpoint(ctx, i); err != nil {
			return nil, err
		}

		// dims is sorted, so a always precedes b
		for j, name := range dims {
			items[j] = item{factor: name, level: models.Binarize(r.Factors[name], d.cfg.BinarizeThreshold)}
		}
		for a := 0; a < len(items); a++ {
			for b := a + 1; b < len(items); b++ {
				key := pairKey{a: items[a], b: items[b]}
				pc, ok := counts[key]
				if !ok {
					pc = &pairCount{}
					counts[key] = pc
				}
				pc.count++
				if r.Won {
					pc.wins++
				}
			}
		}
	}

	var out []models.Pattern
	for key, pc := range counts {
		if pc.count < d.cfg.MinPairSupport {
			continue
		}
		winRate := float64(pc.wins) / float64(pc.count)
		if winRate <= d.cfg.PairWinRate {
			continue
		}
		out = append(out, models.Pattern{
			Signature: map[string]models.Level{
				key.a.factor: key.a.level,
				key.b.factor: key.b.level,
			},
			WinRate:         winRate,
			SampleSize:      pc.count,
			Confidence:      Confidence(pc.count, d.cfg.CalibrationConstant, d.cfg.MaxConfidence),
			DiscoveryMethod: models.DiscoveryAssociation,
		})
	}
	return out, nil
}
