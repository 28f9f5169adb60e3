package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/yourusername/clever-edge/internal/backtest"
	"github.com/yourusername/clever-edge/internal/logger"
	"github.com/yourusername/clever-edge/internal/metrics"
	"github.com/yourusername/clever-edge/internal/models"
)

// DiscoveryReport summarizes one re-discovery pass
type DiscoveryReport struct {
	Corpus          string `json:"corpus"`
	Version         int    `json:"version"`
	PreviousVersion int    `json:"previous_version"`
	Records         int    `json:"records"`
	Patterns        int    `json:"patterns"`
	Replaced        bool   `json:"replaced"`
	Error           string `json:"error,omitempty"`
}

// Rediscover rebuilds the pattern set of every corpus and swaps each one into
// the cache whole. A corpus that fails keeps its previous set.
func (p *Pipeline) Rediscover(ctx context.Context, corpora map[string][]models.HistoricalRecord) ([]DiscoveryReport, error) {
	start := time.Now()
	results, err := p.discoverer.DiscoverAll(ctx, p.cache, corpora, p.workers)
	if err != nil {
		return nil, fmt.Errorf("pattern discovery cancelled: %w", err)
	}
	elapsed := time.Since(start)
	metrics.RecordStageDuration(logger.StageDiscover, elapsed.Seconds())

	reports := make([]DiscoveryReport, 0, len(results))
	for _, res := range results {
		report := DiscoveryReport{Corpus: res.Corpus, Records: len(corpora[res.Corpus])}
		if res.Err != nil {
			p.plog.LogSelectionSkipped(logger.StageDiscover, res.Corpus, res.Err)
			report.Error = res.Err.Error()
			reports = append(reports, report)
			continue
		}

		report.Version = res.Set.Version
		report.Patterns = len(res.Set.Patterns)
		report.PreviousVersion, report.Replaced = p.cache.Replace(res.Set)
		if report.Replaced {
			p.audit.LogPatternSetReplaced(res.Corpus, strconv.Itoa(report.PreviousVersion), strconv.Itoa(res.Set.Version), report.Patterns, res.Set.DiscoveredAt)
			p.savePatterns(ctx, res.Set)
		}

		byMethod := make(map[string]int)
		for _, pat := range res.Set.Patterns {
			byMethod[string(pat.DiscoveryMethod)]++
		}
		metrics.RecordDiscovery(res.Corpus, byMethod, elapsed.Seconds())
		p.plog.LogDiscover(res.Corpus, strconv.Itoa(res.Set.Version), report.Records, report.Patterns, elapsed)
		reports = append(reports, report)
	}
	return reports, nil
}

// RediscoverFromProvider loads each corpus from the outcome provider before rediscovering
func (p *Pipeline) RediscoverFromProvider(ctx context.Context, corpora []string) ([]DiscoveryReport, error) {
	if p.deps.Outcomes == nil {
		return nil, fmt.Errorf("outcome provider is not configured")
	}
	records := make(map[string][]models.HistoricalRecord, len(corpora))
	for _, corpus := range corpora {
		rs, err := p.deps.Outcomes.GetOutcomeRecords(ctx, corpus)
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus %s: %w", corpus, err)
		}
		records[corpus] = rs
	}
	return p.Rediscover(ctx, records)
}

// WalkForward validates the current strategy on a corpus using pattern
// discovery plus the composite estimate as the model.
func (p *Pipeline) WalkForward(ctx context.Context, corpus string, records []models.HistoricalRecord) (backtest.WalkForwardResult, models.BatchStatus, []string, error) {
	fitter := backtest.PatternFitter{Discoverer: p.discoverer, Estimator: p.estimator, Corpus: corpus}
	result, err := backtest.RunWalkForward(ctx, records, fitter, p.strategy.WalkForward)
	if err != nil {
		metrics.RecordWalkForward(string(models.BatchUnvalidated), 0)
		return backtest.WalkForwardResult{}, models.BatchUnvalidated, []string{err.Error()}, err
	}
	status, reasons := p.gate.EvaluateWalkForward(result)
	metrics.RecordWalkForward(string(status), result.StabilityScore)
	return result, status, reasons, nil
}

func (p *Pipeline) savePatterns(ctx context.Context, set models.PatternSet) {
	if p.deps.Persistence == nil {
		return
	}
	for _, pat := range set.Patterns {
		if err := p.deps.Persistence.SavePattern(ctx, set.Corpus, pat); err != nil {
			p.plog.LogSinkFailure(logger.StagePersist, "pattern", err)
			metrics.RecordSinkFailure("persistence")
		}
	}
}
