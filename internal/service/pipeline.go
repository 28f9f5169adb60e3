// Package service wires the analysis cycle: normalize quotes, estimate and
// size every selection, allocate, validate, then persist and publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-edge/internal/backtest"
	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/estimator"
	"github.com/yourusername/clever-edge/internal/logger"
	"github.com/yourusername/clever-edge/internal/metrics"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/odds"
	"github.com/yourusername/clever-edge/internal/patterns"
	"github.com/yourusername/clever-edge/internal/portfolio"
	"github.com/yourusername/clever-edge/internal/provider"
	"github.com/yourusername/clever-edge/internal/sizing"
)

// Dependencies are the collaborators of a Pipeline. Sinks are optional.
type Dependencies struct {
	Markets     provider.MarketDataProvider
	Context     provider.ContextProvider
	History     provider.HistoryProvider
	Outcomes    provider.OutcomeProvider
	Persistence provider.PersistenceSink
	Reporting   provider.ReportingSink
}

// SelectionContext carries the exposure metadata of one selection
type SelectionContext struct {
	Category  string
	Entities  []string
	Direction models.Direction
}

// MarketRequest asks the cycle to evaluate every selection of one market
type MarketRequest struct {
	MarketID   string
	Corpus     string
	Category   string
	EventID    string
	EventDate  time.Time
	Selections map[string]SelectionContext
}

// SkippedSelection records why a market or selection left the candidate list
type SkippedSelection struct {
	Stage       string `json:"stage"`
	MarketID    string `json:"market_id"`
	SelectionID string `json:"selection_id,omitempty"`
	Reason      string `json:"reason"`
}

// CycleReport is the outcome of one RunCycle
type CycleReport struct {
	CycleID         string                   `json:"cycle_id"`
	StrategyVersion string                   `json:"strategy_version"`
	Status          models.BatchStatus       `json:"status"`
	StatusReasons   []string                 `json:"status_reasons,omitempty"`
	Decisions       []models.SizingDecision  `json:"decisions"`
	Allocation      portfolio.Result         `json:"allocation"`
	Recommendations []models.Recommendation  `json:"recommendations"`
	Simulation      *models.SimulationResult `json:"simulation,omitempty"`
	Skipped         []SkippedSelection       `json:"skipped,omitempty"`
	StartedAt       time.Time                `json:"started_at"`
	CompletedAt     time.Time                `json:"completed_at"`
}

// Pipeline runs analysis cycles for one strategy version
type Pipeline struct {
	deps     Dependencies
	strategy config.StrategyConfig
	workers  int

	normalizer *odds.Normalizer
	estimator  *estimator.Estimator
	sizer      *sizing.Sizer
	allocator  *portfolio.Allocator
	validator  *backtest.MonteCarloValidator
	gate       backtest.Gate
	discoverer *patterns.Discoverer
	cache      *patterns.Cache

	logger *logrus.Logger
	plog   *logger.PipelineLogger
	audit  *logger.AuditLogger
	now    func() time.Time
}

// NewPipeline builds every component from the strategy configuration
func NewPipeline(strategy config.StrategyConfig, deps Dependencies, cache *patterns.Cache, workers int, log *logrus.Logger) (*Pipeline, error) {
	if deps.Markets == nil || deps.Context == nil || deps.History == nil {
		return nil, fmt.Errorf("market, context and history providers are required")
	}
	if log == nil {
		log = logrus.New()
	}
	if workers <= 0 {
		workers = 1
	}
	if cache == nil {
		cache = patterns.NewCache(time.Duration(strategy.Discovery.CacheTTLMinutes) * time.Minute)
	}

	plog := logger.NewPipelineLogger(log)
	est, err := estimator.New(strategy.Weights, strategy.Estimator, estimator.WithObserver(plog))
	if err != nil {
		return nil, fmt.Errorf("failed to build estimator: %w", err)
	}

	return &Pipeline{
		deps:       deps,
		strategy:   strategy,
		workers:    workers,
		normalizer: odds.NewNormalizer(odds.MethodMultiplicative),
		estimator:  est,
		sizer:      sizing.NewSizer(strategy.Risk, log),
		allocator:  portfolio.NewAllocator(strategy.Portfolio),
		validator:  backtest.NewMonteCarloValidator(strategy.Simulation, workers, log),
		gate:       backtest.NewGate(strategy.Gate),
		discoverer: patterns.NewDiscoverer(strategy.Discovery),
		cache:      cache,
		logger:     log,
		plog:       plog,
		audit:      logger.NewAuditLogger(log),
		now:        time.Now,
	}, nil
}

// Cache returns the pattern cache consulted by estimates
func (p *Pipeline) Cache() *patterns.Cache {
	return p.cache
}

type candidate struct {
	market    MarketRequest
	outcome   odds.Outcome
	selection SelectionContext
}

type selectionResult struct {
	decision models.SizingDecision
	skipped  *SkippedSelection
}

// RunCycle evaluates the requested markets. Bad quotes or missing signals drop
// the affected selection, a failing bucket drops only that bucket, and a
// failing simulation marks the batch UNVALIDATED.
func (p *Pipeline) RunCycle(ctx context.Context, requests []MarketRequest) (*CycleReport, error) {
	started := p.now()
	report := &CycleReport{
		CycleID:         uuid.New().String(),
		StrategyVersion: p.strategy.Version,
		StartedAt:       started.UTC(),
	}
	plog := p.plog.WithCycle(report.CycleID, p.strategy.Version)

	stageStart := time.Now()
	candidates, skipped, err := p.normalizeMarkets(ctx, plog, requests)
	if err != nil {
		metrics.RecordCycle("error", time.Since(stageStart).Seconds())
		return nil, err
	}
	report.Skipped = append(report.Skipped, skipped...)
	metrics.RecordStageDuration(logger.StageNormalize, time.Since(stageStart).Seconds())

	stageStart = time.Now()
	decisions, skipped, err := p.sizeCandidates(ctx, plog, candidates)
	if err != nil {
		metrics.RecordCycle("error", time.Since(started).Seconds())
		return nil, err
	}
	report.Skipped = append(report.Skipped, skipped...)
	report.Decisions = decisions
	metrics.RecordStageDuration(logger.StageSize, time.Since(stageStart).Seconds())

	stageStart = time.Now()
	report.Allocation = p.allocator.Allocate(decisions)
	p.observeAllocation(plog, report.Allocation)
	metrics.RecordStageDuration(logger.StageAllocate, time.Since(stageStart).Seconds())

	allocated := report.Allocation.Allocations()
	p.validate(ctx, plog, report, allocated)
	if err := ctx.Err(); err != nil {
		metrics.RecordCycle("error", time.Since(started).Seconds())
		return nil, err
	}

	report.Recommendations = recommendations(allocated, report.Status)
	p.persist(ctx, plog, report)
	p.publish(ctx, plog, report)

	report.CompletedAt = p.now().UTC()
	elapsed := time.Since(started)
	metrics.RecordCycle(string(report.Status), elapsed.Seconds())
	plog.LogCycleCompleted(len(decisions), len(allocated), len(report.Skipped), string(report.Status), elapsed)
	simID := ""
	if report.Simulation != nil {
		simID = report.Simulation.ID.String()
	}
	p.audit.LogBatchStatus(report.CycleID, simID, string(report.Status), report.StatusReasons)
	return report, nil
}

// normalizeMarkets fetches and normalizes every market concurrently
func (p *Pipeline) normalizeMarkets(ctx context.Context, plog *logger.PipelineLogger, requests []MarketRequest) ([]candidate, []SkippedSelection, error) {
	markets := make([]odds.Market, len(requests))
	failures := make([]error, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			quotes, err := p.deps.Markets.GetQuotes(gctx, req.MarketID)
			if err == nil {
				for j := range quotes {
					quotes[j].MarketID = req.MarketID
				}
				markets[i], err = p.normalizer.Normalize(quotes)
			}
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var candidates []candidate
	var skipped []SkippedSelection
	for i, req := range requests {
		if failures[i] != nil {
			plog.LogMarketSkipped(req.MarketID, failures[i])
			metrics.RecordSelectionSkipped(logger.StageNormalize, skipReason(failures[i]))
			skipped = append(skipped, SkippedSelection{Stage: logger.StageNormalize, MarketID: req.MarketID, Reason: failures[i].Error()})
			continue
		}
		m := markets[i]
		plog.LogNormalize(req.MarketID, len(m.Outcomes), m.Overround, string(m.Method))
		for _, o := range m.Outcomes {
			candidates = append(candidates, candidate{market: req, outcome: o, selection: req.Selections[o.SelectionID]})
		}
	}
	return candidates, skipped, nil
}

// sizeCandidates estimates and sizes every candidate, preserving input order
func (p *Pipeline) sizeCandidates(ctx context.Context, plog *logger.PipelineLogger, candidates []candidate) ([]models.SizingDecision, []SkippedSelection, error) {
	results := make([]selectionResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			res, err := p.sizeOne(gctx, plog, c)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var decisions []models.SizingDecision
	var skipped []SkippedSelection
	for _, r := range results {
		if r.skipped != nil {
			skipped = append(skipped, *r.skipped)
			continue
		}
		decisions = append(decisions, r.decision)
	}
	return decisions, skipped, nil
}

// sizeOne returns an error only for cancellation; anything else skips the selection
func (p *Pipeline) sizeOne(ctx context.Context, plog *logger.PipelineLogger, c candidate) (selectionResult, error) {
	selID := c.outcome.SelectionID
	skip := func(stage string, err error) (selectionResult, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return selectionResult{}, ctxErr
		}
		plog.LogSelectionSkipped(stage, selID, err)
		metrics.RecordSelectionSkipped(stage, skipReason(err))
		return selectionResult{skipped: &SkippedSelection{
			Stage:       stage,
			MarketID:    c.market.MarketID,
			SelectionID: selID,
			Reason:      err.Error(),
		}}, nil
	}

	asOf := c.market.EventDate
	if asOf.IsZero() {
		asOf = p.now()
	}
	factors, err := p.deps.Context.GetFactors(ctx, selID, asOf)
	if err != nil {
		return skip(logger.StageEstimate, fmt.Errorf("failed to get factors: %w", err))
	}
	factors = factors.Clone()
	factors[models.FactorMarketValue] = c.outcome.FairProbability

	series, err := p.deps.History.GetReturnSeries(ctx, selID)
	if err != nil {
		return skip(logger.StageEstimate, fmt.Errorf("failed to get return series: %w", err))
	}

	est, err := p.estimator.Estimate(estimator.Input{
		SelectionID: selID,
		Factors:     factors,
		Series:      series,
		Patterns:    p.cache.Patterns(c.market.Corpus),
	})
	if err != nil {
		return skip(logger.StageEstimate, err)
	}
	metrics.RecordEstimate(string(est.Mode), est.Confidence)
	if est.Mode == models.EstimateModeComposite && series.Len() < p.strategy.Estimator.MinObservations {
		metrics.RecordEstimatorFallback()
	}
	plog.LogEstimate(selID, string(est.Mode), est.PointEstimate, est.Uncertainty, est.Confidence, est.MatchedPatterns)

	category := c.selection.Category
	if category == "" {
		category = c.market.Category
	}
	if category == "" {
		category = RiskTier(c.outcome.FairProbability)
	}

	decision, err := p.sizer.Size(sizing.Request{
		SelectionID: selID,
		Probability: est.PointEstimate,
		Confidence:  est.Confidence,
		DecimalOdds: c.outcome.FairOdds,
		OfferedOdds: c.outcome.DecimalOdds,
		Series:      series,
		Category:    category,
		EventID:     c.market.EventID,
		Entities:    c.selection.Entities,
		EventDate:   c.market.EventDate,
		Direction:   c.selection.Direction,
	})
	if err != nil {
		return skip(logger.StageSize, err)
	}
	metrics.RecordAdaptiveFraction(decision.AdaptiveFraction)
	plog.LogSize(selID, decision.BaseKellyFraction, decision.AdaptiveFraction, decision.ExpectedValue, decision.RiskProfile.VaR95)
	return selectionResult{decision: decision}, nil
}

func (p *Pipeline) observeAllocation(plog *logger.PipelineLogger, result portfolio.Result) {
	for _, b := range result.Buckets {
		if b.Err != nil {
			plog.LogBucketAborted(b.Bucket, b.Err)
			metrics.RecordBucketAborted(b.Bucket)
			continue
		}
		plog.LogAllocate(b.Bucket, len(b.Allocations), b.Allocated.String(), b.Cap.String())
		metrics.UpdateBucketAllocated(b.Bucket, b.Allocated.InexactFloat64())
	}
	for _, h := range result.Hedges {
		plog.LogHedge(h.First, h.Second, h.Correlation, h.Amount.String())
	}
	metrics.RecordHedges(len(result.Hedges))
}

// validate simulates the allocated decisions and gates the batch
func (p *Pipeline) validate(ctx context.Context, plog *logger.PipelineLogger, report *CycleReport, allocated []portfolio.Allocation) {
	if len(allocated) == 0 {
		report.Status = models.BatchUnvalidated
		report.StatusReasons = []string{"no allocations to validate"}
		return
	}

	decisions := make([]models.SizingDecision, len(allocated))
	for i, a := range allocated {
		decisions[i] = a.Decision
	}

	start := time.Now()
	result, err := p.validator.Run(ctx, decisions)
	elapsed := time.Since(start)
	metrics.RecordStageDuration(logger.StageSimulate, elapsed.Seconds())
	if err != nil {
		plog.LogSimulationFailed(err)
		metrics.RecordSimulation(string(models.BatchUnvalidated), 0, 0)
		report.Status = models.BatchUnvalidated
		report.StatusReasons = []string{err.Error()}
		return
	}

	plog.LogSimulate(result.ID.String(), result.Trials, result.ROIMean, result.ProfitProbability, result.VaR95, elapsed)
	report.Simulation = &result
	report.Status, report.StatusReasons = p.gate.Evaluate(result)
	metrics.RecordSimulation(string(report.Status), result.ROIMean, result.ProfitProbability)
}

func (p *Pipeline) persist(ctx context.Context, plog *logger.PipelineLogger, report *CycleReport) {
	sink := p.deps.Persistence
	if sink == nil {
		return
	}
	start := time.Now()
	for _, d := range report.Decisions {
		if err := sink.SaveDecision(ctx, report.CycleID, d); err != nil {
			plog.LogSinkFailure(logger.StagePersist, "decision", err)
			metrics.RecordSinkFailure("persistence")
		}
	}
	if report.Simulation != nil {
		if err := sink.SaveSimulation(ctx, report.CycleID, *report.Simulation, report.Status); err != nil {
			plog.LogSinkFailure(logger.StagePersist, "simulation", err)
			metrics.RecordSinkFailure("persistence")
		}
	}
	metrics.RecordStageDuration(logger.StagePersist, time.Since(start).Seconds())
}

func (p *Pipeline) publish(ctx context.Context, plog *logger.PipelineLogger, report *CycleReport) {
	sink := p.deps.Reporting
	if sink == nil || len(report.Recommendations) == 0 {
		return
	}
	start := time.Now()
	if err := sink.Publish(ctx, report.CycleID, report.Recommendations); err != nil {
		plog.LogSinkFailure(logger.StagePublish, "reporting", err)
		metrics.RecordSinkFailure("reporting")
	}
	metrics.RecordStageDuration(logger.StagePublish, time.Since(start).Seconds())
}

// recommendations ranks allocated stakes by score across buckets
func recommendations(allocated []portfolio.Allocation, status models.BatchStatus) []models.Recommendation {
	byID := make(map[string]portfolio.Allocation, len(allocated))
	decisions := make([]models.SizingDecision, 0, len(allocated))
	for _, a := range allocated {
		byID[a.SelectionID] = a
		decisions = append(decisions, a.Decision)
	}

	ranked := portfolio.Rank(decisions)
	out := make([]models.Recommendation, 0, len(ranked))
	for i, d := range ranked {
		a := byID[d.SelectionID]
		out = append(out, models.Recommendation{
			Rank:        i + 1,
			SelectionID: d.SelectionID,
			Bucket:      a.Bucket,
			Stake:       a.Stake,
			Status:      status,
			Decision:    d,
		})
	}
	return out
}

// RiskTier maps a fair probability onto the safe/mid/bold buckets
func RiskTier(fairProbability float64) string {
	switch {
	case fairProbability >= 0.5:
		return "safe"
	case fairProbability >= 0.3:
		return "mid"
	default:
		return "bold"
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInvalidOdds):
		return "invalid_odds"
	case errors.Is(err, models.ErrInsufficientSample):
		return "insufficient_sample"
	case errors.Is(err, models.ErrFactorOutOfRange):
		return "factor_out_of_range"
	case errors.Is(err, models.ErrInvalidProbability):
		return "invalid_probability"
	case errors.Is(err, odds.ErrEmptyMarket):
		return "empty_market"
	default:
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			return "provider"
		}
		return "other"
	}
}
