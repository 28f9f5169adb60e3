package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Stage names reported by the pipeline
const (
	StageNormalize = "normalize"
	StageEstimate  = "estimate"
	StageSize      = "size"
	StageAllocate  = "allocate"
	StageSimulate  = "simulate"
	StageDiscover  = "discover"
	StagePersist   = "persist"
	StagePublish   = "publish"
)

// PipelineLogger emits one structured event per analysis stage.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// WithCycle scopes the logger to one analysis cycle.
func (pl *PipelineLogger) WithCycle(cycleID, strategyVersion string) *PipelineLogger {
	return &PipelineLogger{
		Entry: pl.WithFields(logrus.Fields{
			"cycle_id":         cycleID,
			"strategy_version": strategyVersion,
		}),
	}
}

func (pl *PipelineLogger) stage(stage string) *logrus.Entry {
	return pl.WithField("stage", stage)
}

// LogNormalize logs a normalized market.
func (pl *PipelineLogger) LogNormalize(marketID string, outcomes int, overround float64, method string) {
	pl.stage(StageNormalize).WithFields(logrus.Fields{
		"market_id": marketID,
		"outcomes":  outcomes,
		"overround": overround,
		"method":    method,
	}).Debug("Market normalized")
}

// LogEstimate logs a probability estimate.
func (pl *PipelineLogger) LogEstimate(selectionID, mode string, point, uncertainty, confidence float64, matchedPatterns int) {
	pl.stage(StageEstimate).WithFields(logrus.Fields{
		"selection_id":     selectionID,
		"mode":             mode,
		"point_estimate":   point,
		"uncertainty":      uncertainty,
		"confidence":       confidence,
		"matched_patterns": matchedPatterns,
	}).Debug("Probability estimated")
}

// LogEstimateFallback logs that the Bayesian update was skipped for lack of history.
func (pl *PipelineLogger) LogEstimateFallback(selectionID string, err error) {
	pl.stage(StageEstimate).WithFields(logrus.Fields{
		"selection_id": selectionID,
		"reason":       err.Error(),
	}).Info("Falling back to composite estimate")
}

// LogSize logs a sizing decision.
func (pl *PipelineLogger) LogSize(selectionID string, baseKelly, adaptive, expectedValue, var95 float64) {
	pl.stage(StageSize).WithFields(logrus.Fields{
		"selection_id":      selectionID,
		"base_kelly":        baseKelly,
		"adaptive_fraction": adaptive,
		"expected_value":    expectedValue,
		"var_95":            var95,
	}).Debug("Position sized")
}

// LogSelectionSkipped logs a selection dropped from the cycle.
func (pl *PipelineLogger) LogSelectionSkipped(stage, selectionID string, err error) {
	pl.stage(stage).WithFields(logrus.Fields{
		"selection_id": selectionID,
		"error":        err.Error(),
	}).Warn("Selection skipped")
}

// LogMarketSkipped logs a market dropped from the cycle.
func (pl *PipelineLogger) LogMarketSkipped(marketID string, err error) {
	pl.stage(StageNormalize).WithFields(logrus.Fields{
		"market_id": marketID,
		"error":     err.Error(),
	}).Warn("Market skipped")
}

// LogAllocate logs the result of one bucket.
func (pl *PipelineLogger) LogAllocate(bucket string, accepted int, allocated, capAmount string) {
	pl.stage(StageAllocate).WithFields(logrus.Fields{
		"bucket":    bucket,
		"accepted":  accepted,
		"allocated": allocated,
		"cap":       capAmount,
	}).Info("Bucket allocated")
}

// LogBucketAborted logs a bucket whose allocation failed.
func (pl *PipelineLogger) LogBucketAborted(bucket string, err error) {
	pl.stage(StageAllocate).WithFields(logrus.Fields{
		"bucket": bucket,
		"error":  err.Error(),
	}).Error("Bucket allocation aborted")
}

// LogHedge logs a hedge suggestion.
func (pl *PipelineLogger) LogHedge(first, second string, correlation float64, amount string) {
	pl.stage(StageAllocate).WithFields(logrus.Fields{
		"selection_a": first,
		"selection_b": second,
		"correlation": correlation,
		"amount":      amount,
	}).Info("Hedge suggested")
}

// LogSimulate logs a Monte Carlo summary.
func (pl *PipelineLogger) LogSimulate(simulationID string, trials int, roiMean, profitProbability, var95 float64, duration time.Duration) {
	pl.stage(StageSimulate).WithFields(logrus.Fields{
		"simulation_id":      simulationID,
		"trials":             trials,
		"roi_mean":           roiMean,
		"profit_probability": profitProbability,
		"var_95":             var95,
		"duration_ms":        duration.Milliseconds(),
	}).Info("Simulation completed")
}

// LogSimulationFailed logs a batch that could not be validated.
func (pl *PipelineLogger) LogSimulationFailed(err error) {
	pl.stage(StageSimulate).WithField("error", err.Error()).Error("Simulation failed, batch left unvalidated")
}

// LogDiscover logs a discovery run over one corpus.
func (pl *PipelineLogger) LogDiscover(corpus, version string, records, patterns int, duration time.Duration) {
	pl.stage(StageDiscover).WithFields(logrus.Fields{
		"corpus":      corpus,
		"version":     version,
		"records":     records,
		"patterns":    patterns,
		"duration_ms": duration.Milliseconds(),
	}).Info("Pattern discovery completed")
}

// LogSinkFailure logs a persistence or reporting failure.
func (pl *PipelineLogger) LogSinkFailure(stage, sink string, err error) {
	pl.stage(stage).WithFields(logrus.Fields{
		"sink":  sink,
		"error": err.Error(),
	}).Error("Sink write failed")
}

// LogCycleCompleted logs the end of an analysis cycle.
func (pl *PipelineLogger) LogCycleCompleted(decisions, allocated, skipped int, status string, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"decisions":    decisions,
		"allocated":    allocated,
		"skipped":      skipped,
		"batch_status": status,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Analysis cycle completed")
}
