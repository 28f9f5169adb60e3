package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger records state changes that affect future recommendations.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogPatternSetReplaced logs a wholesale pattern set replacement.
func (al *AuditLogger) LogPatternSetReplaced(corpus, oldVersion, newVersion string, patterns int, at time.Time) {
	al.WithFields(logrus.Fields{
		"corpus":      corpus,
		"old_version": oldVersion,
		"new_version": newVersion,
		"patterns":    patterns,
		"timestamp":   at.Unix(),
	}).Info("Pattern set replaced")
}

// LogStrategyActivated logs which strategy version drives the pipeline.
func (al *AuditLogger) LogStrategyActivated(version string, weights map[string]float64) {
	al.WithFields(logrus.Fields{
		"strategy_version": version,
		"weights":          weights,
		"event_type":       "activation",
	}).Info("Strategy version activated")
}

// LogBatchStatus logs the gate decision for a simulated batch.
func (al *AuditLogger) LogBatchStatus(cycleID, simulationID, status string, reasons []string) {
	entry := al.WithFields(logrus.Fields{
		"cycle_id":      cycleID,
		"simulation_id": simulationID,
		"batch_status":  status,
		"reasons":       reasons,
	})
	if status == "VALIDATED" {
		entry.Info("Batch validated")
		return
	}
	entry.Warn("Batch not validated")
}

// LogCircuitBreakerEvent logs provider circuit breaker transitions.
func (al *AuditLogger) LogCircuitBreakerEvent(eventType, provider string, consecutiveFailures int) {
	al.WithFields(logrus.Fields{
		"event_type":           eventType,
		"provider":             provider,
		"consecutive_failures": consecutiveFailures,
	}).Warn("Circuit breaker event recorded")
}
