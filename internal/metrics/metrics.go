// Package metrics provides centralized Prometheus metrics registry for the recommendation engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every exported metric
const Namespace = "clever_edge"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	CyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cycles_total",
		Help:      "Total number of analysis cycles by batch status",
	}, []string{"status"})
	SelectionsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "selections_skipped_total",
		Help:      "Selections dropped from a cycle by stage and error kind",
	}, []string{"stage", "reason"})
	EstimatorFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "estimator_fallback_total",
		Help:      "Estimates that fell back to the composite for lack of history",
	})
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "provider_requests_total",
		Help:      "Requests to external providers by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of provider circuit breaker trips",
	})
	SinkFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_failures_total",
		Help:      "Persistence and reporting failures by sink",
	}, []string{"sink"})
)

// Histogram metrics
var (
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of full analysis cycles in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(CyclesTotal)
		registry.MustRegister(SelectionsSkippedTotal)
		registry.MustRegister(EstimatorFallbackTotal)
		registry.MustRegister(ProviderRequestsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(SinkFailuresTotal)

		registry.MustRegister(StageDuration)
		registry.MustRegister(CycleDuration)

		registry.MustRegister(EstimateConfidence)
		registry.MustRegister(AdaptiveFraction)
		registry.MustRegister(BucketAllocated)
		registry.MustRegister(BucketAbortedTotal)
		registry.MustRegister(HedgesSuggestedTotal)

		registry.MustRegister(SimulationsTotal)
		registry.MustRegister(SimulationROIMean)
		registry.MustRegister(SimulationProfitProbability)
		registry.MustRegister(WalkForwardStability)
		registry.MustRegister(PatternsDiscovered)
		registry.MustRegister(DiscoveryDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordCycle records a completed analysis cycle.
func RecordCycle(status string, durationSeconds float64) {
	CyclesTotal.WithLabelValues(status).Inc()
	CycleDuration.Observe(durationSeconds)
}

// RecordStageDuration records how long one pipeline stage took.
func RecordStageDuration(stage string, durationSeconds float64) {
	StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordSelectionSkipped records a selection dropped at a stage.
func RecordSelectionSkipped(stage, reason string) {
	SelectionsSkippedTotal.WithLabelValues(stage, reason).Inc()
}

// RecordEstimatorFallback records a composite-only estimate.
func RecordEstimatorFallback() {
	EstimatorFallbackTotal.Inc()
}

// RecordProviderRequest records an external provider call.
func RecordProviderRequest(endpoint, outcome string) {
	ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordSinkFailure records a failed sink write.
func RecordSinkFailure(sink string) {
	SinkFailuresTotal.WithLabelValues(sink).Inc()
}
