package metrics

import "github.com/prometheus/client_golang/prometheus"

// Simulation and discovery metrics
var (
	SimulationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "simulations_total",
		Help:      "Total number of validation runs by method and status",
	}, []string{"method", "status"})
	SimulationROIMean = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "simulation_roi_mean",
		Help:      "Mean ROI of the last Monte Carlo run",
	})
	SimulationProfitProbability = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "simulation_profit_probability",
		Help:      "Share of profitable trials in the last Monte Carlo run",
	})
	WalkForwardStability = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "walk_forward_stability",
		Help:      "Stability score of the last walk-forward validation",
	})
	PatternsDiscovered = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "patterns_discovered",
		Help:      "Patterns in the current set per corpus and discovery method",
	}, []string{"corpus", "method"})
	DiscoveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "discovery_duration_seconds",
		Help:      "Duration of pattern discovery runs per corpus",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
	}, []string{"corpus"})
)

// RecordSimulation records a Monte Carlo run.
// status should be one of: "VALIDATED", "REJECTED", "UNVALIDATED"
func RecordSimulation(status string, roiMean, profitProbability float64) {
	SimulationsTotal.WithLabelValues("monte_carlo", status).Inc()
	SimulationROIMean.Set(roiMean)
	SimulationProfitProbability.Set(profitProbability)
}

// RecordWalkForward records a walk-forward validation run.
func RecordWalkForward(status string, stability float64) {
	SimulationsTotal.WithLabelValues("walk_forward", status).Inc()
	WalkForwardStability.Set(stability)
}

// RecordDiscovery records a pattern discovery run.
func RecordDiscovery(corpus string, byMethod map[string]int, durationSeconds float64) {
	for method, count := range byMethod {
		PatternsDiscovered.WithLabelValues(corpus, method).Set(float64(count))
	}
	DiscoveryDuration.WithLabelValues(corpus).Observe(durationSeconds)
}
