package metrics

import "github.com/prometheus/client_golang/prometheus"

// Estimation and sizing histograms
var (
	EstimateConfidence = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "estimate_confidence",
		Help:      "Confidence of probability estimates by mode",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	}, []string{"mode"})
	AdaptiveFraction = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "adaptive_fraction",
		Help:      "Risk-adjusted bankroll fractions produced by the sizer",
		Buckets:   []float64{0, 0.005, 0.01, 0.02, 0.03, 0.05, 0.075, 0.1, 0.25},
	})
)

// Allocation metrics
var (
	BucketAllocated = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "bucket_allocated",
		Help:      "Amount allocated in the last cycle per bucket",
	}, []string{"bucket"})
	BucketAbortedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "bucket_aborted_total",
		Help:      "Buckets whose allocation was aborted",
	}, []string{"bucket"})
	HedgesSuggestedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "hedges_suggested_total",
		Help:      "Total number of hedge suggestions emitted",
	})
)

// RecordEstimate records the confidence of a probability estimate.
func RecordEstimate(mode string, confidence float64) {
	EstimateConfidence.WithLabelValues(mode).Observe(confidence)
}

// RecordAdaptiveFraction records a sizing decision's fraction.
func RecordAdaptiveFraction(fraction float64) {
	AdaptiveFraction.Observe(fraction)
}

// UpdateBucketAllocated sets the allocated amount for a bucket.
func UpdateBucketAllocated(bucket string, amount float64) {
	BucketAllocated.WithLabelValues(bucket).Set(amount)
}

// RecordBucketAborted records an aborted bucket.
func RecordBucketAborted(bucket string) {
	BucketAbortedTotal.WithLabelValues(bucket).Inc()
}

// RecordHedges records emitted hedge suggestions.
func RecordHedges(count int) {
	HedgesSuggestedTotal.Add(float64(count))
}
