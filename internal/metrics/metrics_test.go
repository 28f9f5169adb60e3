package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := InitRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, GetRegistry())
}

func TestRecordCycle(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(CyclesTotal.WithLabelValues("VALIDATED"))

	RecordCycle("VALIDATED", 0.5)

	assert.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("VALIDATED")))
}

func TestRecordSelectionSkipped(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		stage  string
		reason string
	}{
		{name: "invalid odds at sizing", stage: "size", reason: "invalid_odds"},
		{name: "missing factor at estimate", stage: "estimate", reason: "insufficient_sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(SelectionsSkippedTotal.WithLabelValues(tt.stage, tt.reason))
			RecordSelectionSkipped(tt.stage, tt.reason)
			assert.Equal(t, before+1, testutil.ToFloat64(SelectionsSkippedTotal.WithLabelValues(tt.stage, tt.reason)))
		})
	}
}

func TestPipelineMetrics(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordEstimate("bayesian", 0.42)
		RecordAdaptiveFraction(0.03)
		RecordBucketAborted("bold")
		RecordHedges(2)
	})

	UpdateBucketAllocated("safe", 812.5)
	assert.Equal(t, 812.5, testutil.ToFloat64(BucketAllocated.WithLabelValues("safe")))
}

func TestValidationMetrics(t *testing.T) {
	InitRegistry()

	RecordSimulation("REJECTED", -0.02, 0.41)
	assert.Equal(t, -0.02, testutil.ToFloat64(SimulationROIMean))
	assert.Equal(t, 0.41, testutil.ToFloat64(SimulationProfitProbability))

	RecordWalkForward("VALIDATED", 0.8)
	assert.Equal(t, 0.8, testutil.ToFloat64(WalkForwardStability))

	RecordDiscovery("nba", map[string]int{"distance_clustering": 3, "pairwise_association": 5}, 1.2)
	assert.Equal(t, float64(5), testutil.ToFloat64(PatternsDiscovered.WithLabelValues("nba", "pairwise_association")))
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordCircuitBreakerTrip()

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "clever_edge_circuit_breaker_trips_total"))
}

func BenchmarkRecordStageDuration(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordStageDuration("estimate", 0.001)
	}
}
