package backtest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

func simConfig(trials int) config.SimulationConfig {
	cfg := config.DefaultStrategyConfig().Simulation
	cfg.Trials = trials
	return cfg
}

func evenMoneyDecision() models.SizingDecision {
	return models.SizingDecision{
		SelectionID:      "sel-1",
		Probability:      0.6,
		DecimalOdds:      2.0,
		AdaptiveFraction: 1.0,
	}
}

func TestMonteCarloConvergesToExpectedValue(t *testing.T) {
	cfg := simConfig(50000)
	cfg.BlackSwanProbability = 0

	result, err := NewMonteCarloValidator(cfg, 4, nil).Run(context.Background(), []models.SizingDecision{evenMoneyDecision()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Trials != 50000 {
		t.Fatalf("expected 50000 trials, got %d", result.Trials)
	}
	if math.Abs(result.ROIMean-0.20) > 0.02 {
		t.Fatalf("expected mean ROI near 0.20, got %.4f", result.ROIMean)
	}
	if math.Abs(result.ProfitProbability-0.6) > 0.02 {
		t.Fatalf("expected profit probability near 0.6, got %.4f", result.ProfitProbability)
	}
	if result.ROIMin != -1 || result.ROIMax != 1 {
		t.Fatalf("expected ROI range [-1, 1], got [%v, %v]", result.ROIMin, result.ROIMax)
	}
}

func TestMonteCarloReproducibleAcrossWorkerCounts(t *testing.T) {
	cfg := simConfig(2000)
	cfg.BatchSize = 64
	decisions := []models.SizingDecision{
		evenMoneyDecision(),
		{SelectionID: "sel-2", Probability: 0.3, DecimalOdds: 4.5, AdaptiveFraction: 0.05},
	}

	sequential, err := NewMonteCarloValidator(cfg, 1, nil).Distribution(context.Background(), decisions)
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	parallel, err := NewMonteCarloValidator(cfg, 8, nil).Distribution(context.Background(), decisions)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Fatalf("trial %d differs: %v vs %v", i, sequential[i], parallel[i])
		}
	}

	a, _ := NewMonteCarloValidator(cfg, 2, nil).Run(context.Background(), decisions)
	b, _ := NewMonteCarloValidator(cfg, 6, nil).Run(context.Background(), decisions)
	if a.ROIMean != b.ROIMean || a.VaR95 != b.VaR95 || a.Seed != b.Seed {
		t.Fatalf("expected identical summaries, got %+v and %+v", a, b)
	}
}

func TestMonteCarloRejectsTooFewTrials(t *testing.T) {
	cfg := simConfig(50)

	_, err := NewMonteCarloValidator(cfg, 1, nil).Run(context.Background(), []models.SizingDecision{evenMoneyDecision()})
	if !errors.Is(err, models.ErrSimulationDivergence) {
		t.Fatalf("expected divergence error, got %v", err)
	}
}

func TestMonteCarloRejectsEmptyBatchAndBadOdds(t *testing.T) {
	v := NewMonteCarloValidator(simConfig(200), 1, nil)

	if _, err := v.Run(context.Background(), nil); !errors.Is(err, models.ErrSimulationDivergence) {
		t.Fatalf("expected divergence error for empty batch, got %v", err)
	}

	bad := evenMoneyDecision()
	bad.DecimalOdds = 1.0
	if _, err := v.Run(context.Background(), []models.SizingDecision{bad}); !errors.Is(err, models.ErrInvalidOdds) {
		t.Fatalf("expected invalid odds error, got %v", err)
	}
}

func TestMonteCarloHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMonteCarloValidator(simConfig(10000), 2, nil).Run(ctx, []models.SizingDecision{evenMoneyDecision()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMonteCarloTailRiskOrdering(t *testing.T) {
	cfg := simConfig(5000)
	cfg.BlackSwanProbability = 0.2
	decisions := []models.SizingDecision{
		{SelectionID: "a", Probability: 0.55, DecimalOdds: 1.9, AdaptiveFraction: 0.08},
		{SelectionID: "b", Probability: 0.4, DecimalOdds: 2.8, AdaptiveFraction: 0.04},
		{SelectionID: "c", Probability: 0.7, DecimalOdds: 1.5, AdaptiveFraction: 0.1},
	}

	result, err := NewMonteCarloValidator(cfg, 4, nil).Run(context.Background(), decisions)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.VaR95 > result.CVaR95 {
		t.Fatalf("expected VaR95 <= CVaR95, got %v > %v", result.VaR95, result.CVaR95)
	}
	if result.ROIStd <= 0 {
		t.Fatalf("expected positive ROI spread")
	}
	if result.Sharpe != result.ROIMean/result.ROIStd {
		t.Fatalf("expected sharpe to be mean over std")
	}
}

func TestMonteCarloBlackSwanLowersReturn(t *testing.T) {
	calm := simConfig(20000)
	calm.BlackSwanProbability = 0
	stressed := simConfig(20000)
	stressed.BlackSwanProbability = 1
	stressed.BlackSwanDiscount = 0.5

	decisions := []models.SizingDecision{evenMoneyDecision()}
	base, err := NewMonteCarloValidator(calm, 2, nil).Run(context.Background(), decisions)
	if err != nil {
		t.Fatalf("calm run failed: %v", err)
	}
	shocked, err := NewMonteCarloValidator(stressed, 2, nil).Run(context.Background(), decisions)
	if err != nil {
		t.Fatalf("stressed run failed: %v", err)
	}
	// win probability halves to 0.3, so mean ROI moves to about -0.4
	if math.Abs(shocked.ROIMean+0.4) > 0.03 {
		t.Fatalf("expected stressed mean near -0.4, got %.4f", shocked.ROIMean)
	}
	if shocked.ROIMean >= base.ROIMean {
		t.Fatalf("expected black swan regime to lower mean ROI")
	}
}

func TestMonteCarloSettlesAtOfferedOdds(t *testing.T) {
	cfg := simConfig(500)
	cfg.BlackSwanProbability = 0

	decision := models.SizingDecision{
		SelectionID:      "sel-1",
		Probability:      1.0,
		DecimalOdds:      2.0,
		OfferedOdds:      1.5,
		AdaptiveFraction: 1.0,
	}
	result, err := NewMonteCarloValidator(cfg, 2, nil).Run(context.Background(), []models.SizingDecision{decision})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(result.ROIMean-0.5) > 1e-9 {
		t.Fatalf("expected every trial to pay 0.5 at the offered price, got %.4f", result.ROIMean)
	}
}
