package backtest

import (
	"fmt"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
)

// Gate turns validation output into an accept/reject decision for a batch
type Gate struct {
	cfg config.GateConfig
}

// NewGate creates a gate with the given thresholds
func NewGate(cfg config.GateConfig) Gate {
	return Gate{cfg: cfg}
}

// Evaluate returns VALIDATED when every threshold holds, REJECTED with the
// failing reasons otherwise.
func (g Gate) Evaluate(result models.SimulationResult) (models.BatchStatus, []string) {
	var reasons []string
	if result.ProfitProbability < g.cfg.MinProfitProbability {
		reasons = append(reasons, fmt.Sprintf("profit probability %.3f below %.3f", result.ProfitProbability, g.cfg.MinProfitProbability))
	}
	if result.Sharpe < g.cfg.MinSharpe {
		reasons = append(reasons, fmt.Sprintf("sharpe %.3f below %.3f", result.Sharpe, g.cfg.MinSharpe))
	}
	if g.cfg.MaxVaR95 > 0 && result.VaR95 > g.cfg.MaxVaR95 {
		reasons = append(reasons, fmt.Sprintf("VaR95 %.3f above %.3f", result.VaR95, g.cfg.MaxVaR95))
	}
	if len(reasons) > 0 {
		return models.BatchRejected, reasons
	}
	return models.BatchValidated, nil
}

// EvaluateWalkForward rejects unstable walk-forward results
func (g Gate) EvaluateWalkForward(result WalkForwardResult) (models.BatchStatus, []string) {
	if len(result.Windows) == 0 {
		return models.BatchUnvalidated, []string{"no walk-forward windows"}
	}
	if !result.Stable {
		return models.BatchRejected, []string{fmt.Sprintf("stability score %.3f below threshold", result.StabilityScore)}
	}
	return models.BatchValidated, nil
}
