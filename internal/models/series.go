package models

// ReturnSeries holds realized per-bet returns as a fraction of stake, oldest first
type ReturnSeries struct {
	SelectionID string    `json:"selection_id"`
	Returns     []float64 `json:"returns"`
}

// Len returns the number of observations
func (r ReturnSeries) Len() int {
	return len(r.Returns)
}

// Recent returns up to the last k observations
func (r ReturnSeries) Recent(k int) []float64 {
	if k <= 0 || k >= len(r.Returns) {
		return r.Returns
	}
	return r.Returns[len(r.Returns)-k:]
}

// WinRate returns the share of observations with a positive return
func (r ReturnSeries) WinRate() float64 {
	if len(r.Returns) == 0 {
		return 0
	}
	wins := 0
	for _, v := range r.Returns {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(r.Returns))
}

// RiskProfile summarizes the tail risk of a ReturnSeries snapshot
type RiskProfile struct {
	VaR99        float64 `json:"var_99"`
	VaR95        float64 `json:"var_95"`
	CVaR95       float64 `json:"cvar_95"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Volatility   float64 `json:"volatility"`
	Observations int     `json:"observations"`
}
