package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the outcome of validating a recommendation batch
type BatchStatus string

const (
	BatchValidated   BatchStatus = "VALIDATED"
	BatchRejected    BatchStatus = "REJECTED"
	BatchUnvalidated BatchStatus = "UNVALIDATED"
)

// SimulationResult summarizes a Monte Carlo validation run
type SimulationResult struct {
	ID                uuid.UUID `json:"id"`
	Trials            int       `json:"trials"`
	ROIMean           float64   `json:"roi_mean"`
	ROIStd            float64   `json:"roi_std"`
	ROIMin            float64   `json:"roi_min"`
	ROIMax            float64   `json:"roi_max"`
	Sharpe            float64   `json:"sharpe"`
	ProfitProbability float64   `json:"profit_probability"`
	VaR95             float64   `json:"var_95"`
	CVaR95            float64   `json:"cvar_95"`
	Seed              int64     `json:"seed"`
	CreatedAt         time.Time `json:"created_at"`
}
