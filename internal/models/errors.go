package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recommendation core
var (
	ErrInvalidOdds          = errors.New("invalid odds")
	ErrInvalidProbability   = errors.New("invalid probability")
	ErrInsufficientSample   = errors.New("insufficient sample")
	ErrAllocationOverBudget = errors.New("allocation over budget")
	ErrSimulationDivergence = errors.New("simulation divergence")
	ErrFactorOutOfRange     = errors.New("factor out of range")
)

// InvalidOddsError reports decimal odds at or below 1.0
type InvalidOddsError struct {
	SelectionID string
	Odds        float64
}

func (e *InvalidOddsError) Error() string {
	if e.SelectionID == "" {
		return fmt.Sprintf("invalid odds %.4f: decimal odds must be greater than 1.0", e.Odds)
	}
	return fmt.Sprintf("invalid odds %.4f for selection %s: decimal odds must be greater than 1.0", e.Odds, e.SelectionID)
}

func (e *InvalidOddsError) Unwrap() error { return ErrInvalidOdds }

// InsufficientSampleError reports fewer observations than required, or a missing signal
type InsufficientSampleError struct {
	Subject  string
	Have     int
	Required int
}

func (e *InsufficientSampleError) Error() string {
	return fmt.Sprintf("insufficient sample for %s: have %d, need %d", e.Subject, e.Have, e.Required)
}

func (e *InsufficientSampleError) Unwrap() error { return ErrInsufficientSample }

// AllocationOverBudgetError reports a bucket whose accepted stakes exceed its cap
type AllocationOverBudgetError struct {
	Bucket    string
	Allocated string
	Cap       string
}

func (e *AllocationOverBudgetError) Error() string {
	return fmt.Sprintf("bucket %s allocated %s exceeds cap %s", e.Bucket, e.Allocated, e.Cap)
}

func (e *AllocationOverBudgetError) Unwrap() error { return ErrAllocationOverBudget }

// SimulationDivergenceError reports non-finite output or an unusable trial count
type SimulationDivergenceError struct {
	Reason string
	Trial  int
}

func (e *SimulationDivergenceError) Error() string {
	if e.Trial >= 0 {
		return fmt.Sprintf("simulation diverged at trial %d: %s", e.Trial, e.Reason)
	}
	return fmt.Sprintf("simulation diverged: %s", e.Reason)
}

func (e *SimulationDivergenceError) Unwrap() error { return ErrSimulationDivergence }
