package models

import (
	"fmt"
	"math"
	"sort"
)

// Factor names used by the default weight tables
const (
	FactorMomentum      = "momentum"
	FactorFatigue       = "fatigue"
	FactorRivalry       = "rivalry"
	FactorClutch        = "clutch"
	FactorInjuries      = "injuries"
	FactorSeasonal      = "seasonal"
	FactorHomeAway      = "home_away"
	FactorSimulation    = "simulation"
	FactorRosterQuality = "roster_quality"
	FactorChemistry     = "chemistry"
	FactorExperience    = "experience"
	FactorMarketValue   = "market_value"
)

// FactorSet maps a signal name to a value normalized into [0,1]
type FactorSet map[string]float64

// Validate rejects non-finite values and values outside [0,1]
func (f FactorSet) Validate() error {
	for name, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrFactorOutOfRange, name, v)
		}
	}
	return nil
}

// Require fails when any named signal is absent
func (f FactorSet) Require(names ...string) error {
	for _, name := range names {
		if _, ok := f[name]; !ok {
			return &InsufficientSampleError{Subject: "factor " + name, Have: 0, Required: 1}
		}
	}
	return nil
}

// Names returns the factor names in sorted order
func (f FactorSet) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy
func (f FactorSet) Clone() FactorSet {
	out := make(FactorSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
