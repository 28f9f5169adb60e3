package models

// EstimateMode identifies how a ProbabilityEstimate was produced
type EstimateMode string

const (
	EstimateModeComposite EstimateMode = "composite"
	EstimateModeBayesian  EstimateMode = "bayesian"
)

// ProbabilityEstimate is a composite win probability with its uncertainty
type ProbabilityEstimate struct {
	SelectionID         string       `json:"selection_id"`
	PointEstimate       float64      `json:"point_estimate"`
	Uncertainty         float64      `json:"uncertainty"`
	Confidence          float64      `json:"confidence"`
	ContributingFactors FactorSet    `json:"contributing_factors"`
	Mode                EstimateMode `json:"mode"`
	RawScore            float64      `json:"raw_score"`
	PatternBoost        float64      `json:"pattern_boost"`
	MatchedPatterns     int          `json:"matched_patterns"`
}
