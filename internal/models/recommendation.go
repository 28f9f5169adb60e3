package models

import "github.com/shopspring/decimal"

// Recommendation is one ranked, allocated decision as published to reporting sinks
type Recommendation struct {
	Rank        int             `json:"rank"`
	SelectionID string          `json:"selection_id"`
	Bucket      string          `json:"bucket"`
	Stake       decimal.Decimal `json:"stake"`
	Status      BatchStatus     `json:"status"`
	Decision    SizingDecision  `json:"decision"`
}
