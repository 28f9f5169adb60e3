package models

import "time"

// MarketQuote is a single decimal price for one outcome of a market
type MarketQuote struct {
	MarketID    string    `json:"market_id"`
	SelectionID string    `json:"selection_id" validate:"required"`
	DecimalOdds float64   `json:"decimal_odds" validate:"gt=1"`
	Timestamp   time.Time `json:"timestamp"`
}

// Validate checks the odds invariant
func (q MarketQuote) Validate() error {
	if !(q.DecimalOdds > 1.0) {
		return &InvalidOddsError{SelectionID: q.SelectionID, Odds: q.DecimalOdds}
	}
	return nil
}

// ImpliedProbability returns 1/odds
func (q MarketQuote) ImpliedProbability() float64 {
	return 1.0 / q.DecimalOdds
}
