package models

import "time"

// Direction is the side of a market a decision takes
type Direction string

const (
	DirectionHome  Direction = "home"
	DirectionAway  Direction = "away"
	DirectionOver  Direction = "over"
	DirectionUnder Direction = "under"
	DirectionDraw  Direction = "draw"
)

// Opposes reports whether two directions are opposite sides of the same market
func (d Direction) Opposes(other Direction) bool {
	switch d {
	case DirectionHome:
		return other == DirectionAway
	case DirectionAway:
		return other == DirectionHome
	case DirectionOver:
		return other == DirectionUnder
	case DirectionUnder:
		return other == DirectionOver
	}
	return false
}

// SizingDecision is a risk-adjusted bankroll fraction for one selection
type SizingDecision struct {
	SelectionID       string      `json:"selection_id"`
	BaseKellyFraction float64     `json:"base_kelly_fraction"`
	AdaptiveFraction  float64     `json:"adaptive_fraction"`
	RiskProfile       RiskProfile `json:"risk_profile"`
	ExpectedValue     float64     `json:"expected_value"`
	Confidence        float64     `json:"confidence"`

	Probability float64   `json:"probability"`
	DecimalOdds float64   `json:"decimal_odds"`
	OfferedOdds float64   `json:"offered_odds,omitempty"`
	Category    string    `json:"category"`
	EventID     string    `json:"event_id"`
	Entities    []string  `json:"entities,omitempty"`
	EventDate   time.Time `json:"event_date"`
	Direction   Direction `json:"direction,omitempty"`
}

// PayoutOdds is the price a winning stake is settled at: the offered price
// when known, else the sized odds
func (d SizingDecision) PayoutOdds() float64 {
	if d.OfferedOdds > 1.0 {
		return d.OfferedOdds
	}
	return d.DecimalOdds
}

// Score is the ranking key used by allocation and reporting
func (d SizingDecision) Score() float64 {
	return d.ExpectedValue * d.Confidence
}
