package models

import "time"

// HistoricalRecord is one settled outcome together with the signals known beforehand
type HistoricalRecord struct {
	SelectionID string    `json:"selection_id"`
	Factors     FactorSet `json:"factors"`
	Won         bool      `json:"won"`
	DecimalOdds float64   `json:"decimal_odds"`
	EventDate   time.Time `json:"event_date"`
}
