package models

import (
	"encoding/json"
	"time"
)

// PriceBar is the canonical daily bar for one (ticker, source, date).
// Rows are immutable once stored; a re-fetch of the same date replaces
// the row by identity key.
type PriceBar struct {
	Ticker   string    `json:"ticker"`
	Source   string    `json:"source"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   float64   `json:"volume"`
}

// RawBar is a provider row before coercion. Numeric fields are
// json.Number so string-typed payloads (Alpha Vantage) and number-typed
// payloads (Yahoo) decode into the same shape.
type RawBar struct {
	Date     string      `json:"date"`
	Open     json.Number `json:"open"`
	High     json.Number `json:"high"`
	Low      json.Number `json:"low"`
	Close    json.Number `json:"close"`
	AdjClose json.Number `json:"adjusted_close"`
	Volume   json.Number `json:"volume"`

	// Extras carries provider-specific fields that have no canonical
	// column (split coefficients, dividend amounts). Optional.
	Extras map[string]string `json:"extras,omitempty"`
}

// PricePoint is the wire shape of one bar in HTTP responses.
type PricePoint struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjusted_close"`
	Volume   int64   `json:"volume"`
}

// NewPricePoint converts a stored bar to its response shape.
func NewPricePoint(b *PriceBar) PricePoint {
	return PricePoint{
		Date:     b.Date.Format("2006-01-02"),
		Open:     b.Open,
		High:     b.High,
		Low:      b.Low,
		Close:    b.Close,
		AdjClose: b.AdjClose,
		Volume:   int64(b.Volume),
	}
}
