package models

import "time"

// Tick is one generated OTC price.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix ms
}

// Time returns the tick timestamp as time.Time.
func (t Tick) Time() time.Time { return time.UnixMilli(t.Timestamp) }

// ReferenceQuote is a real-market price print for a base symbol.
type ReferenceQuote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume,omitempty"`
	Timestamp int64   `json:"timestamp"` // unix ms
}
