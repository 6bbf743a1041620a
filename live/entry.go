// Package live owns the mutable display state of every catalog item and the
// engine that keeps it moving.
package live

import (
	"encoding/json"
	"math"
)

// Kind selects the tick rule applied to an entry.
type Kind string

const (
	KindCounter Kind = "counter"
	KindReseed  Kind = "reseed"
	KindWalk    Kind = "walk"
	KindQuote   Kind = "quote"
)

// Quote is the numeric state behind walk and quote entries.
type Quote struct {
	LTP       float64
	Change    float64
	ChangePct float64
	DayHigh   float64
	DayLow    float64
	Volume    int64
	PrevClose float64

	// tracked is set once PrevClose has been fixed by the first tick.
	tracked bool
}

// Tracked reports whether the reference price has been fixed.
func (q Quote) Tracked() bool { return q.tracked }

// Entry is the current display values for one catalog key.
type Entry struct {
	Kind           Kind
	PrimaryValue   string
	SecondaryValue string
	UpdatedAt      int64

	// Count backs counter entries.
	Count int64
	// Quote backs walk and quote entries.
	Quote Quote
}

type displayJSON struct {
	PrimaryValue   string `json:"primary_value"`
	SecondaryValue string `json:"secondary_value"`
	UpdatedAt      int64  `json:"updated_at"`
}

type quoteJSON struct {
	displayJSON
	LTP       float64 `json:"ltp"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	DayHigh   float64 `json:"day_high"`
	DayLow    float64 `json:"day_low"`
	Vol       int64   `json:"vol"`
	PrevClose float64 `json:"prev_close"`
}

// MarshalJSON emits the display triple, plus the numeric quote fields for
// ticker entries.
func (e Entry) MarshalJSON() ([]byte, error) {
	d := displayJSON{
		PrimaryValue:   e.PrimaryValue,
		SecondaryValue: e.SecondaryValue,
		UpdatedAt:      e.UpdatedAt,
	}
	if e.Kind != KindQuote {
		return json.Marshal(d)
	}
	q := e.Quote
	return json.Marshal(quoteJSON{
		displayJSON: d,
		LTP:         q.LTP,
		Change:      round2(q.Change),
		ChangePct:   round2(q.ChangePct),
		DayHigh:     q.DayHigh,
		DayLow:      q.DayLow,
		Vol:         q.Volume,
		PrevClose:   q.PrevClose,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
