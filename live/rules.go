package live

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nileshindira/stock-chat-app/rng"
)

// Drift bounds for the two random-walk flavors.
const (
	WalkDrift  = 2.5
	QuoteDrift = 0.8

	minPrice     = 1.0
	maxCountStep = 120
)

// Rule recomputes one entry in place.
type Rule func(e *Entry, src rng.Source, now time.Time) error

// DefaultRules maps every kind to its update rule.
func DefaultRules() map[Kind]Rule {
	return map[Kind]Rule{
		KindCounter: counterRule,
		KindReseed:  reseedRule,
		KindWalk:    walkRule(WalkDrift, formatWalk),
		KindQuote:   walkRule(QuoteDrift, formatQuote),
	}
}

func counterRule(e *Entry, src rng.Source, now time.Time) error {
	if e.Count < 0 {
		return fmt.Errorf("negative counter %d", e.Count)
	}
	e.Count += int64(src.Intn(maxCountStep + 1))
	e.PrimaryValue = humanize.Comma(e.Count) + " uses"
	e.SecondaryValue = fmt.Sprintf("+%d%% this week", rng.Between(src, 1, 30))
	e.UpdatedAt = now.Unix()
	return nil
}

func reseedRule(e *Entry, src rng.Source, now time.Time) error {
	*e = reseeded(src, now)
	return nil
}

func reseeded(src rng.Source, now time.Time) Entry {
	return Entry{
		Kind:           KindReseed,
		PrimaryValue:   fmt.Sprintf("₹%d/night", rng.Between(src, 1800, 12000)),
		SecondaryValue: fmt.Sprintf("%d%% off", rng.Between(src, 5, 40)),
		UpdatedAt:      now.Unix(),
	}
}

func walkRule(drift float64, format func(*Entry)) Rule {
	return func(e *Entry, src rng.Source, now time.Time) error {
		q := &e.Quote
		if math.IsNaN(q.LTP) || math.IsInf(q.LTP, 0) {
			return fmt.Errorf("price is not finite: %v", q.LTP)
		}
		if !q.tracked {
			q.PrevClose = q.LTP
			q.DayHigh = q.LTP
			q.DayLow = q.LTP
			q.tracked = true
		}

		next := math.Max(minPrice, round2(q.LTP+rng.Uniform(src, -drift, drift)))
		q.LTP = next
		q.Change = next - q.PrevClose
		if q.PrevClose > 0 {
			q.ChangePct = q.Change / q.PrevClose * 100
		}
		q.DayHigh = math.Max(q.DayHigh, next)
		q.DayLow = math.Min(q.DayLow, next)
		q.Volume += int64(1 + src.Intn(5000))

		format(e)
		e.UpdatedAt = now.Unix()
		return nil
	}
}

func formatWalk(e *Entry) {
	e.PrimaryValue = fmt.Sprintf("₹%.2f", e.Quote.LTP)
	e.SecondaryValue = fmt.Sprintf("%+.2f%%", e.Quote.ChangePct)
}

func formatQuote(e *Entry) {
	e.PrimaryValue = "₹" + humanize.FormatFloat("#,###.##", e.Quote.LTP)
	e.SecondaryValue = fmt.Sprintf("%+.2f%%", e.Quote.ChangePct)
}
