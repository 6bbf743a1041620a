package live

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/rng"
)

// Seed builds a store with one randomized entry per catalog key.
func Seed(c *catalog.Catalog, src rng.Source, now time.Time) *Store {
	entries := make(map[string]Entry)
	ts := now.Unix()

	for _, s := range c.Sections {
		for _, it := range s.Items {
			switch s.Rule {
			case catalog.RuleCounter:
				n := int64(rng.Between(src, 1000, 50000))
				entries[it.ID] = Entry{
					Kind:           KindCounter,
					Count:          n,
					PrimaryValue:   humanize.Comma(n) + " uses",
					SecondaryValue: fmt.Sprintf("+%d%% this week", rng.Between(src, 1, 30)),
					UpdatedAt:      ts,
				}
			case catalog.RuleReseed:
				entries[it.ID] = reseeded(src, now)
			case catalog.RuleWalk:
				e := Entry{Kind: KindWalk, UpdatedAt: ts}
				e.Quote = Quote{LTP: round2(rng.Uniform(src, 200, 3500))}
				e.Quote.DayHigh, e.Quote.DayLow = e.Quote.LTP, e.Quote.LTP
				formatWalk(&e)
				entries[it.ID] = e
			}
		}
	}

	for _, sym := range c.Symbols {
		price := sym.BasePrice
		if price <= 0 {
			price = rng.Uniform(src, 200, 3500)
		}
		e := Entry{Kind: KindQuote, UpdatedAt: ts}
		e.Quote = Quote{
			LTP:     round2(price),
			DayHigh: round2(price),
			DayLow:  round2(price),
			Volume:  int64(rng.Between(src, 10000, 99999)),
		}
		formatQuote(&e)
		entries[sym.Symbol] = e
	}

	return NewStore(c.Keys(), entries)
}
