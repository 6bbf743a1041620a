package intent

import (
	"strings"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/rng"
)

// Match records which stage of the resolver produced a result.
type Match string

const (
	MatchAlias  Match = "alias"
	MatchSymbol Match = "symbol"
	MatchAll    Match = "all"
	MatchSample Match = "sample"
)

// DefaultSampleSize is how many symbols an unmatched message gets.
const DefaultSampleSize = 3

// EverythingKeywords route a ticker message to the whole universe.
var EverythingKeywords = []string{"all", "everything", "market", "watchlist", "explore"}

// Resolution is the outcome of resolving a message to symbols.
type Resolution struct {
	Symbols []string `json:"symbols"`
	Match   Match    `json:"match"`
}

// Resolver is the ticker-profile intent router.
type Resolver struct {
	aliases    []catalog.Alias
	symbols    []catalog.Symbol
	rand       rng.Source
	sampleSize int
}

// NewResolver builds a resolver over the catalog's symbols and aliases.
func NewResolver(c *catalog.Catalog, src rng.Source) *Resolver {
	return &Resolver{
		aliases:    c.Aliases,
		symbols:    c.Symbols,
		rand:       src,
		sampleSize: DefaultSampleSize,
	}
}

// Resolve checks company names first, then bare trading symbols, then the
// show-everything keywords. Anything else gets a random sample.
func (r *Resolver) Resolve(message string) Resolution {
	q := normalize(message)

	if q != "" {
		for _, a := range r.aliases {
			if strings.Contains(q, strings.ToLower(a.Name)) {
				return Resolution{Symbols: []string{a.Symbol}, Match: MatchAlias}
			}
		}
		for _, s := range r.symbols {
			if strings.Contains(q, strings.ToLower(s.Tradingsymbol())) {
				return Resolution{Symbols: []string{s.Symbol}, Match: MatchSymbol}
			}
		}
		if containsAny(q, EverythingKeywords) {
			all := make([]string, len(r.symbols))
			for i, s := range r.symbols {
				all[i] = s.Symbol
			}
			return Resolution{Symbols: all, Match: MatchAll}
		}
	}

	picked := rng.Sample(r.rand, r.symbols, r.sampleSize)
	out := make([]string, len(picked))
	for i, s := range picked {
		out[i] = s.Symbol
	}
	return Resolution{Symbols: out, Match: MatchSample}
}
