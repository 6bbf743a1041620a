package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/rng"
)

func TestRoute(t *testing.T) {
	r := NewRouter(nil)
	tests := []struct {
		msg  string
		want Selection
	}{
		{"show me hotels in goa", SelectHotels},
		{"  I need a RESUME template ", SelectTemplates},
		{"design a poster for my hotel", SelectTemplates},
		{"what's the price of reliance", SelectStocks},
		{"explore", SelectAll},
		{"show everything", SelectAll},
		{"hello there", SelectAll},
		{"", SelectAll},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Route(tt.msg))
		})
	}
}

func TestRouteCustomSets(t *testing.T) {
	r := NewRouter([]KeywordSet{{SelectStocks, []string{"ticker"}}})
	assert.Equal(t, SelectStocks, r.Route("ticker please"))
	assert.Equal(t, SelectAll, r.Route("hotel"))
}

func TestSelectionSections(t *testing.T) {
	assert.Equal(t, []string{"hotels"}, SelectHotels.Sections())
	assert.Equal(t, []string{"templates", "hotels", "stocks"}, SelectAll.Sections())
}

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := catalog.Default(catalog.ProfileTicker)
	require.NoError(t, err)
	return NewResolver(c, rng.New(4))
}

func TestResolveCompanyNames(t *testing.T) {
	r := newResolver(t)
	tests := []struct {
		msg   string
		want  string
		match Match
	}{
		{"buy reliance", "NSE:RELIANCE", MatchAlias},
		{"what about TCS", "NSE:TCS", MatchAlias},
		{"how is tata consultancy doing", "NSE:TCS", MatchAlias},
		{"tata motors today?", "NSE:TATAMOTORS", MatchAlias},
		{"Infosys results", "NSE:INFY", MatchAlias},
		{"quote for infy", "NSE:INFY", MatchSymbol},
		{"sbin", "NSE:SBIN", MatchAlias},
		{"LT order book", "NSE:LT", MatchSymbol},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			res := r.Resolve(tt.msg)
			assert.Equal(t, []string{tt.want}, res.Symbols)
			assert.Equal(t, tt.match, res.Match)
		})
	}
}

func TestResolveEverything(t *testing.T) {
	r := newResolver(t)
	res := r.Resolve("show me the whole watchlist")
	assert.Equal(t, MatchAll, res.Match)
	assert.Len(t, res.Symbols, len(r.symbols))
}

func TestResolveFallbackSample(t *testing.T) {
	r := newResolver(t)
	universe := map[string]bool{}
	for _, s := range r.symbols {
		universe[s.Symbol] = true
	}

	for _, msg := range []string{"hello", "", "   "} {
		res := r.Resolve(msg)
		assert.Equal(t, MatchSample, res.Match)
		require.Len(t, res.Symbols, DefaultSampleSize)
		seen := map[string]bool{}
		for _, s := range res.Symbols {
			assert.True(t, universe[s], s)
			assert.False(t, seen[s], "duplicate %s", s)
			seen[s] = true
		}
	}
}
