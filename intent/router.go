// Package intent maps free-text chat messages to catalog selections.
package intent

import (
	"strings"
)

// Selection names a group of carousels.
type Selection string

const (
	SelectTemplates Selection = "templates"
	SelectHotels    Selection = "hotels"
	SelectStocks    Selection = "stocks"
	SelectAll       Selection = "all"
)

// Sections returns the carousel section ids covered by a selection.
func (s Selection) Sections() []string {
	if s == SelectAll {
		return []string{string(SelectTemplates), string(SelectHotels), string(SelectStocks)}
	}
	return []string{string(s)}
}

// KeywordSet routes to Selection when any keyword occurs in the message.
type KeywordSet struct {
	Selection Selection
	Keywords  []string
}

// DefaultKeywordSets are checked in order; the first hit wins.
var DefaultKeywordSets = []KeywordSet{
	{SelectTemplates, []string{"template", "design", "canva", "poster", "resume", "logo", "story"}},
	{SelectHotels, []string{"hotel", "booking", "stay", "room", "goa", "mumbai", "delhi", "bangalore", "bengaluru", "jaipur"}},
	{SelectStocks, []string{"stock", "price", "buy", "sell", "nse", "reliance", "tcs", "hdfc", "infy", "itc"}},
	{SelectAll, []string{"all", "everything", "explore", "discover"}},
}

// Router is the carousel-profile intent router.
type Router struct {
	sets     []KeywordSet
	fallback Selection
}

// NewRouter builds a router. Nil sets use DefaultKeywordSets.
func NewRouter(sets []KeywordSet) *Router {
	if sets == nil {
		sets = DefaultKeywordSets
	}
	return &Router{sets: sets, fallback: SelectAll}
}

// Route returns the first keyword set matching message, or "all".
func (r *Router) Route(message string) Selection {
	q := normalize(message)
	for _, set := range r.sets {
		if containsAny(q, set.Keywords) {
			return set.Selection
		}
	}
	return r.fallback
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(q string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
