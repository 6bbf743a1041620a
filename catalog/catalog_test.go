package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCarousel(t *testing.T) {
	c, err := Default(ProfileCarousel)
	require.NoError(t, err)

	require.Len(t, c.Sections, 3)
	assert.Equal(t, []string{"templates", "hotels", "stocks"},
		[]string{c.Sections[0].ID, c.Sections[1].ID, c.Sections[2].ID})
	assert.Len(t, c.Keys(), 15)
	assert.Empty(t, c.Symbols)

	it, ok := c.Item("htl_3")
	require.True(t, ok)
	assert.Equal(t, "Beachside Retreat", it.Title)
	assert.Equal(t, "Goa • 4.5★", it.Subtitle)

	s, ok := c.SectionOf("stk_TCS")
	require.True(t, ok)
	assert.Equal(t, RuleWalk, s.Rule)
	assert.Equal(t, "Market Watch", s.Title)
}

func TestDefaultTicker(t *testing.T) {
	c, err := Default(ProfileTicker)
	require.NoError(t, err)

	assert.Empty(t, c.Sections)
	assert.Contains(t, c.SymbolNames(), "NSE:RELIANCE")
	assert.Equal(t, c.SymbolNames(), c.Keys())

	s, ok := c.Symbol("NSE:TCS")
	require.True(t, ok)
	assert.Equal(t, "TCS", s.Tradingsymbol())
	assert.Positive(t, s.BasePrice)
	assert.NotEmpty(t, s.News)

	_, ok = c.Symbol("NSE:NOPE")
	assert.False(t, ok)
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileCarousel, p)

	p, err = ParseProfile(" Ticker ")
	require.NoError(t, err)
	assert.Equal(t, ProfileTicker, p)

	_, err = ParseProfile("hotels")
	assert.Error(t, err)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", `{}`},
		{"unknown rule", `
sections:
  - id: a
    rule: teleport
    items: [{id: x}]`},
		{"duplicate item", `
sections:
  - id: a
    rule: counter
    items: [{id: x}]
  - id: b
    rule: reseed
    items: [{id: x}]`},
		{"duplicate symbol", `
symbols:
  - {symbol: "NSE:A"}
  - {symbol: "NSE:A"}`},
		{"dangling alias", `
symbols:
  - {symbol: "NSE:A"}
aliases:
  - {name: acme, symbol: "NSE:B"}`},
		{"not yaml", `sections: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbols:
  - {symbol: "NSE:ACME", name: Acme, base_price: 10}
aliases:
  - {name: acme corp, symbol: "NSE:ACME"}
`), 0o600))

	c, err := Load(ProfileTicker, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"NSE:ACME"}, c.Keys())

	_, err = Load(ProfileTicker, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsProfileMismatch(t *testing.T) {
	dir := t.TempDir()
	sections := filepath.Join(dir, "sections.yaml")
	require.NoError(t, os.WriteFile(sections, []byte(`
sections:
  - id: hotels
    title: Stays
    rule: reseed
    items:
      - {id: htl_1, title: Lakeview}
`), 0o600))
	symbols := filepath.Join(dir, "symbols.yaml")
	require.NoError(t, os.WriteFile(symbols, []byte(`
symbols:
  - {symbol: "NSE:ACME", name: Acme, base_price: 10}
`), 0o600))

	_, err := Load(ProfileTicker, sections)
	assert.ErrorContains(t, err, "no symbols for profile ticker")
	_, err = Load(ProfileCarousel, symbols)
	assert.ErrorContains(t, err, "no sections for profile carousel")

	_, err = Load(ProfileCarousel, sections)
	assert.NoError(t, err)

	for _, p := range []Profile{ProfileCarousel, ProfileTicker} {
		c, err := Default(p)
		require.NoError(t, err)
		assert.NoError(t, c.Supports(p))
	}
}
