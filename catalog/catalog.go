// Package catalog holds the static items the demo serves: carousel sections
// of templates, hotels and stocks, or the ticker symbol universe.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed carousel.yaml ticker.yaml
var defaultsFS embed.FS

// Profile selects which catalog and wire shapes the process serves.
type Profile string

const (
	ProfileCarousel Profile = "carousel"
	ProfileTicker   Profile = "ticker"
)

// ParseProfile validates a profile name. Empty means carousel.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileCarousel:
		return ProfileCarousel, nil
	case ProfileTicker:
		return ProfileTicker, nil
	default:
		return "", fmt.Errorf("unknown profile %q (want carousel or ticker)", s)
	}
}

// Rule names the tick update applied to every item of a section.
type Rule string

const (
	RuleCounter Rule = "counter"
	RuleReseed  Rule = "reseed"
	RuleWalk    Rule = "walk"
)

// Action is a button rendered on a card.
type Action struct {
	Label  string `yaml:"label" json:"label"`
	Action string `yaml:"action" json:"action"`
}

// Item is one card in a carousel section.
type Item struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Subtitle string   `yaml:"subtitle" json:"subtitle"`
	Badges   []string `yaml:"badges" json:"badges"`
}

// Section is a titled group of items sharing one tick rule and action set.
type Section struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Subtitle string   `yaml:"subtitle" json:"subtitle"`
	Rule     Rule     `yaml:"rule" json:"rule"`
	Actions  []Action `yaml:"actions" json:"actions"`
	Items    []Item   `yaml:"items" json:"items"`
}

// News is a canned headline attached to a symbol.
type News struct {
	Title      string `yaml:"title" json:"title"`
	Source     string `yaml:"source" json:"source"`
	MinutesAgo int    `yaml:"minutes_ago" json:"minutes_ago"`
}

// Symbol is one instrument of the ticker universe, e.g. "NSE:RELIANCE".
type Symbol struct {
	Symbol    string  `yaml:"symbol" json:"symbol"`
	Name      string  `yaml:"name" json:"name"`
	Sector    string  `yaml:"sector" json:"sector"`
	BasePrice float64 `yaml:"base_price" json:"base_price"`
	News      []News  `yaml:"news" json:"news"`
}

// Tradingsymbol returns the part after the exchange prefix.
func (s Symbol) Tradingsymbol() string {
	if i := strings.IndexByte(s.Symbol, ':'); i >= 0 {
		return s.Symbol[i+1:]
	}
	return s.Symbol
}

// Alias maps a company name fragment to a symbol.
type Alias struct {
	Name   string `yaml:"name" json:"name"`
	Symbol string `yaml:"symbol" json:"symbol"`
}

// Catalog is immutable once loaded.
type Catalog struct {
	Sections []Section `yaml:"sections" json:"sections,omitempty"`
	Symbols  []Symbol  `yaml:"symbols" json:"symbols,omitempty"`
	Aliases  []Alias   `yaml:"aliases" json:"aliases,omitempty"`

	items   map[string]Item
	owner   map[string]string // item id -> section id
	symbols map[string]int
}

// Default returns the embedded catalog for a profile.
func Default(p Profile) (*Catalog, error) {
	name := "carousel.yaml"
	if p == ProfileTicker {
		name = "ticker.yaml"
	}
	data, err := defaultsFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(p Profile, path string) (*Catalog, error) {
	if path == "" {
		return Default(p)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if err := c.Supports(p); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Supports reports whether c has the content profile p serves: sections for
// carousel, symbols for ticker.
func (c *Catalog) Supports(p Profile) error {
	switch {
	case p == ProfileTicker && len(c.Symbols) == 0:
		return fmt.Errorf("no symbols for profile %s", p)
	case p != ProfileTicker && len(c.Sections) == 0:
		return fmt.Errorf("no sections for profile %s", p)
	}
	return nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.Sections) == 0 && len(c.Symbols) == 0 {
		return errors.New("catalog has no sections and no symbols")
	}

	c.items = make(map[string]Item)
	c.owner = make(map[string]string)
	c.symbols = make(map[string]int)

	seen := make(map[string]bool)
	for _, s := range c.Sections {
		if s.ID == "" {
			return errors.New("section without id")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section %q", s.ID)
		}
		seen[s.ID] = true
		switch s.Rule {
		case RuleCounter, RuleReseed, RuleWalk:
		default:
			return fmt.Errorf("section %q: unknown rule %q", s.ID, s.Rule)
		}
		for _, it := range s.Items {
			if it.ID == "" {
				return fmt.Errorf("section %q: item without id", s.ID)
			}
			if _, dup := c.items[it.ID]; dup {
				return fmt.Errorf("duplicate item id %q", it.ID)
			}
			c.items[it.ID] = it
			c.owner[it.ID] = s.ID
		}
	}

	for i, s := range c.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("symbol #%d without name", i)
		}
		if _, dup := c.symbols[s.Symbol]; dup {
			return fmt.Errorf("duplicate symbol %q", s.Symbol)
		}
		if _, clash := c.items[s.Symbol]; clash {
			return fmt.Errorf("symbol %q collides with an item id", s.Symbol)
		}
		if s.BasePrice < 0 {
			return fmt.Errorf("symbol %q: negative base_price", s.Symbol)
		}
		c.symbols[s.Symbol] = i
	}

	for _, a := range c.Aliases {
		if strings.TrimSpace(a.Name) == "" {
			return errors.New("alias without name")
		}
		if _, ok := c.symbols[a.Symbol]; !ok {
			return fmt.Errorf("alias %q points to unknown symbol %q", a.Name, a.Symbol)
		}
	}
	return nil
}

// Section looks up a section by id.
func (c *Catalog) Section(id string) (Section, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Item looks up a carousel item by id.
func (c *Catalog) Item(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// SectionOf returns the section owning an item.
func (c *Catalog) SectionOf(itemID string) (Section, bool) {
	sid, ok := c.owner[itemID]
	if !ok {
		return Section{}, false
	}
	return c.Section(sid)
}

// Symbol looks up a ticker symbol.
func (c *Catalog) Symbol(sym string) (Symbol, bool) {
	i, ok := c.symbols[sym]
	if !ok {
		return Symbol{}, false
	}
	return c.Symbols[i], true
}

// SymbolNames returns every symbol in catalog order.
func (c *Catalog) SymbolNames() []string {
	out := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		out[i] = s.Symbol
	}
	return out
}

// Keys returns every live-state key: item ids in section order, then symbols.
func (c *Catalog) Keys() []string {
	out := make([]string, 0, len(c.items)+len(c.Symbols))
	for _, s := range c.Sections {
		for _, it := range s.Items {
			out = append(out, it.ID)
		}
	}
	return append(out, c.SymbolNames()...)
}
