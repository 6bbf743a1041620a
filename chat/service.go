// Package chat turns a chat message into the carousel or ticker-card reply
// the UI renders.
package chat

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/intent"
	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/rng"
)

const (
	// CarouselSize caps how many cards each carousel shows.
	CarouselSize = 5

	carouselText = "Showing carousels based on your request. (Demo data, live updates via WebSocket.)"
	missingValue = "-"
)

// Card is one item of a carousel.
type Card struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle"`
	Image          *string          `json:"image"`
	Badges         []string         `json:"badges"`
	PrimaryValue   string           `json:"primary_value"`
	SecondaryValue string           `json:"secondary_value"`
	Actions        []catalog.Action `json:"actions"`
	Metadata       map[string]any   `json:"metadata"`
}

// Carousel is a titled group of cards.
type Carousel struct {
	ID       string `json:"carousel_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Layout   string `json:"layout"`
	Items    []Card `json:"items"`
}

// CarouselReply is the carousel-profile /api/chat response.
type CarouselReply struct {
	AssistantText string     `json:"assistant_text"`
	Carousels     []Carousel `json:"carousels"`
}

// NewsItem is a headline on a ticker card.
type NewsItem struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	TS     int64  `json:"ts"`
}

// TickerCard is one quote in the ticker-profile reply.
type TickerCard struct {
	Symbol    string     `json:"symbol"`
	LTP       float64    `json:"ltp"`
	Change    float64    `json:"change"`
	ChangePct float64    `json:"change_pct"`
	DayHigh   float64    `json:"day_high"`
	DayLow    float64    `json:"day_low"`
	Vol       int64      `json:"vol"`
	News      []NewsItem `json:"news"`
}

// TickerReply is the ticker-profile /api/chat response.
type TickerReply struct {
	Assistant string       `json:"assistant"`
	Cards     []TickerCard `json:"cards"`
}

// ActionReply answers a card button press.
type ActionReply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// RouteObserver is notified of every routed message.
type RouteObserver interface {
	ObserveRoute(route string)
}

// Config configures a Service.
type Config struct {
	Profile  catalog.Profile
	Catalog  *catalog.Catalog
	Store    *live.Store
	Rand     rng.Source
	Logger   *slog.Logger
	Observer RouteObserver
	Now      func() time.Time
}

// Service answers chat and action requests from the catalog and live state.
type Service struct {
	profile  catalog.Profile
	catalog  *catalog.Catalog
	store    *live.Store
	rand     rng.Source
	router   *intent.Router
	resolver *intent.Resolver
	logger   *slog.Logger
	observer RouteObserver
	now      func() time.Time
}

// New creates a chat service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Profile == "" {
		cfg.Profile = catalog.ProfileCarousel
	}
	return &Service{
		profile:  cfg.Profile,
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		rand:     cfg.Rand,
		router:   intent.NewRouter(nil),
		resolver: intent.NewResolver(cfg.Catalog, cfg.Rand),
		logger:   cfg.Logger,
		observer: cfg.Observer,
		now:      cfg.Now,
	}
}

// Profile reports which reply shape Reply produces.
func (s *Service) Profile() catalog.Profile { return s.profile }

// Reply returns a CarouselReply or TickerReply depending on the profile.
func (s *Service) Reply(message string) any {
	if s.profile == catalog.ProfileTicker {
		return s.Tickers(message)
	}
	return s.Carousels(message)
}

// Carousels routes message and builds one carousel per selected section.
func (s *Service) Carousels(message string) CarouselReply {
	sel := s.router.Route(message)
	s.observe(string(sel))
	s.logger.Debug("Chat routed", "selection", sel)

	reply := CarouselReply{AssistantText: carouselText, Carousels: []Carousel{}}
	for _, id := range sel.Sections() {
		sec, ok := s.catalog.Section(id)
		if !ok {
			continue
		}
		reply.Carousels = append(reply.Carousels, s.carousel(sec))
	}
	return reply
}

func (s *Service) carousel(sec catalog.Section) Carousel {
	items := rng.Sample(s.rand, sec.Items, CarouselSize)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	snap := s.store.Snapshot(ids)

	cards := make([]Card, len(items))
	for i, it := range items {
		card := Card{
			ID:             it.ID,
			Title:          it.Title,
			Subtitle:       it.Subtitle,
			Badges:         it.Badges,
			PrimaryValue:   missingValue,
			SecondaryValue: missingValue,
			Actions:        sec.Actions,
			Metadata:       map[string]any{},
		}
		if card.Badges == nil {
			card.Badges = []string{}
		}
		if card.Actions == nil {
			card.Actions = []catalog.Action{}
		}
		if e, ok := snap[it.ID]; ok {
			card.PrimaryValue = e.PrimaryValue
			card.SecondaryValue = e.SecondaryValue
		}
		cards[i] = card
	}
	return Carousel{
		ID:       sec.ID,
		Title:    sec.Title,
		Subtitle: sec.Subtitle,
		Layout:   "card",
		Items:    cards,
	}
}

// Tickers resolves message to symbols and builds quote cards.
func (s *Service) Tickers(message string) TickerReply {
	res := s.resolver.Resolve(message)
	s.observe(string(res.Match))
	s.logger.Debug("Chat resolved", "match", res.Match, "symbols", res.Symbols)

	snap := s.store.Snapshot(res.Symbols)
	now := s.now()
	cards := make([]TickerCard, 0, len(res.Symbols))
	for _, sym := range res.Symbols {
		e, ok := snap[sym]
		if !ok {
			continue
		}
		q := e.Quote
		card := TickerCard{
			Symbol:    sym,
			LTP:       q.LTP,
			Change:    round2(q.Change),
			ChangePct: round2(q.ChangePct),
			DayHigh:   q.DayHigh,
			DayLow:    q.DayLow,
			Vol:       q.Volume,
			News:      []NewsItem{},
		}
		if meta, ok := s.catalog.Symbol(sym); ok {
			for _, n := range meta.News {
				card.News = append(card.News, NewsItem{
					Title:  n.Title,
					Source: n.Source,
					TS:     now.Add(-time.Duration(n.MinutesAgo) * time.Minute).Unix(),
				})
			}
		}
		cards = append(cards, card)
	}

	return TickerReply{Assistant: tickerText(res), Cards: cards}
}

func tickerText(res intent.Resolution) string {
	switch res.Match {
	case intent.MatchAlias, intent.MatchSymbol:
		return fmt.Sprintf("Here is the latest on %s. Prices stream live over WebSocket (demo data).", res.Symbols[0])
	case intent.MatchAll:
		return "Here is the full watchlist. Prices stream live over WebSocket (demo data)."
	default:
		return "I couldn't spot a company in that, so here are a few movers. Prices stream live over WebSocket (demo data)."
	}
}

// Action acknowledges a card button press.
func (s *Service) Action(itemID, action string) ActionReply {
	attrs := []any{"item_id", itemID, "action", action}
	if it, ok := s.catalog.Item(itemID); ok {
		sec, _ := s.catalog.SectionOf(itemID)
		attrs = append(attrs, "title", it.Title, "section", sec.ID)
	} else {
		attrs = append(attrs, "known", false)
	}
	s.logger.Info("Card action", attrs...)
	return ActionReply{
		OK:      true,
		Message: fmt.Sprintf("Action '%s' received for item '%s' (demo).", action, itemID),
	}
}

func (s *Service) observe(route string) {
	if s.observer != nil {
		s.observer.ObserveRoute(route)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
