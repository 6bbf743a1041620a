// Package orders validates and records simulated orders against the ticker
// universe. Nothing is sent to a broker.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/live"
)

// Validation messages returned in Result.Error.
const (
	ErrUnknownSymbol = "Unknown symbol"
	ErrInvalidSide   = "Invalid side"
	ErrInvalidQty    = "Qty must be > 0"
	errNotRecorded   = "Order could not be recorded"
)

// Request is the /api/order body.
type Request struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Qty    int    `json:"qty"`
}

// Result is the /api/order response.
type Result struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

// Order is a validated, journaled order.
type Order struct {
	ID            string    `json:"order_id"`
	Symbol        string    `json:"symbol"`
	Exchange      string    `json:"exchange"`
	Tradingsymbol string    `json:"tradingsymbol"`
	Side          string    `json:"side"`
	Qty           int       `json:"qty"`
	Product       string    `json:"product"`
	OrderType     string    `json:"order_type"`
	Price         float64   `json:"price"`
	PlacedAt      time.Time `json:"placed_at"`
}

// Notifier is told about every accepted order. Calls run on their own
// goroutine after the order is recorded.
type Notifier interface {
	NotifyOrder(o Order)
}

// Observer counts order outcomes. metrics.Registry implements it.
type Observer interface {
	ObserveOrder(outcome string)
}

// Config configures a Desk.
type Config struct {
	Catalog  *catalog.Catalog
	Store    *live.Store
	Journal  *Journal
	Notifier Notifier
	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// Desk validates and records orders.
type Desk struct {
	catalog  *catalog.Catalog
	store    *live.Store
	journal  *Journal
	notifier Notifier
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	notifying sync.WaitGroup
}

// NewDesk creates a desk. Journal and Notifier are optional.
func NewDesk(cfg Config) *Desk {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Desk{
		catalog:  cfg.Catalog,
		store:    cfg.Store,
		journal:  cfg.Journal,
		notifier: cfg.Notifier,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Validate checks symbol, side and quantity in that order and returns the
// kite order parameters for a valid request.
func (d *Desk) Validate(req Request) (kiteconnect.OrderParams, string) {
	sym, ok := d.catalog.Symbol(req.Symbol)
	if !ok {
		return kiteconnect.OrderParams{}, ErrUnknownSymbol
	}
	if req.Side != kiteconnect.TransactionTypeBuy && req.Side != kiteconnect.TransactionTypeSell {
		return kiteconnect.OrderParams{}, ErrInvalidSide
	}
	if req.Qty <= 0 {
		return kiteconnect.OrderParams{}, ErrInvalidQty
	}

	exchange := kiteconnect.ExchangeNSE
	if i := strings.IndexByte(sym.Symbol, ':'); i > 0 {
		exchange = sym.Symbol[:i]
	}
	return kiteconnect.OrderParams{
		Exchange:        exchange,
		Tradingsymbol:   sym.Tradingsymbol(),
		TransactionType: req.Side,
		Quantity:        req.Qty,
		Product:         kiteconnect.ProductCNC,
		OrderType:       kiteconnect.OrderTypeMarket,
		Validity:        kiteconnect.ValidityDay,
	}, ""
}

// Place validates req, fills it at the current simulated price and records
// it. Invalid requests come back as {ok:false, error}.
func (d *Desk) Place(ctx context.Context, req Request) Result {
	params, problem := d.Validate(req)
	if problem != "" {
		d.observe("rejected")
		d.logger.Info("Order rejected", "symbol", req.Symbol, "side", req.Side, "qty", req.Qty, "reason", problem)
		return Result{OK: false, Error: problem}
	}

	now := d.now()
	o := Order{
		ID:            NewOrderID(now),
		Symbol:        req.Symbol,
		Exchange:      params.Exchange,
		Tradingsymbol: params.Tradingsymbol,
		Side:          params.TransactionType,
		Qty:           params.Quantity,
		Product:       params.Product,
		OrderType:     params.OrderType,
		PlacedAt:      now,
	}
	if e, ok := d.store.Get(req.Symbol); ok {
		o.Price = e.Quote.LTP
	}

	if d.journal != nil {
		if err := d.journal.Save(ctx, o); err != nil {
			d.observe("error")
			d.logger.Error("Failed to journal order", "order_id", o.ID, "error", err)
			return Result{OK: false, Error: errNotRecorded}
		}
	}
	d.observe("accepted")
	d.logger.Info("Order placed", "order_id", o.ID, "symbol", o.Symbol, "side", o.Side, "qty", o.Qty, "price", o.Price)

	if d.notifier != nil {
		d.notifying.Add(1)
		go func() {
			defer d.notifying.Done()
			d.notifier.NotifyOrder(o)
		}()
	}

	return Result{
		OK:      true,
		Message: fmt.Sprintf("%s %d %s at ₹%.2f (simulated)", o.Side, o.Qty, o.Symbol, o.Price),
		OrderID: o.ID,
	}
}

// Recent lists journaled orders, newest first.
func (d *Desk) Recent(ctx context.Context, limit int) ([]Order, error) {
	if d.journal == nil {
		return []Order{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return d.journal.Recent(ctx, limit)
}

// Wait blocks until every in-flight notification has returned.
func (d *Desk) Wait() {
	d.notifying.Wait()
}

func (d *Desk) observe(outcome string) {
	if d.observer != nil {
		d.observer.ObserveOrder(outcome)
	}
}

// NewOrderID returns "ORD-<unix seconds>-<6 hex chars>".
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.Unix(), strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
