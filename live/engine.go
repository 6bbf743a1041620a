package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nileshindira/stock-chat-app/rng"
)

// DefaultInterval is the pass cadence used when Config.Interval is zero.
const DefaultInterval = 600 * time.Millisecond

// Observer receives engine events. metrics.Registry implements it.
type Observer interface {
	ObservePass(d time.Duration)
	ObserveItemFailure(kind string)
}

// Config configures an Engine.
type Config struct {
	Store    *Store
	Rand     rng.Source
	Interval time.Duration
	Rules    map[Kind]Rule
	Logger   *slog.Logger
	Observer Observer
	Now      func() time.Time
}

// Stats is a point-in-time view of engine progress.
type Stats struct {
	Passes       int64     `json:"passes"`
	ItemFailures int64     `json:"item_failures"`
	LastPass     time.Time `json:"last_pass"`
	Interval     string    `json:"interval"`
	Running      bool      `json:"running"`
}

// Engine recomputes every entry of a Store on a fixed cadence.
type Engine struct {
	store    *Store
	rand     rng.Source
	interval time.Duration
	rules    map[Kind]Rule
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	passes   atomic.Int64
	failures atomic.Int64
	lastPass atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewEngine creates an engine. Store and Rand are required.
func NewEngine(cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:    cfg.Store,
		rand:     cfg.Rand,
		interval: cfg.Interval,
		rules:    cfg.Rules,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		now:      cfg.Now,
	}
}

// Interval returns the pass cadence.
func (e *Engine) Interval() time.Duration { return e.interval }

// Step runs one full pass. A failing item is logged and skipped.
func (e *Engine) Step() {
	start := time.Now()
	now := e.now()
	for _, id := range e.store.Keys() {
		if err := e.updateItem(id, now); err != nil {
			e.failures.Add(1)
			e.logger.Warn("Live update failed", "id", id, "error", err)
		}
	}
	e.passes.Add(1)
	e.lastPass.Store(now.UnixNano())
	if e.observer != nil {
		e.observer.ObservePass(time.Since(start))
	}
}

func (e *Engine) updateItem(id string, now time.Time) (err error) {
	var kind Kind
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil && e.observer != nil {
			e.observer.ObserveItemFailure(string(kind))
		}
	}()

	_, err = e.store.Update(id, func(en *Entry) error {
		kind = en.Kind
		rule, ok := e.rules[en.Kind]
		if !ok {
			return fmt.Errorf("no rule for kind %q", en.Kind)
		}
		return rule(en, e.rand, now)
	})
	return err
}

// Run steps until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Start runs the engine on its own goroutine. Calling Start twice is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	go func(done chan struct{}) {
		defer close(done)
		e.Run(ctx)
	}(e.done)
	e.logger.Info("Live engine started", "interval", e.interval, "items", e.store.Len())
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.cancel()
	done := e.done
	e.running = false
	e.mu.Unlock()

	<-done
	e.logger.Info("Live engine stopped", "passes", e.passes.Load())
}

// Stats reports pass counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	var last time.Time
	if ns := e.lastPass.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Passes:       e.passes.Load(),
		ItemFailures: e.failures.Load(),
		LastPass:     last,
		Interval:     e.interval.String(),
		Running:      running,
	}
}
