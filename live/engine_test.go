package live

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/rng"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Unix(1_700_000_000, 0)

// scriptedRand replays fixed draws so rules can be asserted exactly.
type scriptedRand struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	i, f   int
}

func (s *scriptedRand) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	if len(s.ints) > 0 {
		v = s.ints[s.i%len(s.ints)]
		s.i++
	}
	if v >= n {
		v = n - 1
	}
	return v
}

func (s *scriptedRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0.5
	if len(s.floats) > 0 {
		v = s.floats[s.f%len(s.floats)]
		s.f++
	}
	return v
}

func (s *scriptedRand) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func newEngine(store *Store, src rng.Source) *Engine {
	return NewEngine(Config{
		Store:  store,
		Rand:   src,
		Logger: testLogger(),
		Now:    func() time.Time { return fixedNow },
	})
}

func TestCounterRule(t *testing.T) {
	store := NewStore([]string{"tpl"}, map[string]Entry{
		"tpl": {Kind: KindCounter, Count: 1000},
	})
	newEngine(store, &scriptedRand{ints: []int{120, 29}}).Step()

	e, _ := store.Get("tpl")
	assert.Equal(t, int64(1120), e.Count)
	assert.Equal(t, "1,120 uses", e.PrimaryValue)
	assert.Equal(t, "+30% this week", e.SecondaryValue)
	assert.Equal(t, fixedNow.Unix(), e.UpdatedAt)
}

func TestCounterNeverDecreases(t *testing.T) {
	store := NewStore([]string{"tpl"}, map[string]Entry{
		"tpl": {Kind: KindCounter, Count: 5},
	})
	eng := newEngine(store, rng.New(11))

	prev := int64(5)
	for i := 0; i < 100; i++ {
		eng.Step()
		e, _ := store.Get("tpl")
		assert.GreaterOrEqual(t, e.Count, prev)
		assert.LessOrEqual(t, e.Count-prev, int64(maxCountStep))
		prev = e.Count
	}
}

func TestReseedRule(t *testing.T) {
	store := NewStore([]string{"htl"}, map[string]Entry{
		"htl": {Kind: KindReseed, PrimaryValue: "old", SecondaryValue: "old"},
	})
	newEngine(store, &scriptedRand{ints: []int{0, 35}}).Step()

	e, _ := store.Get("htl")
	assert.Equal(t, KindReseed, e.Kind)
	assert.Equal(t, "₹1800/night", e.PrimaryValue)
	assert.Equal(t, "40% off", e.SecondaryValue)
}

func TestWalkRuleTracksReference(t *testing.T) {
	store := NewStore([]string{"stk"}, map[string]Entry{
		"stk": {Kind: KindWalk, Quote: Quote{LTP: 100}},
	})
	// Drift is -2.5 + f*5: +2.0, then -2.0, then -2.5.
	src := &scriptedRand{floats: []float64{0.9, 0.1, 0.0}, ints: []int{9}}
	eng := newEngine(store, src)

	eng.Step()
	e, _ := store.Get("stk")
	assert.True(t, e.Quote.Tracked())
	assert.Equal(t, 100.0, e.Quote.PrevClose)
	assert.InDelta(t, 102.0, e.Quote.LTP, 1e-9)
	assert.InDelta(t, 2.0, e.Quote.Change, 1e-9)
	assert.InDelta(t, 2.0, e.Quote.ChangePct, 1e-9)
	assert.Equal(t, int64(10), e.Quote.Volume)
	assert.Equal(t, "₹102.00", e.PrimaryValue)
	assert.Equal(t, "+2.00%", e.SecondaryValue)

	eng.Step()
	eng.Step()
	e, _ = store.Get("stk")
	assert.Equal(t, 100.0, e.Quote.PrevClose, "reference stays fixed after first tick")
	assert.InDelta(t, 97.5, e.Quote.LTP, 1e-9)
	assert.InDelta(t, 102.0, e.Quote.DayHigh, 1e-9)
	assert.InDelta(t, 97.5, e.Quote.DayLow, 1e-9)
	assert.Equal(t, "-2.50%", e.SecondaryValue)
}

func TestQuoteRuleFloorsAtOne(t *testing.T) {
	store := NewStore([]string{"NSE:X"}, map[string]Entry{
		"NSE:X": {Kind: KindQuote, Quote: Quote{LTP: 1.2}},
	})
	newEngine(store, &scriptedRand{floats: []float64{0}}).Step()

	e, _ := store.Get("NSE:X")
	assert.Equal(t, 1.0, e.Quote.LTP)
	assert.Equal(t, 1.0, e.Quote.DayLow)
	assert.Equal(t, "₹1.00", e.PrimaryValue)
}

func TestStepIsolatesFailingItems(t *testing.T) {
	store := NewStore([]string{"bad", "panics", "good", "unknown"}, map[string]Entry{
		"bad":     {Kind: KindWalk},
		"panics":  {Kind: KindReseed},
		"good":    {Kind: KindCounter, Count: 1},
		"unknown": {Kind: "mystery"},
	})
	obs := &countingObserver{}
	eng := NewEngine(Config{
		Store:    store,
		Rand:     &scriptedRand{ints: []int{3}},
		Logger:   testLogger(),
		Observer: obs,
		Now:      func() time.Time { return fixedNow },
		Rules: map[Kind]Rule{
			KindWalk:    func(*Entry, rng.Source, time.Time) error { return errors.New("boom") },
			KindReseed:  func(*Entry, rng.Source, time.Time) error { panic("kaboom") },
			KindCounter: counterRule,
		},
	})

	eng.Step()

	e, _ := store.Get("good")
	assert.Equal(t, int64(4), e.Count, "healthy item still updated")

	stats := eng.Stats()
	assert.Equal(t, int64(1), stats.Passes)
	assert.Equal(t, int64(3), stats.ItemFailures)
	assert.Equal(t, 1, obs.passes)
	assert.ElementsMatch(t, []string{"walk", "reseed", "mystery"}, obs.failures)

	// The store is still usable after a rule panicked under its lock.
	assert.True(t, store.Set("panics", Entry{Kind: KindReseed}))
}

func TestStepDiscardsPartialWrites(t *testing.T) {
	store := NewStore([]string{"x"}, map[string]Entry{
		"x": {Kind: KindWalk, PrimaryValue: "₹100.00", Quote: Quote{LTP: 100}},
	})
	eng := NewEngine(Config{
		Store:  store,
		Rand:   &scriptedRand{},
		Logger: testLogger(),
		Now:    func() time.Time { return fixedNow },
		Rules: map[Kind]Rule{
			KindWalk: func(e *Entry, _ rng.Source, _ time.Time) error {
				e.Quote.LTP = 555
				panic("after write")
			},
		},
	})

	eng.Step()

	e, _ := store.Get("x")
	assert.Equal(t, 100.0, e.Quote.LTP)
	assert.Equal(t, "₹100.00", e.PrimaryValue)
	assert.Equal(t, int64(1), eng.Stats().ItemFailures)
}

func TestSeededKeysNeverChange(t *testing.T) {
	for _, p := range []catalog.Profile{catalog.ProfileCarousel, catalog.ProfileTicker} {
		t.Run(string(p), func(t *testing.T) {
			c, err := catalog.Default(p)
			require.NoError(t, err)

			store := Seed(c, rng.New(5), fixedNow)
			assert.Equal(t, c.Keys(), store.Keys())

			eng := newEngine(store, rng.New(6))
			for i := 0; i < 25; i++ {
				eng.Step()
			}
			assert.Equal(t, c.Keys(), store.Keys())
			snap := store.Snapshot(c.Keys())
			assert.Len(t, snap, len(c.Keys()))
			for id, e := range snap {
				assert.NotEmpty(t, e.PrimaryValue, id)
				assert.NotEmpty(t, e.SecondaryValue, id)
			}
			assert.Zero(t, eng.Stats().ItemFailures)
		})
	}
}

func TestSeedKinds(t *testing.T) {
	c, err := catalog.Default(catalog.ProfileCarousel)
	require.NoError(t, err)
	store := Seed(c, rng.New(1), fixedNow)

	tpl, _ := store.Get("tpl_logo")
	assert.Equal(t, KindCounter, tpl.Kind)
	assert.GreaterOrEqual(t, tpl.Count, int64(1000))
	assert.LessOrEqual(t, tpl.Count, int64(50000))

	htl, _ := store.Get("htl_1")
	assert.Equal(t, KindReseed, htl.Kind)
	assert.Regexp(t, `^₹\d+/night$`, htl.PrimaryValue)

	stk, _ := store.Get("stk_ITC")
	assert.Equal(t, KindWalk, stk.Kind)
	assert.GreaterOrEqual(t, stk.Quote.LTP, 200.0)

	tc, err := catalog.Default(catalog.ProfileTicker)
	require.NoError(t, err)
	tstore := Seed(tc, rng.New(1), fixedNow)
	rel, _ := tstore.Get("NSE:RELIANCE")
	sym, _ := tc.Symbol("NSE:RELIANCE")
	assert.Equal(t, KindQuote, rel.Kind)
	assert.Equal(t, sym.BasePrice, rel.Quote.LTP)
	assert.False(t, rel.Quote.Tracked())
}

func TestStartStop(t *testing.T) {
	store := NewStore([]string{"tpl"}, map[string]Entry{
		"tpl": {Kind: KindCounter, Count: 1},
	})
	eng := NewEngine(Config{
		Store:    store,
		Rand:     rng.New(2),
		Interval: 5 * time.Millisecond,
		Logger:   testLogger(),
	})

	eng.Start()
	eng.Start()
	require.Eventually(t, func() bool { return eng.Stats().Passes >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, eng.Stats().Running)
	assert.False(t, eng.Stats().LastPass.IsZero())

	eng.Stop()
	eng.Stop()
	assert.False(t, eng.Stats().Running)
}

func TestWalkProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Float64Range(1, 40).Draw(t, "start")
		steps := rapid.IntRange(1, 300).Draw(t, "steps")
		seed := rapid.Int64Range(1, 1<<40).Draw(t, "seed")
		kind := rapid.SampledFrom([]Kind{KindWalk, KindQuote}).Draw(t, "kind")

		store := NewStore([]string{"x"}, map[string]Entry{
			"x": {Kind: kind, Quote: Quote{LTP: start}},
		})
		eng := newEngine(store, rng.New(seed))

		eng.Step()
		prev, _ := store.Get("x")
		ref := prev.Quote.PrevClose
		for i := 1; i < steps; i++ {
			eng.Step()
			cur, _ := store.Get("x")
			q := cur.Quote
			if q.LTP < 1.0 {
				t.Fatalf("price %v fell below 1.0", q.LTP)
			}
			if q.DayHigh < prev.Quote.DayHigh {
				t.Fatalf("day high decreased: %v -> %v", prev.Quote.DayHigh, q.DayHigh)
			}
			if q.DayLow > prev.Quote.DayLow {
				t.Fatalf("day low increased: %v -> %v", prev.Quote.DayLow, q.DayLow)
			}
			if q.LTP > q.DayHigh || q.LTP < q.DayLow {
				t.Fatalf("price %v outside [%v, %v]", q.LTP, q.DayLow, q.DayHigh)
			}
			if q.PrevClose != ref {
				t.Fatalf("reference moved: %v -> %v", ref, q.PrevClose)
			}
			if q.Volume <= prev.Quote.Volume {
				t.Fatalf("volume did not grow")
			}
			prev = cur
		}
	})
}

type countingObserver struct {
	mu       sync.Mutex
	passes   int
	failures []string
}

func (o *countingObserver) ObservePass(time.Duration) {
	o.mu.Lock()
	o.passes++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveItemFailure(kind string) {
	o.mu.Lock()
	o.failures = append(o.failures, kind)
	o.mu.Unlock()
}
