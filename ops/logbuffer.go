package ops

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry is one captured log record.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"msg"`
	Attrs   string    `json:"attrs,omitempty"`
}

// LogBuffer keeps the most recent records in a ring and fans new ones out
// to subscribers. Slow subscribers miss records instead of blocking logging.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	size    int

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan LogEntry
}

// NewLogBuffer allocates a ring with the given capacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, capacity),
		subs:    make(map[int]chan LogEntry),
	}
}

// Add stores entry and offers it to every subscriber.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mu.Lock()
	lb.entries[lb.head] = entry
	lb.head = (lb.head + 1) % len(lb.entries)
	if lb.size < len(lb.entries) {
		lb.size++
	}
	lb.mu.Unlock()

	lb.subMu.Lock()
	for _, ch := range lb.subs {
		select {
		case ch <- entry:
		default:
		}
	}
	lb.subMu.Unlock()
}

// Recent returns up to n of the newest entries, oldest first.
func (lb *LogBuffer) Recent(n int) []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if n > lb.size {
		n = lb.size
	}
	if n <= 0 {
		return nil
	}

	capacity := len(lb.entries)
	out := make([]LogEntry, n)
	start := (lb.head - n + capacity) % capacity
	for i := range out {
		out[i] = lb.entries[(start+i)%capacity]
	}
	return out
}

// Subscribe returns a channel of new entries and a func that unsubscribes
// and closes the channel. The cancel func is safe to call twice.
func (lb *LogBuffer) Subscribe(buffer int) (<-chan LogEntry, func()) {
	ch := make(chan LogEntry, buffer)

	lb.subMu.Lock()
	id := lb.nextID
	lb.nextID++
	lb.subs[id] = ch
	lb.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			lb.subMu.Lock()
			delete(lb.subs, id)
			lb.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many listeners are attached.
func (lb *LogBuffer) Subscribers() int {
	lb.subMu.Lock()
	defer lb.subMu.Unlock()
	return len(lb.subs)
}

// TeeHandler forwards records to an inner handler and copies them into a
// LogBuffer. Attributes bound with WithAttrs are carried into the copy.
type TeeHandler struct {
	inner  slog.Handler
	buf    *LogBuffer
	prefix string
	bound  string
}

var _ slog.Handler = (*TeeHandler)(nil)

// NewTeeHandler wraps inner.
func NewTeeHandler(inner slog.Handler, buf *LogBuffer) *TeeHandler {
	return &TeeHandler{inner: inner, buf: buf}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(h.bound)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, h.prefix, a)
		return true
	})

	h.buf.Add(LogEntry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   strings.TrimSpace(sb.String()),
	})
	return h.inner.Handle(ctx, r)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.bound)
	for _, a := range attrs {
		writeAttr(&sb, h.prefix, a)
	}
	return &TeeHandler{inner: h.inner.WithAttrs(attrs), buf: h.buf, prefix: h.prefix, bound: sb.String()}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TeeHandler{inner: h.inner.WithGroup(name), buf: h.buf, prefix: h.prefix + name + ".", bound: h.bound}
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, p, ga)
		}
		return
	}
	fmt.Fprintf(sb, "%s%s=%v ", prefix, a.Key, a.Value.Any())
}
