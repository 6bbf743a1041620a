package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTime   = time.Hour
	limiterSweepEvery = 30 * time.Minute
	DefaultRatePerSec = 10
	DefaultRateBurst  = 20
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu           sync.Mutex
	limiters     map[string]*limiterEntry
	sweepCancel  context.CancelFunc
	sweepRunning bool
}

// NewRateLimiter allows perSecond requests per second per IP with the given
// burst. Non-positive values fall back to the defaults.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSec
	}
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	return &RateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (m *RateLimiter) getLimiter(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[ip] = entry
		if !m.sweepRunning {
			m.startSweep()
		}
	}
	entry.lastAccess = m.now()
	return entry.limiter
}

// Middleware rejects requests over the limit with 429 and the JSON error
// shape used by the API handlers.
func (m *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !m.getLimiter(ip).Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients reports how many IPs currently hold a limiter.
func (m *RateLimiter) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}

// must hold m.mu
func (m *RateLimiter) startSweep() {
	ctx, cancel := context.WithCancel(context.Background())
	m.sweepCancel = cancel
	m.sweepRunning = true
	go m.sweepLoop(ctx)
}

// Stop ends the background sweep.
func (m *RateLimiter) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sweepCancel != nil {
		m.sweepCancel()
		m.sweepCancel = nil
	}
	m.sweepRunning = false
}

func (m *RateLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(limiterIdleTime)
		}
	}
}

// sweep drops limiters idle for longer than maxIdle and stops the loop when
// none remain.
func (m *RateLimiter) sweep(maxIdle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for ip, entry := range m.limiters {
		if now.Sub(entry.lastAccess) > maxIdle {
			delete(m.limiters, ip)
		}
	}

	if len(m.limiters) == 0 && m.sweepCancel != nil {
		m.sweepCancel()
		m.sweepCancel = nil
		m.sweepRunning = false
	}
}
