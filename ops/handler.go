// Package ops serves the operator dashboard: an overview of the running
// process, open streams, recent orders and a live log tail.
package ops

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/orders"
	"github.com/nileshindira/stock-chat-app/stream"
	"github.com/nileshindira/stock-chat-app/templates"
)

const logBackfill = 50

// Config wires the handler to the running components. Any of Engine,
// Streams, Store, Journal and LogBuffer may be nil.
type Config struct {
	Version   string
	Profile   string
	StartTime time.Time
	Engine    *live.Engine
	Streams   *stream.Registry
	Store     *live.Store
	Journal   *orders.Journal
	LogBuffer *LogBuffer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Handler serves the ops dashboard pages and API endpoints.
type Handler struct {
	version   string
	profile   string
	startTime time.Time
	engine    *live.Engine
	streams   *stream.Registry
	store     *live.Store
	journal   *orders.Journal
	logBuffer *LogBuffer
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an ops Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = cfg.Now()
	}
	return &Handler{
		version:   cfg.Version,
		profile:   cfg.Profile,
		startTime: cfg.StartTime,
		engine:    cfg.Engine,
		streams:   cfg.Streams,
		store:     cfg.Store,
		journal:   cfg.Journal,
		logBuffer: cfg.LogBuffer,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// RegisterRoutes mounts the dashboard under prefix, e.g. "/admin/s3cret/ops".
func (h *Handler) RegisterRoutes(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	mux.HandleFunc(prefix, h.servePage)
	mux.HandleFunc(prefix+"/api/overview", getOnly(h.overview))
	mux.HandleFunc(prefix+"/api/streams", getOnly(h.streamList))
	mux.HandleFunc(prefix+"/api/orders", getOnly(h.orderList))
	mux.HandleFunc(prefix+"/api/logs", getOnly(h.logStream))
}

func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request) {
	data, err := templates.FS.ReadFile("ops.html")
	if err != nil {
		http.Error(w, "failed to load ops page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.buildOverview(r.Context()))
}

func (h *Handler) streamList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.buildStreams())
}

func (h *Handler) orderList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	data, err := h.buildOrders(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list orders", "error", err)
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}
	writeJSON(w, data)
}

// logStream serves an SSE stream of log entries, starting with a backfill.
func (h *Handler) logStream(w http.ResponseWriter, r *http.Request) {
	if h.logBuffer == nil {
		http.Error(w, "log capture disabled", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := h.logBuffer.Subscribe(100)
	defer cancel()

	for _, entry := range h.logBuffer.Recent(logBackfill) {
		writeEntry(w, entry)
	}
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			writeEntry(w, entry)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEntry(w http.ResponseWriter, e LogEntry) {
	if data, err := json.Marshal(e); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
}
