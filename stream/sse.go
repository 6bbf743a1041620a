package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SSEHandler serves the push half of the protocol as Server-Sent Events for
// clients that cannot open a WebSocket. The subscription comes from the
// query string and is fixed for the life of the stream.
type SSEHandler struct {
	cfg      Config
	interval time.Duration
}

// NewSSEHandler creates an SSE endpoint pushing every interval.
func NewSSEHandler(cfg Config, interval time.Duration) *SSEHandler {
	cfg = cfg.withDefaults()
	if interval <= 0 {
		interval = cfg.ReceiveTimeout
	}
	return &SSEHandler{cfg: cfg, interval: interval}
}

// Path returns the mount path, e.g. /sse/live for /ws/live.
func (h *SSEHandler) Path() string {
	return "/sse/" + strings.TrimPrefix(h.cfg.Protocol.Path, "/ws/")
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var requested []string
	for _, part := range strings.Split(r.URL.Query().Get(h.cfg.Protocol.Field), ",") {
		if part = strings.TrimSpace(part); part != "" {
			requested = append(requested, part)
		}
	}
	subs := h.cfg.Store.Filter(requested)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	confirm := map[string]any{"type": typeSubscribed}
	confirm[h.cfg.Protocol.Field] = subs
	writeEvent(w, confirm)
	flusher.Flush()

	h.cfg.Logger.Info("SSE stream started", "path", h.Path(), "subscribed", len(subs))

	push := time.NewTicker(h.interval)
	defer push.Stop()
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.cfg.Logger.Info("SSE stream closed", "path", h.Path())
			return
		case <-push.C:
			if len(subs) == 0 {
				continue
			}
			writeEvent(w, map[string]any{
				"type": h.cfg.Protocol.PushType,
				"data": h.cfg.Store.Snapshot(subs),
			})
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
