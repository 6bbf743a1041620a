package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/chat"
	"github.com/nileshindira/stock-chat-app/orders"
)

type chatRequest struct {
	Message string `json:"message"`
}

type actionRequest struct {
	ItemID string `json:"item_id"`
	Action string `json:"action"`
}

type apiError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodePost enforces POST and decodes the body into v. It writes the error
// response itself and reports whether the handler should continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON"})
		return false
	}
	return true
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return false
	}
	return true
}

func (app *App) handleChat(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodePost(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Reply(req.Message))
	}
}

func (app *App) handleAction(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req actionRequest
		if !decodePost(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, svc.Action(req.ItemID, req.Action))
	}
}

func (app *App) handleOrder(desk *orders.Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orders.Request
		if !decodePost(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, desk.Place(r.Context(), req))
	}
}

func (app *App) handleOrders(desk *orders.Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGet(w, r) {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := desk.Recent(r.Context(), limit)
		if err != nil {
			app.logger.Error("Failed to list orders", "error", err)
			writeJSON(w, http.StatusInternalServerError, apiError{Error: "failed to list orders"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"orders": list})
	}
}

func (app *App) handleCatalog(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGet(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (app *App) handleHealth(c Components) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireGet(w, r) {
			return
		}
		st := c.Engine.Stats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"version": app.Version,
			"profile": c.Settings.Profile,
			"uptime":  time.Since(app.startTime).Truncate(time.Second).String(),
			"engine":  st,
			"streams": c.Streams.Active(),
		})
	}
}
