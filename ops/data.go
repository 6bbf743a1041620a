package ops

import (
	"context"
	"time"

	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/orders"
	"github.com/nileshindira/stock-chat-app/stream"
)

type OverviewData struct {
	Version       string     `json:"version"`
	Profile       string     `json:"profile"`
	Uptime        string     `json:"uptime"`
	Engine        live.Stats `json:"engine"`
	ActiveStreams int        `json:"active_streams"`
	StoreSize     int        `json:"store_size"`
	Orders        int        `json:"orders"`
	LogListeners  int        `json:"log_listeners"`
}

type StreamData struct {
	Streams []stream.SessionInfo `json:"streams"`
}

type OrderData struct {
	Orders []orders.Order `json:"orders"`
}

func (h *Handler) buildOverview(ctx context.Context) OverviewData {
	d := OverviewData{
		Version: h.version,
		Profile: h.profile,
		Uptime:  h.now().Sub(h.startTime).Truncate(time.Second).String(),
	}
	if h.engine != nil {
		d.Engine = h.engine.Stats()
	}
	if h.streams != nil {
		d.ActiveStreams = h.streams.Active()
	}
	if h.store != nil {
		d.StoreSize = h.store.Len()
	}
	if h.journal != nil {
		n, err := h.journal.Count(ctx)
		if err != nil {
			h.logger.Warn("Failed to count orders", "error", err)
		}
		d.Orders = n
	}
	if h.logBuffer != nil {
		d.LogListeners = h.logBuffer.Subscribers()
	}
	return d
}

func (h *Handler) buildStreams() StreamData {
	if h.streams == nil {
		return StreamData{Streams: []stream.SessionInfo{}}
	}
	list := h.streams.List()
	if list == nil {
		list = []stream.SessionInfo{}
	}
	return StreamData{Streams: list}
}

func (h *Handler) buildOrders(ctx context.Context, limit int) (OrderData, error) {
	if h.journal == nil {
		return OrderData{Orders: []orders.Order{}}, nil
	}
	list, err := h.journal.Recent(ctx, limit)
	if err != nil {
		return OrderData{}, err
	}
	return OrderData{Orders: list}, nil
}
