package app

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/ops"
	"github.com/nileshindira/stock-chat-app/stream"
	"github.com/nileshindira/stock-chat-app/web"
)

// setupMux builds the full HTTP surface for the configured profile.
func (app *App) setupMux(c Components) *http.ServeMux {
	mux := http.NewServeMux()
	s := c.Settings

	api := func(path string, h http.HandlerFunc) {
		mux.Handle(path, c.Limiter.Middleware(h))
	}
	api("/api/chat", app.handleChat(c.Chat))
	api("/api/action", app.handleAction(c.Chat))
	api("/api/catalog", app.handleCatalog(c.Catalog))
	if s.Profile == catalog.ProfileTicker {
		api("/api/order", app.handleOrder(c.Desk))
		api("/api/orders", app.handleOrders(c.Desk))
	}

	streamCfg := stream.Config{
		Store:          c.Store,
		Protocol:       stream.ProtocolFor(s.Profile),
		ReceiveTimeout: s.ReceiveTimeout,
		Registry:       c.Streams,
		Logger:         app.logger,
	}
	ws := stream.NewHandler(app.ctx, streamCfg)
	mux.Handle(ws.Path(), ws)
	sse := stream.NewSSEHandler(streamCfg, c.Engine.Interval())
	mux.Handle(sse.Path(), sse)

	mux.HandleFunc("/healthz", app.handleHealth(c))
	mux.Handle("/metrics", c.Metrics.Handler())
	mux.HandleFunc("/docs", c.Docs.ServeDocs)
	mux.HandleFunc("/docs/", c.Docs.ServeDocs)
	mux.Handle("/mcp", server.NewStreamableHTTPServer(c.MCP))

	if s.AdminSecretPath != "" {
		opsHandler := ops.New(ops.Config{
			Version:   app.Version,
			Profile:   string(s.Profile),
			StartTime: app.startTime,
			Engine:    c.Engine,
			Streams:   c.Streams,
			Store:     c.Store,
			Journal:   c.Journal,
			LogBuffer: app.logBuffer,
			Logger:    app.logger,
		})
		opsHandler.RegisterRoutes(mux, "/admin/"+s.AdminSecretPath+"/ops")
	}

	mux.Handle(web.StaticPrefix, c.Assets)
	mux.Handle("/", c.Assets)
	return mux
}
