package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/chat"
	"github.com/nileshindira/stock-chat-app/live"
	"github.com/nileshindira/stock-chat-app/mcp"
	"github.com/nileshindira/stock-chat-app/metrics"
	"github.com/nileshindira/stock-chat-app/orders"
	"github.com/nileshindira/stock-chat-app/rng"
	"github.com/nileshindira/stock-chat-app/stream"
	"github.com/nileshindira/stock-chat-app/templates"
	"github.com/nileshindira/stock-chat-app/web"
)

const shutdownTimeout = 10 * time.Second

// Module wires every component from a supplied *App. Lifecycle hooks start
// the engine and the HTTP server and tear them down in reverse order.
var Module = fx.Module("app",
	fx.Provide(
		provideSettings,
		provideLogger,
		provideCatalog,
		provideRand,
		provideStore,
		metrics.New,
		provideEngine,
		provideStreams,
		provideChat,
		provideJournal,
		provideNotifier,
		provideDesk,
		provideAssets,
		provideLimiter,
		provideDocs,
		provideMCP,
		provideHandler,
	),
	fx.Invoke(registerServer),
)

func provideSettings(a *App) (*Settings, error) {
	if a.Settings == nil {
		if err := a.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return a.Settings, nil
}

func provideLogger(a *App) *slog.Logger { return a.logger }

func provideCatalog(s *Settings, logger *slog.Logger) (*catalog.Catalog, error) {
	if s.CatalogFile == "" {
		return catalog.Default(s.Profile)
	}
	c, err := catalog.Load(s.Profile, s.CatalogFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Catalog loaded from file", "path", s.CatalogFile, "keys", len(c.Keys()))
	return c, nil
}

func provideRand(s *Settings) rng.Source { return rng.New(s.Seed) }

func provideStore(c *catalog.Catalog, src rng.Source) *live.Store {
	return live.Seed(c, src, time.Now())
}

func provideEngine(lc fx.Lifecycle, s *Settings, store *live.Store, src rng.Source, m *metrics.Registry, logger *slog.Logger) *live.Engine {
	e := live.NewEngine(live.Config{
		Store:    store,
		Rand:     src,
		Interval: s.TickInterval,
		Logger:   logger,
		Observer: m,
	})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			e.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			e.Stop()
			return nil
		},
	})
	return e
}

func provideStreams(m *metrics.Registry) *stream.Registry { return stream.NewRegistry(m) }

func provideChat(s *Settings, c *catalog.Catalog, store *live.Store, src rng.Source, m *metrics.Registry, logger *slog.Logger) *chat.Service {
	return chat.New(chat.Config{
		Profile:  s.Profile,
		Catalog:  c,
		Store:    store,
		Rand:     src,
		Logger:   logger,
		Observer: m,
	})
}

func provideJournal(lc fx.Lifecycle) (*orders.Journal, error) {
	j, err := orders.OpenJournal()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(j.Close))
	return j, nil
}

func provideNotifier(s *Settings, logger *slog.Logger) (orders.Notifier, error) {
	n, err := orders.NewTelegramNotifier(s.TelegramBotToken, s.TelegramChatID, logger)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	return n, nil
}

func provideDesk(lc fx.Lifecycle, c *catalog.Catalog, store *live.Store, j *orders.Journal, n orders.Notifier, m *metrics.Registry, logger *slog.Logger) *orders.Desk {
	d := orders.NewDesk(orders.Config{
		Catalog:  c,
		Store:    store,
		Journal:  j,
		Notifier: n,
		Observer: m,
		Logger:   logger,
	})
	lc.Append(fx.StopHook(d.Wait))
	return d
}

func provideAssets(lc fx.Lifecycle, s *Settings, logger *slog.Logger) (*web.Assets, error) {
	page, err := templates.FS.ReadFile("index.html")
	if err != nil {
		return nil, fmt.Errorf("read embedded index.html: %w", err)
	}
	a, err := web.NewAssets(s.StaticDir, page, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(a.Close))
	return a, nil
}

func provideLimiter(lc fx.Lifecycle, s *Settings) *web.RateLimiter {
	rl := web.NewRateLimiter(s.RatePerSec, s.RateBurst)
	lc.Append(fx.StopHook(rl.Stop))
	return rl
}

func provideDocs(a *App) (*DocsManager, error) { return NewDocsManager(a.Version) }

func provideMCP(a *App, s *Settings, c *chat.Service, store *live.Store, desk *orders.Desk, logger *slog.Logger) *server.MCPServer {
	return mcp.NewServer(a.Version, mcp.Deps{
		Profile: s.Profile,
		Chat:    c,
		Store:   store,
		Desk:    desk,
		Logger:  logger,
	}, s.ExcludedTools)
}

// Components is everything the HTTP surface is built from.
type Components struct {
	fx.In

	Settings *Settings
	Catalog  *catalog.Catalog
	Store    *live.Store
	Engine   *live.Engine
	Chat     *chat.Service
	Streams  *stream.Registry
	Journal  *orders.Journal
	Desk     *orders.Desk
	Metrics  *metrics.Registry
	Assets   *web.Assets
	Limiter  *web.RateLimiter
	Docs     *DocsManager
	MCP      *server.MCPServer
}

func provideHandler(a *App, c Components) http.Handler { return a.setupMux(c) }

func registerServer(lc fx.Lifecycle, a *App, s *Settings, h http.Handler, streams *stream.Registry) {
	srv := a.createHTTPServer(s.Addr, h)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", srv.Addr, err)
			}
			a.mu.Lock()
			a.listenAddr = ln.Addr().String()
			a.mu.Unlock()
			a.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "profile", s.Profile, "tick", s.TickInterval)
			go a.serveHTTPServer(srv, ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			a.logger.Info("Shutting down server...")
			// Streams run on hijacked or long-lived connections that
			// Shutdown does not wait for.
			a.cancel()
			streams.CloseAll()

			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Server shutdown error", "error", err)
				return err
			}
			a.logger.Info("Server shutdown complete")
			return nil
		},
	})
}
