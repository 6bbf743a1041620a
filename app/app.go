package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nileshindira/stock-chat-app/catalog"
	"github.com/nileshindira/stock-chat-app/ops"
	"github.com/nileshindira/stock-chat-app/web"
)

// App represents the main application structure
type App struct {
	Config    *Config
	Settings  *Settings
	Version   string
	startTime time.Time
	logger    *slog.Logger
	logBuffer *ops.LogBuffer

	mu         sync.Mutex
	listenAddr string

	// ctx scopes long-lived stream sessions; cancelled on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds raw configuration values as read from the environment.
type Config struct {
	AppProfile     string
	AppHost        string
	AppPort        string
	TickInterval   string
	ReceiveTimeout string
	CatalogFile    string
	StaticDir      string
	RandomSeed     string

	ExcludedTools   string
	AdminSecretPath string

	APIRateLimit string
	APIRateBurst string

	// Telegram (opt-in: set both to get a message per accepted order)
	TelegramBotToken string
	TelegramChatID   string
}

// Settings is Config after defaults, parsing and validation.
type Settings struct {
	Profile        catalog.Profile
	Addr           string
	TickInterval   time.Duration
	ReceiveTimeout time.Duration
	CatalogFile    string
	StaticDir      string
	Seed           int64

	ExcludedTools   string
	AdminSecretPath string

	RatePerSec float64
	RateBurst  int

	TelegramBotToken string
	TelegramChatID   int64
}

const (
	DefaultPort    = "8080"
	DefaultHost    = "localhost"
	DefaultProfile = string(catalog.ProfileCarousel)
)

// Per-profile cadence defaults.
var (
	defaultTickInterval = map[catalog.Profile]time.Duration{
		catalog.ProfileCarousel: 600 * time.Millisecond,
		catalog.ProfileTicker:   350 * time.Millisecond,
	}
	defaultReceiveTimeout = map[catalog.Profile]time.Duration{
		catalog.ProfileCarousel: 250 * time.Millisecond,
		catalog.ProfileTicker:   200 * time.Millisecond,
	}
)

// NewApp creates a new application instance with logger, reading its
// configuration from the environment.
func NewApp(logger *slog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config: &Config{
			AppProfile:     os.Getenv("APP_PROFILE"),
			AppHost:        os.Getenv("APP_HOST"),
			AppPort:        os.Getenv("APP_PORT"),
			TickInterval:   os.Getenv("TICK_INTERVAL"),
			ReceiveTimeout: os.Getenv("RECEIVE_TIMEOUT"),
			CatalogFile:    os.Getenv("CATALOG_FILE"),
			StaticDir:      os.Getenv("STATIC_DIR"),
			RandomSeed:     os.Getenv("RANDOM_SEED"),

			ExcludedTools:   os.Getenv("EXCLUDED_TOOLS"),
			AdminSecretPath: os.Getenv("ADMIN_ENDPOINT_SECRET_PATH"),

			APIRateLimit: os.Getenv("API_RATE_LIMIT"),
			APIRateBurst: os.Getenv("API_RATE_BURST"),

			TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
		},
		Version:   "v0.0.0",
		startTime: time.Now(),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetVersion sets the server version
func (app *App) SetVersion(version string) {
	app.Version = version
}

// SetLogBuffer sets the log buffer for the ops dashboard SSE stream.
func (app *App) SetLogBuffer(buf *ops.LogBuffer) {
	app.logBuffer = buf
}

// LoadConfig applies defaults to Config and validates it into Settings.
func (app *App) LoadConfig() error {
	c := app.Config
	if c.AppProfile == "" {
		c.AppProfile = DefaultProfile
	}
	if c.AppPort == "" {
		c.AppPort = DefaultPort
	}
	if c.AppHost == "" {
		c.AppHost = DefaultHost
	}

	profile, err := catalog.ParseProfile(c.AppProfile)
	if err != nil {
		return fmt.Errorf("invalid APP_PROFILE: %w", err)
	}

	s := &Settings{
		Profile:          profile,
		Addr:             net.JoinHostPort(c.AppHost, c.AppPort),
		CatalogFile:      c.CatalogFile,
		StaticDir:        c.StaticDir,
		ExcludedTools:    c.ExcludedTools,
		AdminSecretPath:  strings.Trim(c.AdminSecretPath, "/"),
		TelegramBotToken: c.TelegramBotToken,
	}

	if s.TickInterval, err = parseDuration("TICK_INTERVAL", c.TickInterval, defaultTickInterval[profile]); err != nil {
		return err
	}
	if s.ReceiveTimeout, err = parseDuration("RECEIVE_TIMEOUT", c.ReceiveTimeout, defaultReceiveTimeout[profile]); err != nil {
		return err
	}
	if s.ReceiveTimeout >= 4*s.TickInterval {
		return fmt.Errorf("RECEIVE_TIMEOUT %s must be below 4x TICK_INTERVAL (%s)", s.ReceiveTimeout, 4*s.TickInterval)
	}

	if c.RandomSeed != "" {
		if s.Seed, err = strconv.ParseInt(c.RandomSeed, 10, 64); err != nil {
			return fmt.Errorf("invalid RANDOM_SEED %q: %w", c.RandomSeed, err)
		}
	}

	s.RatePerSec = web.DefaultRatePerSec
	if c.APIRateLimit != "" {
		if s.RatePerSec, err = strconv.ParseFloat(c.APIRateLimit, 64); err != nil || s.RatePerSec <= 0 {
			return fmt.Errorf("invalid API_RATE_LIMIT %q", c.APIRateLimit)
		}
	}
	s.RateBurst = web.DefaultRateBurst
	if c.APIRateBurst != "" {
		if s.RateBurst, err = strconv.Atoi(c.APIRateBurst); err != nil || s.RateBurst <= 0 {
			return fmt.Errorf("invalid API_RATE_BURST %q", c.APIRateBurst)
		}
	}

	if c.TelegramChatID != "" {
		if s.TelegramChatID, err = strconv.ParseInt(c.TelegramChatID, 10, 64); err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", c.TelegramChatID, err)
		}
	}
	if s.TelegramBotToken != "" && s.TelegramChatID == 0 {
		app.logger.Warn("TELEGRAM_BOT_TOKEN set without TELEGRAM_CHAT_ID, order notifications disabled")
	}
	if s.AdminSecretPath == "" {
		app.logger.Info("ADMIN_ENDPOINT_SECRET_PATH not set, ops dashboard disabled")
	}

	app.Settings = s
	return nil
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, raw)
	}
	return d, nil
}

func (app *App) createHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return app.ctx },
	}
}

// Addr returns the address the server is listening on, or "" before start.
func (app *App) Addr() string {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.listenAddr
}

func (app *App) serveHTTPServer(srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		app.logger.Error("HTTP server error", "error", err)
	}
}
