// Stock Chat serves a demo chat backend with live-updating cards over WebSocket.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/nileshindira/stock-chat-app/app"
	"github.com/nileshindira/stock-chat-app/ops"
)

var (
	// SERVER_VERSION is injected at build time with -ldflags.
	SERVER_VERSION = "v0.0.0"

	// buildString will be injected during the build process with build time and git info
	buildString = "dev build"
)

func initLogger() (*slog.Logger, *ops.LogBuffer) {
	// Default to INFO level, can be overridden by LOG_LEVEL env var
	// Valid levels: debug, info, warn, error
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	logBuffer := ops.NewLogBuffer(500)
	inner := slog.NewTextHandler(os.Stderr, opts)
	tee := ops.NewTeeHandler(inner, logBuffer)
	return slog.New(tee), logBuffer
}

func main() {
	showVersion := pflag.BoolP("version", "v", false, "print version and exit")
	profile := pflag.String("profile", "", "deployment profile: carousel or ticker (overrides APP_PROFILE)")
	host := pflag.String("host", "", "listen host (overrides APP_HOST)")
	port := pflag.String("port", "", "listen port (overrides APP_PORT)")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("Stock Chat %s\n", SERVER_VERSION)
		fmt.Printf("Build: %s\n", buildString)
		os.Exit(0)
	}

	// A .env file is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with tee handler for ops dashboard log streaming
	logger, logBuffer := initLogger()

	application := app.NewApp(logger)
	application.SetLogBuffer(logBuffer)

	if pflag.CommandLine.Changed("profile") {
		application.Config.AppProfile = *profile
	}
	if pflag.CommandLine.Changed("host") {
		application.Config.AppHost = *host
	}
	if pflag.CommandLine.Changed("port") {
		application.Config.AppPort = *port
	}

	// Load configuration from environment
	if err := application.LoadConfig(); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	application.SetVersion(SERVER_VERSION)

	logger.Info("Starting Stock Chat...", "version", SERVER_VERSION, "build", buildString, "profile", application.Settings.Profile)
	fx.New(
		fx.Supply(application),
		app.Module,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
	).Run()
}
