// Command keifu runs the genealogical research pipeline as an MCP server
// over stdio. Sources are registered by embedding consumers; the bare binary
// serves the pipeline with whatever KEIFU_* configuration provides.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keifu-ai/keifu"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("KEIFU_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	// Logs go to stderr; stdout carries the MCP protocol stream.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	app, err := keifu.New(
		keifu.WithLogger(logger),
		keifu.WithVersion(version),
	)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	return app.ServeMCP(ctx)
}
