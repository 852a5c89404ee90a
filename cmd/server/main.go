// Package main is the entry point for the mood map server.
//
// main only reads configuration, builds the logger and hands both to
// internal/server. Everything else lives in the imported packages.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Values come from the environment, with a .env file (if present)
	// filling in anything not already set. JWT_SECRET is required.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_LEVEL picks the minimum level: debug, info, warn or error.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel.Level(),
	}))
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	// server.New opens the store (creating the SQLite directory or running
	// the Postgres migrations) and wires every route.
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
