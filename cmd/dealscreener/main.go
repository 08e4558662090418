package main

import (
	"context"
	"log/slog"
	"os"

	"DealScreener/internal/app"
	"DealScreener/internal/config"
	"DealScreener/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
