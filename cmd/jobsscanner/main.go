package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"JobsScanner/internal/app"
	"JobsScanner/internal/config"
	"JobsScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		logger.Warn("close checkpoint store", "error", err)
	}
	if runErr != nil {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
