package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"assessments/internal/app/server"
	"assessments/internal/platform/config"
	"assessments/internal/platform/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, cfg.Environment, cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
