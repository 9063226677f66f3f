package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/commercetools"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/http"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/log"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/service"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/telemetry"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running http application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log           config.Log
		HTTP          config.HTTP
		Otel          config.Otel
		Commercetools config.Commercetools
		Sync          config.Sync
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	ctClient, err := commercetools.NewClient(cfg.Commercetools, logger)
	if err != nil {
		return fmt.Errorf("error creating commercetools client: %w", err)
	}

	syncService := service.NewSyncService(cfg.Sync, logger, ctClient)

	interruptChan := cmdutil.InterruptChan()

	svc := http.New(cfg.HTTP, logger, syncService)
	cleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}
	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-interruptChan

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanup(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}

	logger.InfoContext(ctx, "http service is stopped")

	return nil
}
