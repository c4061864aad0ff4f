package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/app"
	"review_dashboard/internal/bootstrap"
	"review_dashboard/internal/shared"
)

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "ingestor")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer deps.Close()

	log.Info().
		Str("storage", cfg.StorageDriver).
		Int("workers", cfg.Workers).
		Int("sources", len(deps.Sources)).
		Msg("ingestor starting")

	// sources run concurrently, bounded by INGEST_WORKERS
	ing := app.NewIngestionService(deps.Store, deps.Cache, cfg.Workers, deps.Sources...)
	results, err := ing.IngestAll(ctx)
	for _, r := range results {
		log.Info().
			Str("source", string(r.Source)).
			Int("inserted", r.Inserted).
			Int("skipped", r.Skipped).
			Int("failed", r.Failed).
			Int("rejected", len(r.Rejected)).
			Msg("ingest result")
	}
	if err != nil {
		log.Error().Err(err).Msg("ingestion completed with errors")
		deps.Close()
		os.Exit(1)
	}
	log.Info().Msg("ingestion completed")
}
