package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "review_dashboard/internal/adapters/http_server"
	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/app"
	"review_dashboard/internal/bootstrap"
	"review_dashboard/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	deps, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer deps.Close()

	q := app.NewQueryService(deps.Store, deps.Cache, cfg.CacheTTL)
	a := app.NewApprovalService(deps.Store, deps.Cache)
	ing := app.NewIngestionService(deps.Store, deps.Cache, cfg.Workers, deps.Sources...)

	if cfg.SeedOnStart {
		if seeded, err := ing.EnsureSeeded(ctx); err != nil {
			log.Warn().Err(err).Msg("initial seeding incomplete")
		} else if seeded {
			log.Info().Msg("store seeded")
		}
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, A: a, I: ing})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
