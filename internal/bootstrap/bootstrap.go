// Package bootstrap builds the runtime dependencies shared by cmd/api and
// cmd/ingestor from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/adapters/hostaway"
	"review_dashboard/internal/adapters/places"
	redisad "review_dashboard/internal/adapters/redis"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/shared"
	"review_dashboard/internal/storage/memory"
	mysqlrepo "review_dashboard/internal/storage/mysql"
)

// Deps holds what the binaries wire together. Close releases connections.
type Deps struct {
	Store   domain.ReviewStore
	Cache   domain.Cache // nil when REDIS_ADDR is empty or unreachable
	Sources []domain.ReviewSource
	closers []func() error
}

func (d *Deps) Close() {
	for _, c := range d.closers {
		_ = c()
	}
}

func Build(ctx context.Context, cfg shared.Config) (*Deps, error) {
	d := &Deps{}

	switch cfg.StorageDriver {
	case "memory":
		d.Store = memory.New()
		log.Info().Msg("using in-memory store")
	case "mysql":
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		db, err := mysqlrepo.Open(pingCtx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		d.Store = mysqlrepo.New(db)
		log.Info().Msg("database connection ok")
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		c := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, running without cache")
			_ = c.Close()
		} else {
			d.Cache = c
			d.closers = append(d.closers, c.Close)
		}
	}

	srcs, err := shared.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	d.Sources, err = buildSources(cfg, srcs)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// buildSources falls back to the bundled samples for any source whose API
// is not configured.
func buildSources(cfg shared.Config, srcs shared.Sources) ([]domain.ReviewSource, error) {
	var hf hostaway.Fetcher = hostaway.SampleFetcher{}
	if cfg.HostawayBase != "" {
		c, err := hostaway.NewClient(cfg.HostawayBase, cfg.HostawayKey, cfg.HostawayAccountID, cfg.SourceRPS)
		if err != nil {
			return nil, err
		}
		hf = c
	} else {
		log.Info().Msg("HOSTAWAY_BASE_URL empty, using sample reviews")
	}
	out := []domain.ReviewSource{hostaway.NewSource(hf, srcs.Hostaway.ListingIDs, srcs.Hostaway.Limit)}

	if len(srcs.Places) == 0 {
		return out, nil
	}
	var pf places.Fetcher = places.SampleFetcher{}
	if cfg.PlacesKey != "" {
		c, err := places.NewClient(cfg.PlacesBase, cfg.PlacesKey, cfg.SourceRPS)
		if err != nil {
			return nil, err
		}
		pf = c
	} else {
		log.Info().Msg("PLACES_API_KEY empty, using sample reviews")
	}
	ps := make([]places.Place, 0, len(srcs.Places))
	for _, p := range srcs.Places {
		ps = append(ps, places.Place{PlaceID: p.PlaceID, PropertyID: p.PropertyID, PropertyName: p.PropertyName})
	}
	return append(out, places.NewSource(pf, ps, places.RandomJitter)), nil
}
