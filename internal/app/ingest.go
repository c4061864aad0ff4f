package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/domain"
)

var ErrUnknownSource = errors.New("unknown source")

// SyncResult is the outcome of writing one batch.
type SyncResult struct {
	Source   domain.SourceID    `json:"source"`
	Inserted int                `json:"inserted"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Rejected []domain.Rejection `json:"rejected,omitempty"`
}

type IngestionService struct {
	store       domain.ReviewStore
	cache       domain.Cache
	sources     map[domain.SourceID]domain.ReviewSource
	normalizers map[domain.SourceID]domain.RawNormalizer
	order       []domain.SourceID
	workers     int
	now         func() time.Time
}

// NewIngestionService registers the sources; a source that also implements
// domain.RawNormalizer accepts pushed batches.
func NewIngestionService(store domain.ReviewStore, cache domain.Cache, workers int, sources ...domain.ReviewSource) *IngestionService {
	s := &IngestionService{
		store:       store,
		cache:       cache,
		sources:     map[domain.SourceID]domain.ReviewSource{},
		normalizers: map[domain.SourceID]domain.RawNormalizer{},
		workers:     max(workers, 1),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, src := range sources {
		s.sources[src.Source()] = src
		s.order = append(s.order, src.Source())
		if n, ok := src.(domain.RawNormalizer); ok {
			s.normalizers[src.Source()] = n
		}
	}
	return s
}

// Sources lists the registered sources in registration order.
func (s *IngestionService) Sources() []domain.SourceID { return s.order }

// Sync inserts the reviews of b whose (source, external id) is not stored yet.
// Existing records are never updated. Only context cancellation stops the batch.
func (s *IngestionService) Sync(ctx context.Context, b domain.Batch) (SyncResult, error) {
	res := SyncResult{Source: b.Source, Rejected: b.Rejected}
	defer func() {
		src := string(b.Source)
		observability.ObserveIngest(src, "inserted", res.Inserted)
		observability.ObserveIngest(src, "skipped", res.Skipped)
		observability.ObserveIngest(src, "failed", res.Failed)
		observability.ObserveIngest(src, "rejected", len(res.Rejected))
		if res.Inserted > 0 {
			s.invalidate(ctx)
		}
	}()

	for _, rv := range b.Reviews {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		_, err := s.store.FindByKey(ctx, rv.Key())
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			res.Failed++
			log.Warn().Err(err).Str("source", string(rv.SourceID)).Str("external_id", rv.ExternalID).Msg("lookup failed")
			continue
		}

		rv.Prepare(s.now())
		if err := s.store.Insert(ctx, rv); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// lost a race with a concurrent sync
				res.Skipped++
				continue
			}
			res.Failed++
			log.Warn().Err(err).
				Str("source", string(rv.SourceID)).
				Str("external_id", rv.ExternalID).
				Bool("retryable", domain.IsRetryable(err)).
				Msg("insert failed")
			continue
		}
		res.Inserted++
	}
	return res, nil
}

// Ingest pulls one registered source and syncs the result.
func (s *IngestionService) Ingest(ctx context.Context, id domain.SourceID) (SyncResult, error) {
	src, ok := s.sources[id]
	if !ok {
		return SyncResult{Source: id}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	start := time.Now()
	b, err := src.Pull(ctx)
	observability.ObservePull(string(id), time.Since(start), err)
	if err != nil {
		return SyncResult{Source: id}, err
	}
	res, err := s.Sync(ctx, b)
	log.Info().
		Str("source", string(id)).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Int("rejected", len(res.Rejected)).
		Msg("source synced")
	return res, err
}

// IngestRaw normalizes a pushed batch of raw records and syncs it.
func (s *IngestionService) IngestRaw(ctx context.Context, id domain.SourceID, raw []map[string]any) (SyncResult, error) {
	n, ok := s.normalizers[id]
	if !ok {
		return SyncResult{Source: id}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return s.Sync(ctx, n.NormalizeRaw(raw))
}

// IngestAll syncs every registered source, at most `workers` at a time.
// A failing source does not stop the others; errors are joined. Results
// cover only the sources that were started.
func (s *IngestionService) IngestAll(ctx context.Context) ([]SyncResult, error) {
	sem := semaphore.NewWeighted(int64(s.workers))
	results := make([]SyncResult, len(s.order))
	errs := make([]error, len(s.order))
	var wg sync.WaitGroup

	started := 0
	for i, id := range s.order {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			break
		}
		started++
		wg.Add(1)
		go func(i int, id domain.SourceID) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := s.Ingest(ctx, id)
			results[i] = res
			if err != nil {
				log.Warn().Err(err).Str("source", string(id)).Msg("ingest failed")
				errs[i] = fmt.Errorf("%s: %w", id, err)
			}
		}(i, id)
	}
	wg.Wait()
	// sources never started have no result to report
	return results[:started], errors.Join(errs...)
}

// EnsureSeeded ingests every source once when the store is empty.
// It reports whether seeding ran.
func (s *IngestionService) EnsureSeeded(ctx context.Context) (bool, error) {
	n, err := s.store.Count(ctx, domain.ReviewFilter{})
	if err != nil {
		return false, fmt.Errorf("count reviews: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	log.Info().Int("sources", len(s.order)).Msg("store empty, seeding")
	_, err = s.IngestAll(ctx)
	return true, err
}

func (s *IngestionService) invalidate(ctx context.Context) {
	bumpGeneration(ctx, s.cache, s.now())
}
