package app

import (
	"context"
	"encoding/json"
	"time"

	"review_dashboard/internal/domain"
)

type QueryService struct {
	store    domain.ReviewStore
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewQueryService: cache may be nil.
func NewQueryService(s domain.ReviewStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl, now: func() time.Time { return time.Now().UTC() }}
}

func (s *QueryService) List(ctx context.Context, opts domain.ListOptions) (domain.ReviewsPage, error) {
	var key string
	if s.cache != nil {
		key = cacheKey(ctx, s.cache, "list", opts)
		var out domain.ReviewsPage
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	rp, err := s.store.List(ctx, opts)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	if rp.Items == nil {
		rp.Items = []domain.Review{}
	}
	s.put(ctx, key, rp)
	return rp, nil
}

// Summary aggregates every review matching f, ignoring paging.
func (s *QueryService) Summary(ctx context.Context, f domain.ReviewFilter) (Summary, error) {
	var key string
	if s.cache != nil {
		key = cacheKey(ctx, s.cache, "summary", f)
		var out Summary
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	rs, err := s.store.ListAll(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	sum := Summarize(rs)
	s.put(ctx, key, sum)
	return sum, nil
}

// Report is Summary plus monthly trends for the analytics view.
func (s *QueryService) Report(ctx context.Context, f domain.ReviewFilter, months int) (Report, error) {
	rs, err := s.store.ListAll(ctx, f)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: Summarize(rs), Trends: Trends(rs, months), GeneratedAt: s.now()}, nil
}

func (s *QueryService) put(ctx context.Context, key string, v any) {
	if s.cache == nil || key == "" {
		return
	}
	// optional size guard
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}
