package app_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
	"review_dashboard/internal/storage/memory"
)

// ---- fakes ----

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	sets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// countingStore records how often list reads reach the store.
type countingStore struct {
	*memory.Store
	lists int
}

func (s *countingStore) List(ctx context.Context, o domain.ListOptions) (domain.ReviewsPage, error) {
	s.lists++
	return s.Store.List(ctx, o)
}

func mk(src domain.SourceID, ext string, rating int) domain.Review {
	return domain.Review{
		SourceID:     src,
		ExternalID:   ext,
		PropertyID:   "prop_1",
		PropertyName: "Loft",
		GuestName:    "Ann",
		Rating:       rating,
		Body:         "stay " + ext,
		Channel:      "Airbnb",
		CreatedAt:    time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func seed(t *testing.T, s domain.ReviewStore, rs ...domain.Review) {
	t.Helper()
	for _, r := range rs {
		r.Prepare(r.CreatedAt)
		if err := s.Insert(context.Background(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

// ---- tests ----

func TestList_CacheMissThenHit(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	seed(t, st, mk(domain.SourcePrimary, "r1", 5))
	cache := &fakeCache{}
	q := app.NewQueryService(st, cache, 10*time.Minute)
	ctx := context.Background()
	opts := domain.ListOptions{Page: 1, Limit: 10}

	out, err := q.List(ctx, opts)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].GuestName != "Ann" {
		t.Fatalf("unexpected reviews: %+v", out.Items)
	}

	out2, err := q.List(ctx, opts)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.lists != 1 {
		t.Fatalf("expected one store read, got %d", st.lists)
	}
	if out2.Total != 1 || out2.Items[0].ID != out.Items[0].ID {
		t.Fatalf("cached page differs: %+v", out2)
	}
}

func TestList_WriteInvalidatesCache(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	cache := &fakeCache{}
	q := app.NewQueryService(st, cache, 10*time.Minute)
	ing := app.NewIngestionService(st, cache, 1)
	ctx := context.Background()
	opts := domain.ListOptions{Page: 1, Limit: 10}

	if _, err := q.List(ctx, opts); err != nil {
		t.Fatalf("err: %v", err)
	}
	res, err := ing.Sync(ctx, domain.Batch{Source: domain.SourcePrimary, Reviews: []domain.Review{mk(domain.SourcePrimary, "r1", 4)}})
	if err != nil || res.Inserted != 1 {
		t.Fatalf("sync: %+v %v", res, err)
	}

	out, err := q.List(ctx, opts)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Total != 1 {
		t.Fatalf("expected fresh read after sync, got %+v", out)
	}
	if st.lists != 2 {
		t.Fatalf("expected two store reads, got %d", st.lists)
	}
}

func TestList_NilCache(t *testing.T) {
	st := memory.New()
	q := app.NewQueryService(st, nil, time.Minute)
	out, err := q.List(context.Background(), domain.ListOptions{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Fatalf("expected empty non-nil page, got %+v", out.Items)
	}
}

func TestSummary_IgnoresPaging(t *testing.T) {
	st := memory.New()
	seed(t, st, mk(domain.SourcePrimary, "a", 5), mk(domain.SourcePrimary, "b", 3), mk(domain.SourcePlaces, "c", 1))
	q := app.NewQueryService(st, &fakeCache{}, time.Minute)

	s, err := q.Summary(context.Background(), domain.ReviewFilter{})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if s.TotalReviews != 3 || s.AverageRating != 3.0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.SourceBreakdown[domain.SourcePlaces] != 1 {
		t.Fatalf("unexpected source breakdown: %+v", s.SourceBreakdown)
	}

	rep, err := q.Report(context.Background(), domain.ReviewFilter{MinRating: 3}, 12)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep.TotalReviews != 2 || len(rep.Trends) != 1 || rep.Trends[0].Month != "2024-01" {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
