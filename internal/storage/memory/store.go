// Package memory is an in-process ReviewStore. It backs STORAGE_DRIVER=memory
// and the service tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"review_dashboard/internal/domain"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]domain.Review
	byKey map[domain.Key]string
}

var _ domain.ReviewStore = (*Store)(nil)

func New() *Store {
	return &Store{byID: map[string]domain.Review{}, byKey: map[domain.Key]string{}}
}

// clone detaches the mutable parts of a review from the caller's copy.
func clone(r domain.Review) domain.Review {
	r.Categories = maps.Clone(r.Categories)
	return r
}

func (s *Store) Insert(ctx context.Context, r domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[r.Key()]; ok {
		return domain.ErrConflict
	}
	if _, ok := s.byID[r.ID]; ok {
		return domain.ErrConflict
	}
	s.byID[r.ID] = clone(r)
	s.byKey[r.Key()] = r.ID
	return nil
}

func (s *Store) SetApproval(ctx context.Context, ids []string, status domain.ApprovalStatus, by *string, at *time.Time) (domain.ApprovalChange, error) {
	if err := ctx.Err(); err != nil {
		return domain.ApprovalChange{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var ch domain.ApprovalChange
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, ok := s.byID[id]
		if !ok {
			continue
		}
		ch.Matched++
		if r.ApprovalStatus == status && eqStr(r.ApprovedBy, by) && eqTime(r.ApprovedAt, at) {
			continue
		}
		r.ApprovalStatus = status
		r.ApprovedBy = by
		r.ApprovedAt = at
		s.byID[id] = r
		ch.Changed++
	}
	return ch, nil
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, r.Key())
	return nil
}

func (s *Store) FindByKey(ctx context.Context, k domain.Key) (domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[k]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// GetByIDs returns the reviews that exist, in request order.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.byID[id]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *Store) snapshot() []domain.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Review, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, clone(r))
	}
	return out
}

func (s *Store) List(ctx context.Context, opts domain.ListOptions) (domain.ReviewsPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	items, total := domain.BuildQuery(opts).Run(s.snapshot())
	page := max(opts.Page, 1)
	return domain.ReviewsPage{Items: items, Page: domain.NewPage(total, page, opts.Limit)}, nil
}

func (s *Store) ListAll(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, _ := domain.BuildQuery(domain.ListOptions{Filter: f}).Run(s.snapshot())
	return items, nil
}

func (s *Store) Count(ctx context.Context, f domain.ReviewFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.byID {
		if f.Match(r) {
			n++
		}
	}
	return n, nil
}
