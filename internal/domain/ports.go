package domain

import (
	"context"
	"time"
)

type ReviewStore interface {
	// Write paths
	Insert(ctx context.Context, r Review) error // ErrConflict on duplicate (source, external id)
	SetApproval(ctx context.Context, ids []string, status ApprovalStatus, by *string, at *time.Time) (ApprovalChange, error)
	Delete(ctx context.Context, id string) error

	// Read paths
	FindByKey(ctx context.Context, k Key) (Review, error)
	GetByIDs(ctx context.Context, ids []string) ([]Review, error)
	List(ctx context.Context, opts ListOptions) (ReviewsPage, error)
	ListAll(ctx context.Context, f ReviewFilter) ([]Review, error)
	Count(ctx context.Context, f ReviewFilter) (int, error)
}

// ApprovalChange separates ids that exist from rows whose state actually moved.
type ApprovalChange struct {
	Matched int
	Changed int
}

// ReviewSource pulls one external source and normalizes it.
type ReviewSource interface {
	Source() SourceID
	Pull(ctx context.Context) (Batch, error)
}

// RawNormalizer turns pushed raw JSON records into canonical reviews.
type RawNormalizer interface {
	Source() SourceID
	NormalizeRaw(raw []map[string]any) Batch
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
