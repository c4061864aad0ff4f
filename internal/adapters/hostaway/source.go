package hostaway

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"review_dashboard/internal/domain"
)

//go:embed sample_reviews.json
var sampleReviews []byte

// Fetcher returns raw Hostaway review objects.
type Fetcher interface {
	FetchReviews(ctx context.Context, listingIDs []string, limit int) ([]map[string]any, error)
}

// Source is the primary-booking-api Source Adapter.
type Source struct {
	fetcher    Fetcher
	listingIDs []string
	limit      int
}

var (
	_ domain.ReviewSource  = (*Source)(nil)
	_ domain.RawNormalizer = (*Source)(nil)
)

func NewSource(f Fetcher, listingIDs []string, limit int) *Source {
	return &Source{fetcher: f, listingIDs: listingIDs, limit: limit}
}

func (s *Source) Source() domain.SourceID { return domain.SourcePrimary }

func (s *Source) Pull(ctx context.Context) (domain.Batch, error) {
	raw, err := s.fetcher.FetchReviews(ctx, s.listingIDs, s.limit)
	if err != nil {
		return domain.Batch{Source: domain.SourcePrimary}, fmt.Errorf("fetch hostaway reviews: %w", err)
	}
	return Normalize(raw), nil
}

func (s *Source) NormalizeRaw(raw []map[string]any) domain.Batch { return Normalize(raw) }

// SampleFetcher serves the bundled sample export; used when no API base URL is configured.
type SampleFetcher struct{}

func (SampleFetcher) FetchReviews(ctx context.Context, listingIDs []string, limit int) ([]map[string]any, error) {
	var all []map[string]any
	if err := json.Unmarshal(sampleReviews, &all); err != nil {
		return nil, fmt.Errorf("decode sample reviews: %w", err)
	}
	if len(listingIDs) > 0 {
		keep := map[string]bool{}
		for _, id := range listingIDs {
			keep[id] = true
		}
		filtered := all[:0]
		for _, r := range all {
			if keep[reviewAliases.ID(r, "listing_id")] {
				filtered = append(filtered, r)
			}
		}
		all = filtered
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
