package places

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"review_dashboard/internal/domain"
)

//go:embed sample_reviews.json
var sampleReviews []byte

type Fetcher interface {
	FetchReviews(ctx context.Context, placeID string) ([]map[string]any, string, error)
}

// Source pulls every configured place and estimates category scores.
type Source struct {
	fetcher Fetcher
	places  []Place
	jitter  Jitter
}

var (
	_ domain.ReviewSource  = (*Source)(nil)
	_ domain.RawNormalizer = (*Source)(nil)
)

func NewSource(f Fetcher, places []Place, jitter Jitter) *Source {
	return &Source{fetcher: f, places: places, jitter: jitter}
}

func (s *Source) Source() domain.SourceID { return domain.SourcePlaces }

// Pull fetches places one by one; a failing place aborts the pull.
func (s *Source) Pull(ctx context.Context) (domain.Batch, error) {
	out := domain.Batch{Source: domain.SourcePlaces}
	for _, p := range s.places {
		raw, name, err := s.fetcher.FetchReviews(ctx, p.PlaceID)
		if err != nil {
			return out, fmt.Errorf("fetch place %s: %w", p.PlaceID, err)
		}
		if p.PropertyName == "" {
			p.PropertyName = name
		}
		b := Normalizer{Place: p, Jitter: s.jitter}.Normalize(raw)
		offset := len(out.Reviews) + len(out.Rejected)
		for _, rj := range b.Rejected {
			rj.Index += offset
			out.Rejected = append(out.Rejected, rj)
		}
		out.Reviews = append(out.Reviews, b.Reviews...)
	}
	return out, nil
}

// NormalizeRaw handles pushed records; each must name its place unless
// exactly one place is configured. A named place that is configured takes its
// property from the configuration; fields on the record still win.
func (s *Source) NormalizeRaw(raw []map[string]any) domain.Batch {
	var p Place
	if len(s.places) == 1 {
		p = s.places[0]
	}
	known := make(map[string]Place, len(s.places))
	for _, pl := range s.places {
		known[pl.PlaceID] = pl
	}
	return Normalizer{Place: p, Jitter: s.jitter, Known: known}.Normalize(raw)
}

// SampleFetcher serves bundled reviews for any place id.
type SampleFetcher struct{}

func (SampleFetcher) FetchReviews(ctx context.Context, placeID string) ([]map[string]any, string, error) {
	var out []map[string]any
	if err := json.Unmarshal(sampleReviews, &out); err != nil {
		return nil, "", fmt.Errorf("decode sample reviews: %w", err)
	}
	return out, "Flex Living Property", nil
}
