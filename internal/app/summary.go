package app

import (
	"math"
	"slices"
	"time"

	"review_dashboard/internal/domain"
)

// Summary aggregates a review collection for the dashboards.
type Summary struct {
	TotalReviews       int                           `json:"totalReviews"`
	AverageRating      float64                       `json:"averageRating"`
	ChannelBreakdown   map[string]int                `json:"channelBreakdown"`
	SentimentBreakdown map[domain.Sentiment]int      `json:"sentimentBreakdown"`
	RatingBreakdown    map[int]int                   `json:"ratingBreakdown"`
	ApprovalBreakdown  map[domain.ApprovalStatus]int `json:"approvalBreakdown"`
	SourceBreakdown    map[domain.SourceID]int       `json:"sourceBreakdown"`

	// CategoryAverages only counts reviews that carry the category.
	CategoryAverages map[string]float64 `json:"categoryAverages"`
	// EstimatedCategoryReviews is how many of those reviews had estimated scores.
	EstimatedCategoryReviews int `json:"estimatedCategoryReviews"`
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// Summarize is total over any input, including an empty one.
func Summarize(reviews []domain.Review) Summary {
	s := Summary{
		TotalReviews:       len(reviews),
		ChannelBreakdown:   map[string]int{},
		SentimentBreakdown: map[domain.Sentiment]int{},
		RatingBreakdown:    map[int]int{},
		ApprovalBreakdown:  map[domain.ApprovalStatus]int{},
		SourceBreakdown:    map[domain.SourceID]int{},
		CategoryAverages:   map[string]float64{},
	}
	for _, se := range domain.Sentiments {
		s.SentimentBreakdown[se] = 0
	}
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		s.RatingBreakdown[r] = 0
	}
	for _, a := range domain.ApprovalStatuses {
		s.ApprovalBreakdown[a] = 0
	}

	var sum int
	catSum := map[string]int{}
	catN := map[string]int{}
	for _, r := range reviews {
		sum += r.Rating
		s.ChannelBreakdown[r.Channel]++
		s.SentimentBreakdown[r.Sentiment]++
		s.RatingBreakdown[r.Rating]++
		s.ApprovalBreakdown[r.ApprovalStatus]++
		s.SourceBreakdown[r.SourceID]++
		if len(r.Categories) > 0 && r.CategoriesEstimated {
			s.EstimatedCategoryReviews++
		}
		for k, v := range r.Categories {
			catSum[k] += v
			catN[k]++
		}
	}
	if len(reviews) > 0 {
		s.AverageRating = round1(float64(sum) / float64(len(reviews)))
	}
	for k, n := range catN {
		s.CategoryAverages[k] = round1(float64(catSum[k]) / float64(n))
	}
	return s
}

// TrendPoint is one calendar month of review activity.
type TrendPoint struct {
	Month         string  `json:"month"` // YYYY-MM
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

// Trends groups reviews by the UTC month of createdAt and returns the last
// `months` months that have data, oldest first. months <= 0 keeps all.
func Trends(reviews []domain.Review, months int) []TrendPoint {
	sums := map[string]int{}
	counts := map[string]int{}
	for _, r := range reviews {
		m := r.CreatedAt.UTC().Format("2006-01")
		sums[m] += r.Rating
		counts[m]++
	}
	keys := make([]string, 0, len(counts))
	for m := range counts {
		keys = append(keys, m)
	}
	slices.Sort(keys)
	if months > 0 && len(keys) > months {
		keys = keys[len(keys)-months:]
	}
	out := make([]TrendPoint, 0, len(keys))
	for _, m := range keys {
		out = append(out, TrendPoint{
			Month:         m,
			Count:         counts[m],
			AverageRating: round1(float64(sums[m]) / float64(counts[m])),
		})
	}
	return out
}

// Report is the summary endpoint payload.
type Report struct {
	Summary
	Trends      []TrendPoint `json:"trends"`
	GeneratedAt time.Time    `json:"generatedAt"`
}
