package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
)

func derived(ext string, rating int, channel string) domain.Review {
	r := mk(domain.SourcePrimary, ext, rating)
	r.Channel = channel
	r.Derive()
	return r
}

func TestSummarize(t *testing.T) {
	rs := []domain.Review{
		derived("a", 5, "Airbnb"),
		derived("b", 3, "VRBO"),
		derived("c", 1, "Airbnb"),
	}
	rs[2].ApprovalStatus = domain.ApprovalRejected

	s := app.Summarize(rs)
	assert.Equal(t, 3, s.TotalReviews)
	assert.Equal(t, 3.0, s.AverageRating)
	assert.Equal(t, map[string]int{"Airbnb": 2, "VRBO": 1}, s.ChannelBreakdown)
	assert.Equal(t, map[domain.Sentiment]int{"positive": 1, "neutral": 1, "negative": 1}, s.SentimentBreakdown)
	assert.Equal(t, map[int]int{1: 1, 2: 0, 3: 1, 4: 0, 5: 1}, s.RatingBreakdown)
	assert.Equal(t, map[domain.ApprovalStatus]int{"approved": 1, "pending": 1, "rejected": 1}, s.ApprovalBreakdown)
}

func TestSummarize_Empty(t *testing.T) {
	s := app.Summarize(nil)
	assert.Equal(t, 0, s.TotalReviews)
	assert.Equal(t, 0.0, s.AverageRating)
	assert.Empty(t, s.ChannelBreakdown)
	assert.Len(t, s.SentimentBreakdown, 3)
	assert.Len(t, s.RatingBreakdown, 5)
	assert.Len(t, s.ApprovalBreakdown, 3)
	for _, v := range s.RatingBreakdown {
		assert.Zero(t, v)
	}
}

func TestSummarize_AverageRoundsToOneDecimal(t *testing.T) {
	s := app.Summarize([]domain.Review{derived("a", 5, "x"), derived("b", 4, "x"), derived("c", 4, "x")})
	assert.Equal(t, 4.3, s.AverageRating)
}

func TestSummarize_CategoryAveragesSkipMissing(t *testing.T) {
	a := derived("a", 5, "x")
	a.Categories = map[string]int{domain.CategoryCleanliness: 5, domain.CategoryValue: 4}
	b := derived("b", 3, "x")
	b.Categories = map[string]int{domain.CategoryCleanliness: 2}
	b.CategoriesEstimated = true
	c := derived("c", 1, "x") // no categories

	s := app.Summarize([]domain.Review{a, b, c})
	assert.Equal(t, 3.5, s.CategoryAverages[domain.CategoryCleanliness])
	assert.Equal(t, 4.0, s.CategoryAverages[domain.CategoryValue])
	assert.NotContains(t, s.CategoryAverages, domain.CategoryLocation)
	assert.Equal(t, 1, s.EstimatedCategoryReviews)
}

func TestTrends(t *testing.T) {
	at := func(y int, m time.Month, rating int) domain.Review {
		r := derived("x", rating, "x")
		r.CreatedAt = time.Date(y, m, 10, 0, 0, 0, 0, time.UTC)
		return r
	}
	rs := []domain.Review{at(2024, 3, 5), at(2023, 12, 2), at(2024, 3, 4), at(2024, 1, 3)}

	got := app.Trends(rs, 2)
	assert.Equal(t, []app.TrendPoint{
		{Month: "2024-01", Count: 1, AverageRating: 3},
		{Month: "2024-03", Count: 2, AverageRating: 4.5},
	}, got)
	assert.Len(t, app.Trends(rs, 0), 3)
	assert.Empty(t, app.Trends(nil, 6))
}
