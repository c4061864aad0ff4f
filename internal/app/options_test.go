package app_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_dashboard/internal/app"
	"review_dashboard/internal/domain"
)

func TestParseListOptions_AudienceDefaults(t *testing.T) {
	m, err := app.ParseListOptions(url.Values{"rating": {"4"}, "foo": {"bar"}}, app.Manager)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Filter.Rating)
	assert.Zero(t, m.Filter.MinRating)
	assert.Equal(t, 50, m.Limit)
	assert.Equal(t, 1, m.Page)
	assert.Equal(t, domain.DefaultSort, m.Sort)
	assert.Empty(t, m.Filter.Approval)

	p, err := app.ParseListOptions(url.Values{"rating": {"4"}, "status": {"pending"}}, app.Public)
	require.NoError(t, err)
	assert.Zero(t, p.Filter.Rating)
	assert.Equal(t, 4, p.Filter.MinRating)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, domain.ApprovalApproved, p.Filter.Approval)
}

func TestParseListOptions_Filters(t *testing.T) {
	o, err := app.ParseListOptions(url.Values{
		"minRating":  {"3"},
		"sentiment":  {"negative"},
		"channel":    {"Airbnb"},
		"source":     {"places-api"},
		"approved":   {"false"},
		"propertyId": {"prop_1"},
		"search":     {" wifi "},
		"sortBy":     {"rating"},
		"sortOrder":  {"asc"},
		"page":       {"2"},
		"limit":      {"10"},
	}, app.Manager)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewFilter{
		MinRating:  3,
		Sentiment:  domain.SentimentNegative,
		Channel:    "Airbnb",
		Source:     domain.SourcePlaces,
		Approval:   domain.ApprovalPending,
		PropertyID: "prop_1",
		Search:     "wifi",
	}, o.Filter)
	assert.Equal(t, domain.Sort{Field: domain.SortRating}, o.Sort)
	assert.Equal(t, 2, o.Page)
	assert.Equal(t, 10, o.Limit)
}

func TestParseListOptions_AllMeansUnfiltered(t *testing.T) {
	o, err := app.ParseListOptions(url.Values{"status": {"all"}, "channel": {"all"}, "rating": {"all"}}, app.Manager)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewFilter{}, o.Filter)
}

func TestParseListOptions_Malformed(t *testing.T) {
	_, err := app.ParseListOptions(url.Values{
		"rating":    {"6"},
		"limit":     {"abc"},
		"status":    {"archived"},
		"sortBy":    {"password"},
		"sortOrder": {"up"},
	}, app.Manager)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 5)
}
