package domain_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_dashboard/internal/domain"
)

func TestSentimentFor_Total(t *testing.T) {
	want := map[int]domain.Sentiment{
		1: domain.SentimentNegative,
		2: domain.SentimentNegative,
		3: domain.SentimentNeutral,
		4: domain.SentimentPositive,
		5: domain.SentimentPositive,
	}
	for rating, s := range want {
		got := domain.SentimentFor(rating)
		assert.Equal(t, s, got, "rating %d", rating)
		assert.True(t, got.Valid())
	}
}

func TestAutoApprove(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		got := domain.AutoApprove(rating)
		if rating >= 4 {
			assert.Equal(t, domain.ApprovalApproved, got, "rating %d", rating)
		} else {
			assert.Equal(t, domain.ApprovalPending, got, "rating %d", rating)
		}
	}
}

func TestAvatarURL_EncodesName(t *testing.T) {
	got := domain.AvatarURL("Zoë & Ann")
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "ui-avatars.com", u.Host)
	assert.Equal(t, "Zoë & Ann", u.Query().Get("name"))
	assert.Equal(t, got, domain.AvatarURL("Zoë & Ann"))
}

func TestReviewID_ScopedBySource(t *testing.T) {
	a := domain.ReviewID(domain.SourcePrimary, "r1")
	b := domain.ReviewID(domain.SourcePlaces, "r1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, domain.ReviewID(domain.SourcePrimary, "r1"))
}

func TestPrepare_DerivesFieldsAndDropsSourceApproval(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	by := "someone"
	r := domain.Review{
		SourceID:       domain.SourcePrimary,
		ExternalID:     "r2",
		GuestName:      "Lisa",
		Rating:         2,
		Sentiment:      domain.SentimentPositive,
		ApprovalStatus: domain.ApprovalApproved,
		ApprovedBy:     &by,
	}
	r.Prepare(now)

	assert.Equal(t, domain.SentimentNegative, r.Sentiment)
	assert.Equal(t, domain.ApprovalPending, r.ApprovalStatus)
	assert.Nil(t, r.ApprovedBy)
	assert.Nil(t, r.ApprovedAt)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, now, r.IngestedAt)
	assert.Equal(t, domain.ReviewID(domain.SourcePrimary, "r2"), r.ID)
	assert.NotEmpty(t, r.GuestAvatarURL)
}

func TestValidate_CollectsEveryField(t *testing.T) {
	err := domain.Review{SourceID: "nope", Rating: 6, Categories: map[string]int{"value": 0}}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, k := range []string{"externalId", "sourceId", "propertyName", "guestName", "rating", "body", "channel", "categories.value"} {
		assert.True(t, fields[k], "missing %s", k)
	}
}

func TestStorageError_Retryable(t *testing.T) {
	base := errors.New("conn reset")
	err := error(&domain.StorageError{Op: "insert", Err: base, Retryable: true})
	assert.True(t, domain.IsRetryable(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, domain.IsRetryable(&domain.StorageError{Op: "insert", Err: base}))
	assert.False(t, domain.IsRetryable(base))
}

func TestRatingFrom(t *testing.T) {
	for _, f := range []float64{1, 3, 5} {
		got, err := domain.RatingFrom(f)
		require.NoError(t, err)
		assert.Equal(t, int(f), got)
	}
	for _, f := range []float64{0, 6, 4.5, -1} {
		_, err := domain.RatingFrom(f)
		assert.ErrorIs(t, err, domain.ErrValidation, "rating %v", f)
	}
}
