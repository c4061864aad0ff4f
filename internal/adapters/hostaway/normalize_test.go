package hostaway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_dashboard/internal/domain"
)

func raw(id string, rating any) map[string]any {
	return map[string]any{
		"id":            id,
		"listing_id":    "prop_1",
		"property_name": "Loft",
		"guest_name":    "Ann",
		"rating":        rating,
		"comment":       "nice",
		"created_at":    "2024-01-15T10:30:00Z",
		"channel":       "Airbnb",
	}
}

func TestNormalize_DerivesSentimentAndApproval(t *testing.T) {
	b := Normalize([]map[string]any{raw("r1", 5.0), raw("r2", 2.0)})
	require.Len(t, b.Reviews, 2)
	require.Empty(t, b.Rejected)

	r1, r2 := b.Reviews[0], b.Reviews[1]
	assert.Equal(t, domain.SentimentPositive, r1.Sentiment)
	assert.Equal(t, domain.ApprovalApproved, r1.ApprovalStatus)
	assert.Equal(t, domain.SentimentNegative, r2.Sentiment)
	assert.Equal(t, domain.ApprovalPending, r2.ApprovalStatus)

	assert.Equal(t, domain.SourcePrimary, r1.SourceID)
	assert.Equal(t, domain.ReviewID(domain.SourcePrimary, "r1"), r1.ID)
	assert.Equal(t, "prop_1", r1.PropertyID)
	assert.Equal(t, 2024, r1.CreatedAt.Year())
	assert.Contains(t, r1.GuestAvatarURL, "name=Ann")
	assert.False(t, r1.CategoriesEstimated)
}

func TestNormalize_SkipsInvalidRecords(t *testing.T) {
	missing := raw("r3", nil)
	delete(missing, "rating")
	noBody := raw("r6", 4.0)
	noBody["comment"] = ""

	b := Normalize([]map[string]any{
		raw("r1", 5.0),
		missing,
		raw("r4", 7.0),
		raw("r5", 4.5),
		noBody,
	})

	require.Len(t, b.Reviews, 1)
	assert.Equal(t, "r1", b.Reviews[0].ExternalID)
	require.Len(t, b.Rejected, 4)

	idx := []int{}
	for _, rj := range b.Rejected {
		idx = append(idx, rj.Index)
		assert.True(t, errors.Is(rj.Err, domain.ErrValidation), rj.Reason)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, idx)
	assert.Equal(t, "r3", b.Rejected[0].ExternalID)
	assert.Contains(t, b.Rejected[0].Reason, "rating is required")
	assert.Contains(t, b.Rejected[3].Reason, "body")
}

func TestNormalize_ReportsEveryFailedField(t *testing.T) {
	rec := map[string]any{"id": "r9", "rating": 0.0}
	b := Normalize([]map[string]any{rec})
	require.Len(t, b.Rejected, 1)

	var ve *domain.ValidationError
	require.True(t, errors.As(b.Rejected[0].Err, &ve))
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"rating", "propertyName", "guestName", "body"} {
		assert.True(t, fields[want], "missing %s in %v", want, ve.Fields)
	}
	// channel falls back to the source name
	assert.False(t, fields["channel"])
}

func TestNormalize_AlternateFieldNames(t *testing.T) {
	rec := map[string]any{
		"id":           7453.0,
		"listingMapId": 12.0,
		"guestName":    "Shane Finkelstein",
		"publicReview": "Shane and family are wonderful!",
		"rating":       "4",
		"submittedAt":  "2020-08-21 22:45:14",
		"channelName":  "Booking.com",
	}
	b := Normalize([]map[string]any{rec})
	require.Len(t, b.Reviews, 1)
	r := b.Reviews[0]
	assert.Equal(t, "7453", r.ExternalID)
	assert.Equal(t, "Listing 12", r.PropertyName)
	assert.Equal(t, 4, r.Rating)
	assert.Equal(t, "Booking.com", r.Channel)
	assert.Equal(t, 2020, r.CreatedAt.Year())
}

func TestMapCategories(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want map[string]int
	}{
		{
			name: "object form",
			in:   map[string]any{"cleanliness": 5.0, "check_in": 4.0, "wifi": 3.0},
			want: map[string]int{"cleanliness": 5, "checkIn": 4},
		},
		{
			name: "array form",
			in: []any{
				map[string]any{"category": "cleanliness", "rating": 10.0},
				map[string]any{"category": "communication", "rating": 4.0},
			},
			want: map[string]int{"communication": 4},
		},
		{name: "absent", in: nil, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, mapCategories(tc.in))
		})
	}
}

func TestNormalize_HostResponse(t *testing.T) {
	rec := raw("r1", 4.0)
	rec["response"] = "Thanks!"
	rec["response_date"] = "2024-01-16T08:00:00Z"
	b := Normalize([]map[string]any{rec})
	require.Len(t, b.Reviews, 1)
	r := b.Reviews[0]
	require.NotNil(t, r.HostResponse)
	assert.Equal(t, "Thanks!", *r.HostResponse)
	require.NotNil(t, r.HostResponseAt)
	assert.Equal(t, 16, r.HostResponseAt.Day())
}
