package domain

import (
	"math"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
)

const avatarBase = "https://ui-avatars.com/api/"

// reviewNamespace scopes the UUIDv5 ids derived from (source, external id).
var reviewNamespace = uuid.MustParse("7d6c1f0e-3b58-4a55-9b8e-2f1c6a0d4e91")

func SentimentFor(rating int) Sentiment {
	switch {
	case rating >= 4:
		return SentimentPositive
	case rating <= 2:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// AutoApprove is the only automatic transition into approved.
func AutoApprove(rating int) ApprovalStatus {
	if rating >= 4 {
		return ApprovalApproved
	}
	return ApprovalPending
}

// AvatarURL builds a placeholder avatar link; nothing is fetched.
func AvatarURL(name string) string {
	q := url.Values{}
	q.Set("name", name)
	q.Set("background", "284E4C")
	q.Set("color", "fff")
	return avatarBase + "?" + q.Encode()
}

// ReviewID is stable for a given (source, external id) pair.
func ReviewID(source SourceID, externalID string) string {
	return uuid.NewSHA1(reviewNamespace, []byte(string(source)+"\x00"+externalID)).String()
}

// Derive computes the fields a source may never set itself.
func (r *Review) Derive() {
	r.ID = ReviewID(r.SourceID, r.ExternalID)
	r.Sentiment = SentimentFor(r.Rating)
	r.ApprovalStatus = AutoApprove(r.Rating)
	r.GuestAvatarURL = AvatarURL(r.GuestName)
}

// Prepare readies a review for its first insert. Approval metadata carried
// in from a source is discarded.
func (r *Review) Prepare(now time.Time) {
	r.Derive()
	r.ApprovedBy = nil
	r.ApprovedAt = nil
	if r.ApprovalStatus == ApprovalApproved {
		t := now
		r.ApprovedAt = &t
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.IngestedAt = now
}

// RatingFrom converts a raw numeric rating, rejecting fractions and values outside 1-5.
func RatingFrom(f float64) (int, error) {
	if f != math.Trunc(f) {
		return 0, NewValidationError("rating", "must be a whole number")
	}
	if f < MinRating || f > MaxRating {
		return 0, NewValidationError("rating", "must be between 1 and 5")
	}
	return int(f), nil
}

// Validate checks the invariants every stored review must hold.
func (r Review) Validate() error {
	v := &ValidationError{}
	if r.ExternalID == "" {
		v.Add("externalId", "is required")
	}
	if !r.SourceID.Valid() {
		v.Add("sourceId", "must be one of primary-booking-api, places-api, manual")
	}
	if r.PropertyName == "" {
		v.Add("propertyName", "is required")
	}
	if r.GuestName == "" {
		v.Add("guestName", "is required")
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		v.Add("rating", "must be between 1 and 5")
	}
	if r.Body == "" {
		v.Add("body", "is required")
	}
	if r.Channel == "" {
		v.Add("channel", "is required")
	}
	for k, c := range r.Categories {
		if !slices.Contains(CategoryKeys, k) {
			v.Add("categories."+k, "is not a known category")
			continue
		}
		if c < MinRating || c > MaxRating {
			v.Add("categories."+k, "must be between 1 and 5")
		}
	}
	return v.OrNil()
}
