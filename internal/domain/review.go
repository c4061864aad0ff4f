package domain

import (
	"slices"
	"time"
)

// SourceID names the system a review was ingested from.
type SourceID string

const (
	SourcePrimary SourceID = "primary-booking-api"
	SourcePlaces  SourceID = "places-api"
	SourceManual  SourceID = "manual"
)

var ValidSources = []SourceID{SourcePrimary, SourcePlaces, SourceManual}

func (s SourceID) Valid() bool { return slices.Contains(ValidSources, s) }

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

func (s Sentiment) Valid() bool { return slices.Contains(Sentiments, s) }

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

var ApprovalStatuses = []ApprovalStatus{ApprovalPending, ApprovalApproved, ApprovalRejected}

func (a ApprovalStatus) Valid() bool { return slices.Contains(ApprovalStatuses, a) }

// Sub-rating keys shared by every source.
const (
	CategoryCleanliness   = "cleanliness"
	CategoryCommunication = "communication"
	CategoryCheckIn       = "checkIn"
	CategoryAccuracy      = "accuracy"
	CategoryLocation      = "location"
	CategoryValue         = "value"
)

var CategoryKeys = []string{
	CategoryCleanliness,
	CategoryCommunication,
	CategoryCheckIn,
	CategoryAccuracy,
	CategoryLocation,
	CategoryValue,
}

const (
	MinRating = 1
	MaxRating = 5
)

// Review is the canonical record every source is normalized into.
type Review struct {
	ID             string   `json:"id"`
	SourceID       SourceID `json:"sourceId"`
	ExternalID     string   `json:"externalId"`
	PropertyID     string   `json:"propertyId"`
	PropertyName   string   `json:"propertyName"`
	GuestName      string   `json:"guestName"`
	GuestAvatarURL string   `json:"guestAvatarUrl"`
	AuthorURL      *string  `json:"authorUrl,omitempty"`
	AuthorPhotoURL *string  `json:"authorPhotoUrl,omitempty"`

	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	Channel   string    `json:"channel"`

	// Categories holds sub-ratings keyed by CategoryKeys. When CategoriesEstimated
	// is set the values were derived from Rating, not reported by the source.
	Categories          map[string]int `json:"categories,omitempty"`
	CategoriesEstimated bool           `json:"categoriesEstimated"`

	HostResponse   *string    `json:"hostResponse,omitempty"`
	HostResponseAt *time.Time `json:"hostResponseAt,omitempty"`

	Sentiment      Sentiment      `json:"sentiment"`
	ApprovalStatus ApprovalStatus `json:"approvalStatus"`
	ApprovedBy     *string        `json:"approvedBy,omitempty"`
	ApprovedAt     *time.Time     `json:"approvedAt,omitempty"`

	Verified   bool      `json:"verified"`
	IngestedAt time.Time `json:"ingestedAt"`
}

// Approved reports whether the review is visible on the public showcase.
func (r Review) Approved() bool { return r.ApprovalStatus == ApprovalApproved }

// Key is the deduplication key of a review.
type Key struct {
	Source     SourceID
	ExternalID string
}

func (r Review) Key() Key { return Key{Source: r.SourceID, ExternalID: r.ExternalID} }

// Batch is the output of a Source Adapter: the records that normalized cleanly
// and the ones that were skipped.
type Batch struct {
	Source   SourceID
	Reviews  []Review
	Rejected []Rejection
}

// Rejection explains why one raw record was skipped.
type Rejection struct {
	Index      int    `json:"index"`
	ExternalID string `json:"externalId,omitempty"`
	Err        error  `json:"-"`
	Reason     string `json:"reason"`
}
