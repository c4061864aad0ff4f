package places

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"math/rand/v2"
	"strconv"

	"review_dashboard/internal/adapters/rawjson"
	"review_dashboard/internal/domain"
)

const channel = "Google"

var reviewAliases = rawjson.Aliases{
	"author":    {"author_name", "authorAttribution.displayName"},
	"url":       {"author_url", "authorAttribution.uri"},
	"photo":     {"profile_photo_url", "authorAttribution.photoUri"},
	"rating":    {"rating"},
	"text":      {"text", "text.text", "originalText.text"},
	"time":      {"time", "publishTime"},
	"place":     {"place_id", "placeId"},
	"property":  {"property_id", "propertyId"},
	"prop_name": {"property_name", "propertyName"},
}

// Place ties a places-api location to the property it represents.
type Place struct {
	PlaceID      string
	PropertyID   string
	PropertyName string
}

// Jitter returns a value in [-0.25, 0.25). One draw is made per review.
type Jitter func() float64

func RandomJitter() float64 { return rand.Float64()*0.5 - 0.25 }

// Normalizer maps places-api reviews of one place into canonical reviews.
// Category scores are estimated from the overall rating.
type Normalizer struct {
	Place  Place
	Jitter Jitter
	// Known resolves a place id named by a record to its configured property.
	Known map[string]Place
}

func (n Normalizer) Normalize(raw []map[string]any) domain.Batch {
	b := domain.Batch{Source: domain.SourcePlaces}
	jitter := n.Jitter
	if jitter == nil {
		jitter = RandomJitter
	}
	for i, rec := range raw {
		rv, err := n.mapReview(rec, jitter)
		if err != nil {
			b.Rejected = append(b.Rejected, domain.Rejection{
				Index:      i,
				ExternalID: rv.ExternalID,
				Err:        err,
				Reason:     err.Error(),
			})
			continue
		}
		b.Reviews = append(b.Reviews, rv)
	}
	return b
}

func (n Normalizer) mapReview(r map[string]any, jitter Jitter) (domain.Review, error) {
	place := n.Place
	// pushed batches may carry their own place
	if id := reviewAliases.First(r, "place"); id != "" {
		if known, ok := n.Known[id]; ok {
			place = known
		} else {
			place = Place{PlaceID: id}
		}
	}
	if id := reviewAliases.ID(r, "property"); id != "" {
		place.PropertyID = id
	}
	if name := reviewAliases.First(r, "prop_name"); name != "" {
		place.PropertyName = name
	}

	v := &domain.ValidationError{}
	rv := domain.Review{
		SourceID:       domain.SourcePlaces,
		PropertyID:     place.PropertyID,
		PropertyName:   place.PropertyName,
		GuestName:      reviewAliases.First(r, "author"),
		AuthorURL:      rawjson.Ptr(reviewAliases.First(r, "url")),
		AuthorPhotoURL: rawjson.Ptr(reviewAliases.First(r, "photo")),
		Body:           reviewAliases.First(r, "text"),
		Channel:        channel,
		Verified:       true,
	}
	t, hasTime := reviewAliases.Time(r, "time")
	if hasTime {
		rv.CreatedAt = t
	}
	if place.PlaceID == "" {
		v.Add("placeId", "is required")
	}
	if hasTime {
		rv.ExternalID = externalID(place.PlaceID, rv.GuestName, t.Unix(), rv.Body)
	} else {
		v.Add("time", "is required")
	}

	if f, ok := reviewAliases.Float(r, "rating"); !ok {
		v.Add("rating", "is required")
	} else if stars, err := domain.RatingFrom(f); err != nil {
		v.Merge(err)
	} else {
		rv.Rating = stars
	}

	checked := rv
	if checked.Rating == 0 {
		checked.Rating = domain.MinRating
	}
	if checked.ExternalID == "" {
		checked.ExternalID = "-"
	}
	v.Merge(checked.Validate())
	if err := v.OrNil(); err != nil {
		return rv, err
	}

	rv.Categories = EstimateCategories(rv.Rating, jitter())
	rv.CategoriesEstimated = true
	rv.Derive()
	return rv, nil
}

// EstimateCategories gives every category round(rating + jitter) clamped to 1-5.
func EstimateCategories(rating int, jitter float64) map[string]int {
	score := int(math.Round(float64(rating) + jitter))
	score = max(domain.MinRating, min(domain.MaxRating, score))
	out := make(map[string]int, len(domain.CategoryKeys))
	for _, k := range domain.CategoryKeys {
		out[k] = score
	}
	return out
}

// externalID is stable across fetches; the API returns no review id and
// response order is not guaranteed.
func externalID(placeID, author string, unix int64, text string) string {
	h := sha1.Sum([]byte(author + "|" + strconv.FormatInt(unix, 10) + "|" + text))
	return placeID + ":" + hex.EncodeToString(h[:])[:16]
}
