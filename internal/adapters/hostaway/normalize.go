package hostaway

import (
	"strings"

	"review_dashboard/internal/adapters/rawjson"
	"review_dashboard/internal/domain"
)

const defaultChannel = "Hostaway"

// reviewAliases covers the documented Hostaway payload and the flatter
// export format used by the sample fixture.
var reviewAliases = rawjson.Aliases{
	"id":            {"id", "review_id", "reviewId"},
	"listing_id":    {"listing_id", "listingId", "listingMapId", "property_id"},
	"listing_name":  {"property_name", "listingName", "listing_name", "listing.name"},
	"guest":         {"guest_name", "guestName", "reviewer", "reviewer.name", "author"},
	"rating":        {"rating", "overall_rating", "scores.overall"},
	"body":          {"comment", "publicReview", "public_review", "text", "body"},
	"created_at":    {"created_at", "submittedAt", "submitted_at", "date"},
	"channel":       {"channel", "channelName", "channel_name", "source"},
	"categories":    {"categories", "reviewCategory", "review_category"},
	"response":      {"response", "hostResponse", "host_response", "privateReply"},
	"response_date": {"response_date", "responseDate", "host_response_at"},
	"verified":      {"verified", "isVerified"},
}

var categoryKeys = map[string]string{
	"cleanliness":   domain.CategoryCleanliness,
	"communication": domain.CategoryCommunication,
	"check_in":      domain.CategoryCheckIn,
	"checkin":       domain.CategoryCheckIn,
	"check-in":      domain.CategoryCheckIn,
	"accuracy":      domain.CategoryAccuracy,
	"location":      domain.CategoryLocation,
	"value":         domain.CategoryValue,
}

// Normalize maps raw Hostaway records to canonical reviews. Invalid records
// are skipped and reported; the rest of the batch is kept.
func Normalize(raw []map[string]any) domain.Batch {
	b := domain.Batch{Source: domain.SourcePrimary}
	for i, rec := range raw {
		rv, err := mapReview(rec)
		if err != nil {
			b.Rejected = append(b.Rejected, domain.Rejection{
				Index:      i,
				ExternalID: reviewAliases.ID(rec, "id"),
				Err:        err,
				Reason:     err.Error(),
			})
			continue
		}
		b.Reviews = append(b.Reviews, rv)
	}
	return b
}

func mapReview(r map[string]any) (domain.Review, error) {
	v := &domain.ValidationError{}
	rv := domain.Review{
		SourceID:     domain.SourcePrimary,
		ExternalID:   reviewAliases.ID(r, "id"),
		PropertyID:   reviewAliases.ID(r, "listing_id"),
		PropertyName: reviewAliases.First(r, "listing_name"),
		GuestName:    reviewAliases.First(r, "guest"),
		Body:         reviewAliases.First(r, "body"),
		Channel:      reviewAliases.First(r, "channel"),
		HostResponse: rawjson.Ptr(reviewAliases.First(r, "response")),
	}
	if rv.PropertyName == "" && rv.PropertyID != "" {
		rv.PropertyName = "Listing " + rv.PropertyID
	}
	if rv.Channel == "" {
		rv.Channel = defaultChannel
	}

	if f, ok := reviewAliases.Float(r, "rating"); !ok {
		v.Add("rating", "is required")
	} else if n, err := domain.RatingFrom(f); err != nil {
		v.Merge(err)
	} else {
		rv.Rating = n
	}

	if t, ok := reviewAliases.Time(r, "created_at"); ok {
		rv.CreatedAt = t
	}
	if rv.HostResponse != nil {
		if t, ok := reviewAliases.Time(r, "response_date"); ok {
			rv.HostResponseAt = &t
		}
	}
	if b, ok := reviewAliases.Bool(r, "verified"); ok {
		rv.Verified = b
	}
	rv.Categories = mapCategories(reviewAliases.Any(r, "categories"))

	// a bad rating is already reported; validate the remaining fields
	checked := rv
	if checked.Rating == 0 {
		checked.Rating = domain.MinRating
	}
	v.Merge(checked.Validate())
	if err := v.OrNil(); err != nil {
		return domain.Review{}, err
	}

	rv.Derive()
	return rv, nil
}

// mapCategories accepts {"cleanliness":5} or [{"category":"cleanliness","rating":5}].
// Unknown keys and out-of-range values are dropped.
func mapCategories(v any) map[string]int {
	out := map[string]int{}
	put := func(name string, raw any) {
		key, ok := categoryKeys[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return
		}
		f, ok := rawjson.AsFloat(raw)
		if !ok {
			return
		}
		if n, err := domain.RatingFrom(f); err == nil {
			out[key] = n
		}
	}
	switch t := v.(type) {
	case map[string]any:
		for k, raw := range t {
			put(k, raw)
		}
	case []any:
		for _, it := range t {
			if m, ok := it.(map[string]any); ok {
				name, _ := m["category"].(string)
				put(name, m["rating"])
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
