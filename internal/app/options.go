package app

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"review_dashboard/internal/domain"
)

// Audience selects the defaults a list request is parsed with.
type Audience int

const (
	// Manager: rating is an exact match, every approval state is visible.
	Manager Audience = iota
	// Public: rating is a threshold and only approved reviews are visible.
	Public
)

const (
	managerLimit = 50
	publicLimit  = 20
	maxLimit     = 200
)

// ParseListOptions reads the recognized keys of a flat query map. Unknown
// keys are ignored; a malformed known key fails the whole request.
func ParseListOptions(q url.Values, aud Audience) (domain.ListOptions, error) {
	v := &domain.ValidationError{}
	opts := domain.ListOptions{Page: 1, Limit: managerLimit, Sort: domain.DefaultSort}
	if aud == Public {
		opts.Limit = publicLimit
	}
	f := &opts.Filter

	intParam := func(key string, lo, hi int) (int, bool) {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" || raw == "all" {
			return 0, false
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < lo || n > hi {
			v.Add(key, "must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
			return 0, false
		}
		return n, true
	}

	if n, ok := intParam("rating", domain.MinRating, domain.MaxRating); ok {
		if aud == Public {
			f.MinRating = n
		} else {
			f.Rating = n
		}
	}
	if n, ok := intParam("minRating", domain.MinRating, domain.MaxRating); ok {
		f.MinRating = max(f.MinRating, n)
	}
	if n, ok := intParam("page", 1, 1<<20); ok {
		opts.Page = n
	}
	if n, ok := intParam("limit", 1, maxLimit); ok {
		opts.Limit = n
	}

	if s := enumParam(q, "sentiment"); s != "" {
		if se := domain.Sentiment(s); se.Valid() {
			f.Sentiment = se
		} else {
			v.Add("sentiment", "must be one of positive, neutral, negative")
		}
	}
	if s := enumParam(q, "source"); s != "" {
		if id := domain.SourceID(s); id.Valid() {
			f.Source = id
		} else {
			v.Add("source", "must be one of primary-booking-api, places-api, manual")
		}
	}
	if s := enumParam(q, "status"); s != "" {
		if a := domain.ApprovalStatus(s); a.Valid() {
			f.Approval = a
		} else {
			v.Add("status", "must be one of pending, approved, rejected")
		}
	} else if s := enumParam(q, "approved"); s != "" {
		switch s {
		case "true":
			f.Approval = domain.ApprovalApproved
		case "false":
			f.Approval = domain.ApprovalPending
		default:
			v.Add("approved", "must be true or false")
		}
	}
	f.Channel = enumParam(q, "channel")
	f.PropertyID = strings.TrimSpace(q.Get("propertyId"))
	f.Search = strings.TrimSpace(q.Get("search"))

	if s := strings.TrimSpace(q.Get("sortBy")); s != "" {
		if sf := domain.SortField(s); slices.Contains(domain.ValidSortFields, sf) {
			opts.Sort.Field = sf
		} else {
			v.Add("sortBy", "is not a sortable field")
		}
	}
	switch strings.ToLower(strings.TrimSpace(q.Get("sortOrder"))) {
	case "":
	case "asc":
		opts.Sort.Desc = false
	case "desc":
		opts.Sort.Desc = true
	default:
		v.Add("sortOrder", "must be asc or desc")
	}

	if aud == Public {
		f.Approval = domain.ApprovalApproved
	}
	return opts, v.OrNil()
}

// enumParam returns "" for absent values and for "all".
func enumParam(q url.Values, key string) string {
	s := strings.TrimSpace(q.Get(key))
	if strings.EqualFold(s, "all") {
		return ""
	}
	return s
}
