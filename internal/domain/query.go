package domain

import (
	"cmp"
	"slices"
	"strings"
)

// ReviewFilter lists the recognized constraints; zero values mean "no constraint".
// Rating is an exact match, MinRating a threshold; both may be set.
type ReviewFilter struct {
	Rating     int
	MinRating  int
	Sentiment  Sentiment
	Channel    string
	Source     SourceID
	Approval   ApprovalStatus
	PropertyID string
	Search     string
}

type SortField string

const (
	SortCreatedAt      SortField = "createdAt"
	SortIngestedAt     SortField = "ingestedAt"
	SortRating         SortField = "rating"
	SortGuestName      SortField = "guestName"
	SortPropertyName   SortField = "propertyName"
	SortChannel        SortField = "channel"
	SortSource         SortField = "source"
	SortApprovalStatus SortField = "approvalStatus"
)

var ValidSortFields = []SortField{
	SortCreatedAt,
	SortIngestedAt,
	SortRating,
	SortGuestName,
	SortPropertyName,
	SortChannel,
	SortSource,
	SortApprovalStatus,
}

type Sort struct {
	Field SortField
	Desc  bool
}

var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ListOptions is the validated form of a list request.
type ListOptions struct {
	Filter ReviewFilter
	Sort   Sort
	Page   int // 1-based
	Limit  int
}

// Window is the page slice applied after filtering and sorting.
type Window struct {
	Offset int
	Limit  int
}

// Apply cuts the window out of an already sorted slice.
func (w Window) Apply(rs []Review) []Review {
	if w.Offset >= len(rs) {
		return []Review{}
	}
	end := len(rs)
	if w.Limit > 0 && w.Offset+w.Limit < end {
		end = w.Offset + w.Limit
	}
	return rs[w.Offset:end]
}

// Query is the in-memory form of ListOptions: a predicate, an ordering and a window.
type Query struct {
	Predicate func(Review) bool
	Compare   func(a, b Review) int
	Window    Window
}

func BuildQuery(opts ListOptions) Query {
	f := opts.Filter
	s := opts.Sort
	if s.Field == "" {
		s = DefaultSort
	}
	page, limit := opts.Page, opts.Limit
	if page < 1 {
		page = 1
	}
	return Query{
		Predicate: f.Match,
		Compare:   s.Compare,
		Window:    Window{Offset: (page - 1) * limit, Limit: limit},
	}
}

// Run filters, sorts and windows rs. The window is always cut last.
func (q Query) Run(rs []Review) (page []Review, total int) {
	matched := make([]Review, 0, len(rs))
	for _, r := range rs {
		if q.Predicate(r) {
			matched = append(matched, r)
		}
	}
	slices.SortStableFunc(matched, q.Compare)
	return q.Window.Apply(matched), len(matched)
}

func (f ReviewFilter) Match(r Review) bool {
	if f.Rating != 0 && r.Rating != f.Rating {
		return false
	}
	if f.MinRating != 0 && r.Rating < f.MinRating {
		return false
	}
	if f.Sentiment != "" && r.Sentiment != f.Sentiment {
		return false
	}
	if f.Channel != "" && r.Channel != f.Channel {
		return false
	}
	if f.Source != "" && r.SourceID != f.Source {
		return false
	}
	if f.Approval != "" && r.ApprovalStatus != f.Approval {
		return false
	}
	if f.PropertyID != "" && r.PropertyID != f.PropertyID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.Body), needle) &&
			!strings.Contains(strings.ToLower(r.GuestName), needle) &&
			!strings.Contains(strings.ToLower(r.PropertyName), needle) {
			return false
		}
	}
	return true
}

// Compare orders two reviews by the sort field, breaking ties by id.
func (s Sort) Compare(a, b Review) int {
	var c int
	switch s.Field {
	case SortRating:
		c = cmp.Compare(a.Rating, b.Rating)
	case SortIngestedAt:
		c = a.IngestedAt.Compare(b.IngestedAt)
	case SortGuestName:
		c = cmp.Compare(a.GuestName, b.GuestName)
	case SortPropertyName:
		c = cmp.Compare(a.PropertyName, b.PropertyName)
	case SortChannel:
		c = cmp.Compare(a.Channel, b.Channel)
	case SortSource:
		c = cmp.Compare(a.SourceID, b.SourceID)
	case SortApprovalStatus:
		c = cmp.Compare(a.ApprovalStatus, b.ApprovalStatus)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if s.Desc {
		return -c
	}
	return c
}

// Page describes where a result window sits in the full match set.
type Page struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPage(total, page, limit int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Total: total, Page: page, Limit: limit, Pages: pages}
}

// ReviewsPage is one window of a list query.
type ReviewsPage struct {
	Items []Review `json:"reviews"`
	Page
}
