package mysql

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"review_dashboard/internal/domain"
)

const table = "reviews"

// Column order shared by INSERT and SELECT; scanReview depends on it.
var reviewColumns = []string{
	"id",
	"source_id",
	"external_id",
	"property_id",
	"property_name",
	"guest_name",
	"guest_avatar_url",
	"author_url",
	"author_photo_url",
	"rating",
	"body",
	"created_at",
	"channel",
	"categories",
	"categories_estimated",
	"host_response",
	"host_response_at",
	"sentiment",
	"approval_status",
	"approved_by",
	"approved_at",
	"verified",
	"ingested_at",
}

var sortColumns = map[domain.SortField]string{
	domain.SortCreatedAt:      "created_at",
	domain.SortIngestedAt:     "ingested_at",
	domain.SortRating:         "rating",
	domain.SortGuestName:      "guest_name",
	domain.SortPropertyName:   "property_name",
	domain.SortChannel:        "channel",
	domain.SortSource:         "source_id",
	domain.SortApprovalStatus: "approval_status",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildReviewConditions(sb *sqlbuilder.SelectBuilder, f domain.ReviewFilter) []string {
	var conds []string

	if f.Rating != 0 {
		conds = append(conds, sb.Equal("rating", f.Rating))
	}
	if f.MinRating != 0 {
		conds = append(conds, sb.GreaterEqualThan("rating", f.MinRating))
	}
	if f.Sentiment != "" {
		conds = append(conds, sb.Equal("sentiment", string(f.Sentiment)))
	}
	if f.Channel != "" {
		conds = append(conds, sb.Equal("channel", f.Channel))
	}
	if f.Source != "" {
		conds = append(conds, sb.Equal("source_id", string(f.Source)))
	}
	if f.Approval != "" {
		conds = append(conds, sb.Equal("approval_status", string(f.Approval)))
	}
	if f.PropertyID != "" {
		conds = append(conds, sb.Equal("property_id", f.PropertyID))
	}
	if f.Search != "" {
		pat := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		conds = append(conds, sb.Or(
			sb.Like("LOWER(body)", pat),
			sb.Like("LOWER(guest_name)", pat),
			sb.Like("LOWER(property_name)", pat),
		))
	}
	return conds
}

// buildReviewOrder mirrors domain.Sort.Compare: the id tiebreak follows the
// direction of the main key.
func buildReviewOrder(s domain.Sort) ([]string, error) {
	if s.Field == "" {
		s = domain.DefaultSort
	}
	col, ok := sortColumns[s.Field]
	if !ok {
		return nil, fmt.Errorf("unknown sort field: %s", s.Field)
	}
	dir := " ASC"
	if s.Desc {
		dir = " DESC"
	}
	return []string{col + dir, "id" + dir}, nil
}

func selectReviews(f domain.ReviewFilter) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.Select(reviewColumns...)
	sb.From(table)
	if conds := buildReviewConditions(sb, f); len(conds) > 0 {
		sb.Where(conds...)
	}
	return sb
}

func countReviews(f domain.ReviewFilter) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.Select("COUNT(*)")
	sb.From(table)
	if conds := buildReviewConditions(sb, f); len(conds) > 0 {
		sb.Where(conds...)
	}
	return sb
}

func idArgs(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
