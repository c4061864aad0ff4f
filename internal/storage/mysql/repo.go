package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"review_dashboard/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valJSON(m map[string]int) any {
	if len(m) == 0 {
		return nil
	}
	b, _ := json.Marshal(m)
	return string(b)
}

type Repo struct{ db *sql.DB }

var _ domain.ReviewStore = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Insert(ctx context.Context, rv domain.Review) error {
	ib := sqlbuilder.InsertInto(table)
	ib.Cols(reviewColumns...)
	ib.Values(
		rv.ID,
		string(rv.SourceID),
		rv.ExternalID,
		rv.PropertyID,
		rv.PropertyName,
		rv.GuestName,
		rv.GuestAvatarURL,
		valStr(rv.AuthorURL),
		valStr(rv.AuthorPhotoURL),
		rv.Rating,
		rv.Body,
		rv.CreatedAt.UTC(),
		rv.Channel,
		valJSON(rv.Categories),
		rv.CategoriesEstimated,
		valStr(rv.HostResponse),
		valTime(rv.HostResponseAt),
		string(rv.Sentiment),
		string(rv.ApprovalStatus),
		valStr(rv.ApprovedBy),
		valTime(rv.ApprovedAt),
		rv.Verified,
		rv.IngestedAt.UTC(),
	)
	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return classify("insert review", err)
	}
	return nil
}

// SetApproval counts the matching ids and updates them in one transaction.
// Changed comes from RowsAffected, which the driver reports as rows whose
// values actually differ.
func (r *Repo) SetApproval(ctx context.Context, ids []string, status domain.ApprovalStatus, by *string, at *time.Time) (domain.ApprovalChange, error) {
	if len(ids) == 0 {
		return domain.ApprovalChange{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ApprovalChange{}, classify("begin approval", err)
	}
	defer func() { _ = tx.Rollback() }()

	cb := sqlbuilder.Select("COUNT(*)")
	cb.From(table)
	cb.Where(cb.In("id", idArgs(ids)...))
	query, args := cb.Build()
	var ch domain.ApprovalChange
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&ch.Matched); err != nil {
		return domain.ApprovalChange{}, classify("count approval targets", err)
	}
	if ch.Matched == 0 {
		return ch, nil
	}

	ub := sqlbuilder.Update(table)
	ub.Set(
		ub.Assign("approval_status", string(status)),
		ub.Assign("approved_by", valStr(by)),
		ub.Assign("approved_at", valTime(at)),
	)
	ub.Where(ub.In("id", idArgs(ids)...))
	query, args = ub.Build()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.ApprovalChange{}, classify("update approval", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ApprovalChange{}, classify("update approval", err)
	}
	ch.Changed = int(n)
	if err := tx.Commit(); err != nil {
		return domain.ApprovalChange{}, classify("commit approval", err)
	}
	return ch, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := sqlbuilder.DeleteFrom(table)
	db.Where(db.Equal("id", id))
	query, args := db.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("delete review", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete review", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) FindByKey(ctx context.Context, k domain.Key) (domain.Review, error) {
	sb := sqlbuilder.Select(reviewColumns...)
	sb.From(table)
	sb.Where(sb.Equal("source_id", string(k.Source)), sb.Equal("external_id", k.ExternalID))
	query, args := sb.Build()

	rv, err := scanReview(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, classify("find review", err)
	}
	return rv, nil
}

// GetByIDs returns the reviews that exist, in request order.
func (r *Repo) GetByIDs(ctx context.Context, ids []string) ([]domain.Review, error) {
	if len(ids) == 0 {
		return []domain.Review{}, nil
	}
	sb := sqlbuilder.Select(reviewColumns...)
	sb.From(table)
	sb.Where(sb.In("id", idArgs(ids)...))
	query, args := sb.Build()

	rs, err := r.query(ctx, "get reviews", query, args)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Review, len(rs))
	for _, rv := range rs {
		byID[rv.ID] = rv
	}
	out := make([]domain.Review, 0, len(ids))
	for _, id := range ids {
		if rv, ok := byID[id]; ok {
			out = append(out, rv)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *Repo) List(ctx context.Context, opts domain.ListOptions) (domain.ReviewsPage, error) {
	total, err := r.Count(ctx, opts.Filter)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	sb := selectReviews(opts.Filter)
	orderings, err := buildReviewOrder(opts.Sort)
	if err != nil {
		return domain.ReviewsPage{}, fmt.Errorf("building reviews order by clause: %w", err)
	}
	sb.OrderBy(orderings...)
	page := max(opts.Page, 1)
	if opts.Limit > 0 {
		sb.Limit(opts.Limit)
		sb.Offset((page - 1) * opts.Limit)
	}
	query, args := sb.Build()

	items, err := r.query(ctx, "list reviews", query, args)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items, Page: domain.NewPage(total, page, opts.Limit)}, nil
}

func (r *Repo) ListAll(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	sb := selectReviews(f)
	orderings, _ := buildReviewOrder(domain.DefaultSort)
	sb.OrderBy(orderings...)
	query, args := sb.Build()
	return r.query(ctx, "list all reviews", query, args)
}

func (r *Repo) Count(ctx context.Context, f domain.ReviewFilter) (int, error) {
	query, args := countReviews(f).Build()
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify("count reviews", err)
	}
	return n, nil
}

func (r *Repo) query(ctx context.Context, op, query string, args []any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(s scanner) (domain.Review, error) {
	var rv domain.Review
	var (
		sourceID, sentiment, approval    string
		authorURL, authorPhoto, response sql.NullString
		approvedBy                       sql.NullString
		categories                       []byte
		responseAt, approvedAt           sql.NullTime
	)
	if err := s.Scan(
		&rv.ID,
		&sourceID,
		&rv.ExternalID,
		&rv.PropertyID,
		&rv.PropertyName,
		&rv.GuestName,
		&rv.GuestAvatarURL,
		&authorURL,
		&authorPhoto,
		&rv.Rating,
		&rv.Body,
		&rv.CreatedAt,
		&rv.Channel,
		&categories,
		&rv.CategoriesEstimated,
		&response,
		&responseAt,
		&sentiment,
		&approval,
		&approvedBy,
		&approvedAt,
		&rv.Verified,
		&rv.IngestedAt,
	); err != nil {
		return domain.Review{}, err
	}

	rv.SourceID = domain.SourceID(sourceID)
	rv.Sentiment = domain.Sentiment(sentiment)
	rv.ApprovalStatus = domain.ApprovalStatus(approval)
	rv.AuthorURL = nullStr(authorURL)
	rv.AuthorPhotoURL = nullStr(authorPhoto)
	rv.HostResponse = nullStr(response)
	rv.ApprovedBy = nullStr(approvedBy)
	rv.HostResponseAt = nullTime(responseAt)
	rv.ApprovedAt = nullTime(approvedAt)
	if len(categories) > 0 {
		if err := json.Unmarshal(categories, &rv.Categories); err != nil {
			return domain.Review{}, fmt.Errorf("decode categories of %s: %w", rv.ID, err)
		}
	}
	rv.CreatedAt = rv.CreatedAt.UTC()
	rv.IngestedAt = rv.IngestedAt.UTC()
	return rv, nil
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullTime(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
