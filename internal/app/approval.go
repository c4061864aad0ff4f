package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_dashboard/internal/domain"
)

const defaultActor = "Manager"

// ApprovalResult reports ids found separately from rows that moved, so a
// request naming only unknown ids can be told apart from a no-op.
type ApprovalResult struct {
	Matched int             `json:"matched"`
	Changed int             `json:"changed"`
	Reviews []domain.Review `json:"reviews"`
}

type ApprovalService struct {
	store domain.ReviewStore
	cache domain.Cache
	now   func() time.Time
}

func NewApprovalService(s domain.ReviewStore, c domain.Cache) *ApprovalService {
	return &ApprovalService{store: s, cache: c, now: func() time.Time { return time.Now().UTC() }}
}

// SetApproval moves every listed review to status. approvedBy/approvedAt are
// set for approved and cleared otherwise.
func (s *ApprovalService) SetApproval(ctx context.Context, ids []string, status domain.ApprovalStatus, actor string) (ApprovalResult, error) {
	if len(ids) == 0 {
		return ApprovalResult{}, domain.NewValidationError("reviewIds", "must not be empty")
	}
	if !status.Valid() {
		return ApprovalResult{}, domain.NewValidationError("status", "must be one of pending, approved, rejected")
	}

	var by *string
	var at *time.Time
	if status == domain.ApprovalApproved {
		if actor = strings.TrimSpace(actor); actor == "" {
			actor = defaultActor
		}
		now := s.now()
		by, at = &actor, &now
	}

	ch, err := s.store.SetApproval(ctx, ids, status, by, at)
	if err != nil {
		return ApprovalResult{}, fmt.Errorf("set approval: %w", err)
	}
	res := ApprovalResult{Matched: ch.Matched, Changed: ch.Changed, Reviews: []domain.Review{}}
	if ch.Matched == 0 {
		return res, domain.ErrNotFound
	}
	if ch.Changed > 0 {
		bumpGeneration(ctx, s.cache, s.now())
	}
	log.Info().Int("matched", ch.Matched).Int("changed", ch.Changed).Str("status", string(status)).Msg("approval updated")

	updated, err := s.store.GetByIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("reload reviews: %w", err)
	}
	res.Reviews = updated
	return res, nil
}

func (s *ApprovalService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	bumpGeneration(ctx, s.cache, s.now())
	return nil
}

// CreateInput is a manually entered review.
type CreateInput struct {
	ExternalID   string         `json:"externalId"`
	PropertyID   string         `json:"propertyId"`
	PropertyName string         `json:"propertyName"`
	GuestName    string         `json:"guestName"`
	Rating       float64        `json:"rating"`
	Body         string         `json:"body"`
	Channel      string         `json:"channel"`
	CreatedAt    *time.Time     `json:"createdAt"`
	Categories   map[string]int `json:"categories"`
	HostResponse *string        `json:"hostResponse"`
	Verified     bool           `json:"verified"`
}

// Create stores a manual review. The whole request fails on any invalid field.
func (s *ApprovalService) Create(ctx context.Context, in CreateInput) (domain.Review, error) {
	now := s.now()
	v := &domain.ValidationError{}
	rv := domain.Review{
		SourceID:     domain.SourceManual,
		ExternalID:   strings.TrimSpace(in.ExternalID),
		PropertyID:   strings.TrimSpace(in.PropertyID),
		PropertyName: strings.TrimSpace(in.PropertyName),
		GuestName:    strings.TrimSpace(in.GuestName),
		Body:         strings.TrimSpace(in.Body),
		Channel:      strings.TrimSpace(in.Channel),
		Categories:   in.Categories,
		HostResponse: in.HostResponse,
		Verified:     in.Verified,
	}
	if rv.ExternalID == "" {
		rv.ExternalID = fmt.Sprintf("manual-%d", now.UnixNano())
	}
	if rv.Channel == "" {
		rv.Channel = "Direct"
	}
	if in.CreatedAt != nil {
		rv.CreatedAt = in.CreatedAt.UTC()
	}
	if n, err := domain.RatingFrom(in.Rating); err != nil {
		v.Merge(err)
		rv.Rating = domain.MinRating
	} else {
		rv.Rating = n
	}
	v.Merge(rv.Validate())
	if err := v.OrNil(); err != nil {
		return domain.Review{}, err
	}

	rv.Prepare(now)
	if err := s.store.Insert(ctx, rv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Review{}, fmt.Errorf("review %s/%s: %w", rv.SourceID, rv.ExternalID, err)
		}
		return domain.Review{}, err
	}
	bumpGeneration(ctx, s.cache, now)
	return rv, nil
}
