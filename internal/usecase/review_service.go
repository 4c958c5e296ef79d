package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

// ReviewService drives the manual review queue. Resolutions go through a
// compare-and-set on the item status, so two reviewers racing on the same
// item cannot both win.
type ReviewService struct {
	reviews  review.Repository
	mappings mapping.Repository
	games    *GameMatcherService
	players  *PlayerResolverService
	audit    *AuditService
	logger   *logging.Logger
	now      func() time.Time
}

func NewReviewService(
	reviews review.Repository,
	mappings mapping.Repository,
	games *GameMatcherService,
	players *PlayerResolverService,
	auditSvc *AuditService,
	logger *logging.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		mappings: mappings,
		games:    games,
		players:  players,
		audit:    auditSvc,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *ReviewService) ListPending(ctx context.Context, limit int) ([]review.Item, error) {
	ctx, span := startSpan(ctx, "ReviewService.ListPending")
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.reviews.ListPending(ctx, limit)
}

// Approve links the queued record to a canonical entity. canonicalID may be
// empty, in which case the top candidate wins. The write path is the same
// one auto-accept uses, recorded with the manual method.
func (s *ReviewService) Approve(ctx context.Context, itemID, canonicalID, reviewer string) (review.Item, error) {
	ctx, span := startSpan(ctx, "ReviewService.Approve")
	defer span.End()

	item, err := s.claim(ctx, itemID, review.StatusApproved, reviewer)
	if err != nil {
		return review.Item{}, err
	}

	chosen, confidence, err := chooseCandidate(item, canonicalID)
	if err != nil {
		s.reopen(ctx, itemID)
		return review.Item{}, err
	}

	switch item.Kind {
	case sourcerecord.KindGame:
		err = s.games.AcceptManual(ctx, item.Record, chosen, confidence)
	case sourcerecord.KindPlayer:
		err = s.players.AcceptManual(ctx, item.Record, chosen, confidence)
	default:
		err = fmt.Errorf("%w: review item kind %q", ErrInvalidInput, item.Kind)
	}
	if err != nil {
		s.reopen(ctx, itemID)
		return review.Item{}, fmt.Errorf("apply approval: %w", err)
	}

	if err := s.audit.Record(ctx, string(item.Kind), chosen, audit.ActionApprove, nil, item, &MatchDetails{
		Method:     mapping.MethodManual,
		Confidence: confidence,
		Source:     item.Record.Source,
		SourceID:   item.Record.SourceID,
	}, reviewer); err != nil {
		s.reopen(ctx, itemID)
		return review.Item{}, err
	}

	s.logger.InfoContext(ctx, "review item approved",
		"reviewItemId", itemID,
		"canonicalId", chosen,
		"reviewer", reviewer,
	)
	item.Status = review.StatusApproved
	item.ResolvedBy = reviewer
	return item, nil
}

// Reject marks the record as explicitly unmatched. The mapping row stays
// with the failed status so a later resync retries the pipeline.
func (s *ReviewService) Reject(ctx context.Context, itemID, reviewer string) (review.Item, error) {
	ctx, span := startSpan(ctx, "ReviewService.Reject")
	defer span.End()

	item, err := s.claim(ctx, itemID, review.StatusRejected, reviewer)
	if err != nil {
		return review.Item{}, err
	}

	now := s.now().UTC()
	if err := s.mappings.Upsert(ctx, mapping.Mapping{
		Sport:     item.Sport,
		Kind:      mappingKind(item.Kind),
		Source:    item.Record.Source,
		SourceID:  item.Record.SourceID,
		Status:    mapping.StatusFailed,
		Method:    mapping.MethodManual,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		s.reopen(ctx, itemID)
		return review.Item{}, fmt.Errorf("mark mapping failed: %w", err)
	}

	if err := s.audit.Record(ctx, string(item.Kind), item.Record.SourceID, audit.ActionReject, nil, item, &MatchDetails{
		Method:   mapping.MethodManual,
		Source:   item.Record.Source,
		SourceID: item.Record.SourceID,
	}, reviewer); err != nil {
		s.reopen(ctx, itemID)
		return review.Item{}, err
	}

	s.logger.InfoContext(ctx, "review item rejected",
		"reviewItemId", itemID,
		"reviewer", reviewer,
	)
	item.Status = review.StatusRejected
	item.ResolvedBy = reviewer
	return item, nil
}

// reopen puts a claimed item back in the queue when a write after the
// claim fails, so a failed resolution never consumes the item.
func (s *ReviewService) reopen(ctx context.Context, itemID string) {
	if err := s.reviews.Reopen(ctx, itemID); err != nil {
		s.logger.ErrorContext(ctx, "reopen review item", "reviewItemId", itemID, "error", err)
	}
}

// claim loads the item and flips it out of pending atomically.
func (s *ReviewService) claim(ctx context.Context, itemID string, status review.Status, reviewer string) (review.Item, error) {
	if itemID == "" {
		return review.Item{}, fmt.Errorf("%w: review item id is required", ErrInvalidInput)
	}
	if reviewer == "" {
		return review.Item{}, fmt.Errorf("%w: reviewer is required", ErrInvalidInput)
	}

	item, found, err := s.reviews.Get(ctx, itemID)
	if err != nil {
		return review.Item{}, fmt.Errorf("load review item: %w", err)
	}
	if !found {
		return review.Item{}, fmt.Errorf("%w: review item %s", ErrNotFound, itemID)
	}

	if err := s.reviews.Resolve(ctx, itemID, status, reviewer, s.now().UTC()); err != nil {
		if errors.Is(err, review.ErrNotPending) {
			return review.Item{}, fmt.Errorf("%w: review item %s was already resolved", ErrConflict, itemID)
		}
		return review.Item{}, fmt.Errorf("resolve review item: %w", err)
	}
	return item, nil
}

func chooseCandidate(item review.Item, canonicalID string) (string, float64, error) {
	if canonicalID != "" {
		for _, c := range item.Candidates {
			if c.CanonicalID == canonicalID {
				return c.CanonicalID, c.Confidence, nil
			}
		}
		// Reviewer picked an entity outside the suggested list. Allowed,
		// with full manual confidence.
		return canonicalID, 1.0, nil
	}
	top, ok := item.TopCandidate()
	if !ok {
		return "", 0, fmt.Errorf("%w: review item has no candidates, a canonical id is required", ErrInvalidInput)
	}
	return top.CanonicalID, top.Confidence, nil
}

func mappingKind(k sourcerecord.Kind) mapping.Kind {
	if k == sourcerecord.KindPlayer {
		return mapping.KindPlayer
	}
	return mapping.KindGame
}
