package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

// MatchDetails is the structured payload stored alongside every matching
// decision: which step matched, at what confidence, and the per-signal
// breakdown.
type MatchDetails struct {
	Method     mapping.Method     `json:"method"`
	Confidence float64            `json:"confidence"`
	Source     string             `json:"source"`
	SourceID   string             `json:"sourceId"`
	Signals    map[string]float64 `json:"signals,omitempty"`
	Note       string             `json:"note,omitempty"`
}

// AuditService writes the append-only decision trail. Every create, update,
// merge and review resolution goes through it.
type AuditService struct {
	repo   audit.Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewAuditService(repo audit.Repository, logger *logging.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger, now: time.Now}
}

// Record appends one entry. prev and next are marshaled as JSON snapshots;
// either may be nil.
func (s *AuditService) Record(ctx context.Context, entityType, entityID string, action audit.Action, prev, next any, details *MatchDetails, actor string) error {
	ctx, span := startSpan(ctx, "AuditService.Record")
	defer span.End()

	entry := audit.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		CreatedAt:  s.now().UTC(),
	}

	var err error
	if prev != nil {
		if entry.PreviousState, err = sonic.Marshal(prev); err != nil {
			return fmt.Errorf("marshal previous state: %w", err)
		}
	}
	if next != nil {
		if entry.NewState, err = sonic.Marshal(next); err != nil {
			return fmt.Errorf("marshal new state: %w", err)
		}
	}
	if details != nil {
		if entry.MatchDetails, err = sonic.Marshal(details); err != nil {
			return fmt.Errorf("marshal match details: %w", err)
		}
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed",
			"entityType", entityType,
			"entityId", entityID,
			"action", string(action),
			"error", err,
		)
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// History returns the audit trail for one entity, oldest first.
func (s *AuditService) History(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	ctx, span := startSpan(ctx, "AuditService.History")
	defer span.End()

	if entityType == "" || entityID == "" {
		return nil, fmt.Errorf("%w: entity type and id are required", ErrInvalidInput)
	}
	return s.repo.ListByEntity(ctx, entityType, entityID)
}
