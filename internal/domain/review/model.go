package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
)

// ErrNotPending is returned when a resolve races another reviewer: the item
// was already approved or rejected.
var ErrNotPending = errors.New("review item is not pending")

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Candidate is one possible canonical match shown to a reviewer, with the
// per-signal breakdown that produced its confidence.
type Candidate struct {
	CanonicalID string             `json:"canonicalId"`
	Name        string             `json:"name"`
	Confidence  float64            `json:"confidence"`
	Signals     map[string]float64 `json:"signals"`
}

// Item is one queued ambiguous match.
type Item struct {
	ID         string
	Sport      string
	Kind       sourcerecord.Kind
	Record     sourcerecord.Record
	Candidates []Candidate
	Status     Status
	ResolvedBy string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (i Item) Validate() error {
	if i.ID == "" || i.Sport == "" {
		return fmt.Errorf("review item id and sport are required")
	}
	if err := i.Record.Validate(); err != nil {
		return fmt.Errorf("review item record: %w", err)
	}
	return nil
}

// TopCandidate returns the highest-confidence candidate.
func (i Item) TopCandidate() (Candidate, bool) {
	if len(i.Candidates) == 0 {
		return Candidate{}, false
	}
	best := i.Candidates[0]
	for _, c := range i.Candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

type Repository interface {
	Create(ctx context.Context, item Item) error
	Get(ctx context.Context, id string) (Item, bool, error)
	ListPending(ctx context.Context, limit int) ([]Item, error)

	// Resolve flips the item from pending to status atomically. It
	// returns ErrNotPending when the item is no longer pending, so two
	// concurrent reviewers cannot both win.
	Resolve(ctx context.Context, id string, status Status, reviewer string, at time.Time) error

	// Reopen puts a resolved item back in the pending state. Callers use
	// it to undo a Resolve whose follow-up writes failed.
	Reopen(ctx context.Context, id string) error
}
