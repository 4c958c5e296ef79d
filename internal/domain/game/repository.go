package game

import (
	"context"
	"time"
)

// Repository stores canonical games.
//
// Create must fail with ErrDuplicate when the natural key
// (sport, home, away, date bucket) or any non-empty per-source id already
// exists. Merge must fail with an error the caller can detect as an
// integrity violation when deleting the loser would orphan a reference.
type Repository interface {
	GetByID(ctx context.Context, id string) (Game, bool, error)

	// FindByNaturalKey returns games for the team pair whose scheduled
	// time falls inside [from, to].
	FindByNaturalKey(ctx context.Context, sport, homeCode, awayCode string, from, to time.Time) ([]Game, error)

	// ListByDay returns all games of the sport scheduled on the UTC day
	// containing t.
	ListByDay(ctx context.Context, sport string, t time.Time) ([]Game, error)

	Create(ctx context.Context, g Game) error

	// SetSourceID fills a per-source id on an existing game. It is a
	// no-op when the stored value already equals sourceID and must fail
	// with ErrDuplicate when another game owns that id.
	SetSourceID(ctx context.Context, id, source, sourceID string) error

	// FindDuplicateGroups returns groups of two or more games that share
	// a natural key within window or share a per-source id. Each group is
	// ordered by CreatedAt ascending, then by ID.
	FindDuplicateGroups(ctx context.Context, window time.Duration) ([][]Game, error)

	// Merge re-points every mapping and prediction row from loserID to
	// survivorID, copies missing per-source ids onto the survivor, then
	// deletes the loser. The whole operation is atomic.
	Merge(ctx context.Context, survivorID, loserID string) (MergeStats, error)
}
