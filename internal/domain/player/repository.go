package player

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Player, bool, error)

	// FindByNormalizedName does an exact lookup on the normalized name.
	// teamCode narrows the search when non-empty.
	FindByNormalizedName(ctx context.Context, sport, normalized, teamCode string) ([]Player, error)

	ListByTeam(ctx context.Context, sport, teamCode string) ([]Player, error)

	Create(ctx context.Context, p Player) error

	// SetSourceID fills a per-source id. Same contract as the game
	// repository: idempotent, ErrDuplicate when another player owns it.
	SetSourceID(ctx context.Context, id, source, sourceID string) error

	// AddAlias records a name variant. A (normalized name, source) pair
	// binds to at most one player; when the pair is already recorded,
	// for this player or another, the insert is a no-op and the first
	// binding stands.
	AddAlias(ctx context.Context, a Alias) error

	// FindAlias resolves a (normalized name, source) pair to its player
	// through the alias table. Source "" matches aliases from any feed.
	FindAlias(ctx context.Context, sport, normalized, source string) (Player, Alias, bool, error)

	ListAliases(ctx context.Context, playerID string) ([]Alias, error)

	// FindDuplicateGroups returns groups of players sharing a per-source
	// id or sharing (normalized name, team). Ordered by CreatedAt
	// ascending, then ID. window bounds how far apart CreatedAt may be
	// for the name-based grouping; source-id duplicates always group.
	FindDuplicateGroups(ctx context.Context, window time.Duration) ([][]Player, error)

	Merge(ctx context.Context, survivorID, loserID string) (MergeStats, error)
}
