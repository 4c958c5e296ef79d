package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
)

// ErrDuplicate is returned by repositories when an insert collides with the
// natural key or a per-source id unique constraint. Callers treat it as a
// signal to re-fetch the winning row, never as a failure.
var ErrDuplicate = errors.New("duplicate canonical game")

// ErrMergeIntegrity is returned when deleting a merge loser would orphan a
// row still referencing it.
var ErrMergeIntegrity = errors.New("game merge would orphan references")

// Game is the single authoritative record for one real-world game.
type Game struct {
	ID          string
	Sport       string
	ScheduledAt time.Time
	HomeCode    string
	AwayCode    string
	Status      string

	// Per-source external ids. Empty string means the source has not been
	// seen for this game yet.
	StatsGameID string
	OddsEventID string
	NewsGameKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.Sport == "" {
		return fmt.Errorf("game sport is required")
	}
	if g.HomeCode == "" || g.AwayCode == "" {
		return fmt.Errorf("game team codes are required")
	}
	if g.ScheduledAt.IsZero() {
		return fmt.Errorf("game scheduled time is required")
	}
	return nil
}

// SourceID returns the stored external id for a source, or "".
func (g Game) SourceID(source string) string {
	switch source {
	case SourceStats:
		return g.StatsGameID
	case SourceOdds:
		return g.OddsEventID
	case SourceNews:
		return g.NewsGameKey
	default:
		return ""
	}
}

// Source names shared with the player side, re-exported for call sites that
// already work in game terms.
const (
	SourceStats = sourcerecord.SourceStats
	SourceOdds  = sourcerecord.SourceOdds
	SourceNews  = sourcerecord.SourceNews
)

// MergeStats reports what a reconciliation merge re-pointed.
type MergeStats struct {
	MappingsRepointed    int
	PredictionsRepointed int
}
