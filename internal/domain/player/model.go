package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
)

var ErrDuplicate = errors.New("duplicate canonical player")

var ErrMergeIntegrity = errors.New("player merge would orphan references")

// Player is the authoritative record for one athlete.
type Player struct {
	ID             string
	Sport          string
	CanonicalName  string
	NormalizedName string
	Suffix         string
	TeamCode       string
	Position       string

	StatsPlayerID string
	OddsPlayerID  string
	NewsPlayerKey string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.Sport == "" {
		return fmt.Errorf("player sport is required")
	}
	if p.CanonicalName == "" || p.NormalizedName == "" {
		return fmt.Errorf("player name is required")
	}
	return nil
}

func (p Player) SourceID(source string) string {
	switch source {
	case sourcerecord.SourceStats:
		return p.StatsPlayerID
	case sourcerecord.SourceOdds:
		return p.OddsPlayerID
	case sourcerecord.SourceNews:
		return p.NewsPlayerKey
	}
	return ""
}

// Alias is a name variant observed for a player. Verified aliases come from
// a manual review approval, unverified ones from auto-accepted matches.
type Alias struct {
	PlayerID       string
	Name           string
	NormalizedName string
	Source         string
	Confidence     float64
	Verified       bool
	CreatedAt      time.Time
}

func (a Alias) Validate() error {
	if a.PlayerID == "" || a.NormalizedName == "" {
		return fmt.Errorf("alias player id and normalized name are required")
	}
	return nil
}

type MergeStats struct {
	MappingsRepointed int
	AliasesRepointed  int
	StatsRepointed    int
}
