package postgres

import (
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/player"
)

type playerTableModel struct {
	ID             string    `db:"id"`
	Sport          string    `db:"sport"`
	CanonicalName  string    `db:"canonical_name"`
	NormalizedName string    `db:"normalized_name"`
	Suffix         string    `db:"suffix"`
	TeamCode       string    `db:"team_code"`
	Position       string    `db:"position"`
	StatsPlayerID  string    `db:"stats_player_id"`
	OddsPlayerID   string    `db:"odds_player_id"`
	NewsPlayerKey  string    `db:"news_player_key"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func newPlayerTableModel(p player.Player) playerTableModel {
	return playerTableModel{
		ID:             p.ID,
		Sport:          p.Sport,
		CanonicalName:  p.CanonicalName,
		NormalizedName: p.NormalizedName,
		Suffix:         p.Suffix,
		TeamCode:       p.TeamCode,
		Position:       p.Position,
		StatsPlayerID:  p.StatsPlayerID,
		OddsPlayerID:   p.OddsPlayerID,
		NewsPlayerKey:  p.NewsPlayerKey,
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
}

func (m playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:             m.ID,
		Sport:          m.Sport,
		CanonicalName:  m.CanonicalName,
		NormalizedName: m.NormalizedName,
		Suffix:         m.Suffix,
		TeamCode:       m.TeamCode,
		Position:       m.Position,
		StatsPlayerID:  m.StatsPlayerID,
		OddsPlayerID:   m.OddsPlayerID,
		NewsPlayerKey:  m.NewsPlayerKey,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type playerAliasTableModel struct {
	PlayerID       string    `db:"player_id"`
	Name           string    `db:"name"`
	NormalizedName string    `db:"normalized_name"`
	Source         string    `db:"source"`
	Confidence     float64   `db:"confidence"`
	Verified       bool      `db:"verified"`
	CreatedAt      time.Time `db:"created_at"`
}

func newPlayerAliasTableModel(a player.Alias) playerAliasTableModel {
	return playerAliasTableModel{
		PlayerID:       a.PlayerID,
		Name:           a.Name,
		NormalizedName: a.NormalizedName,
		Source:         a.Source,
		Confidence:     a.Confidence,
		Verified:       a.Verified,
		CreatedAt:      a.CreatedAt.UTC(),
	}
}

func (m playerAliasTableModel) toDomain() player.Alias {
	return player.Alias{
		PlayerID:       m.PlayerID,
		Name:           m.Name,
		NormalizedName: m.NormalizedName,
		Source:         m.Source,
		Confidence:     m.Confidence,
		Verified:       m.Verified,
		CreatedAt:      m.CreatedAt,
	}
}
