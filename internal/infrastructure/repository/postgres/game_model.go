package postgres

import (
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/game"
)

type gameTableModel struct {
	ID          string    `db:"id"`
	Sport       string    `db:"sport"`
	ScheduledAt time.Time `db:"scheduled_at"`
	HomeCode    string    `db:"home_code"`
	AwayCode    string    `db:"away_code"`
	Status      string    `db:"status"`
	StatsGameID string    `db:"stats_game_id"`
	OddsEventID string    `db:"odds_event_id"`
	NewsGameKey string    `db:"news_game_key"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func newGameTableModel(g game.Game) gameTableModel {
	return gameTableModel{
		ID:          g.ID,
		Sport:       g.Sport,
		ScheduledAt: g.ScheduledAt.UTC(),
		HomeCode:    g.HomeCode,
		AwayCode:    g.AwayCode,
		Status:      g.Status,
		StatsGameID: g.StatsGameID,
		OddsEventID: g.OddsEventID,
		NewsGameKey: g.NewsGameKey,
		CreatedAt:   g.CreatedAt.UTC(),
		UpdatedAt:   g.UpdatedAt.UTC(),
	}
}

func (m gameTableModel) toDomain() game.Game {
	return game.Game{
		ID:          m.ID,
		Sport:       m.Sport,
		ScheduledAt: m.ScheduledAt,
		HomeCode:    m.HomeCode,
		AwayCode:    m.AwayCode,
		Status:      m.Status,
		StatsGameID: m.StatsGameID,
		OddsEventID: m.OddsEventID,
		NewsGameKey: m.NewsGameKey,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
