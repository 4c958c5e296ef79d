package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const gamesTable = "canonical_games"

// GameRepository stores canonical games. Uniqueness of the natural key and
// of non-empty per-source ids is enforced by partial unique indexes; a
// violation surfaces as game.ErrDuplicate so the resolver can re-fetch the
// winning row.
type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

func (r *GameRepository) GetByID(ctx context.Context, id string) (game.Game, bool, error) {
	query, args, err := qb.Select("*").From(gamesTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return game.Game{}, false, fmt.Errorf("build select game query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, false, nil
		}
		return game.Game{}, false, fmt.Errorf("select game %s: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *GameRepository) FindByNaturalKey(ctx context.Context, sport, homeCode, awayCode string, from, to time.Time) ([]game.Game, error) {
	query, args, err := qb.Select("*").From(gamesTable).
		Where(
			qb.Eq("sport", sport),
			qb.Eq("home_code", homeCode),
			qb.Eq("away_code", awayCode),
			qb.Expr("scheduled_at BETWEEN ? AND ?", from.UTC(), to.UTC()),
		).
		OrderBy("scheduled_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select games by natural key query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select games by natural key: %w", err)
	}
	return gameRowsToDomain(rows), nil
}

func (r *GameRepository) ListByDay(ctx context.Context, sport string, t time.Time) ([]game.Game, error) {
	day := t.UTC().Truncate(24 * time.Hour)
	query, args, err := qb.Select("*").From(gamesTable).
		Where(
			qb.Eq("sport", sport),
			qb.Expr("scheduled_at >= ? AND scheduled_at < ?", day, day.Add(24*time.Hour)),
		).
		OrderBy("scheduled_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select games by day query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select games by day: %w", err)
	}
	return gameRowsToDomain(rows), nil
}

func (r *GameRepository) Create(ctx context.Context, g game.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel(gamesTable, newGameTableModel(g), "")
	if err != nil {
		return fmt.Errorf("build insert game query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: game %s", game.ErrDuplicate, g.ID)
		}
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

func (r *GameRepository) SetSourceID(ctx context.Context, id, source, sourceID string) error {
	column, err := gameSourceColumn(source)
	if err != nil {
		return err
	}

	query, args, err := qb.Update(gamesTable).
		Set(column, sourceID).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update game source id query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s id %s owned by another game", game.ErrDuplicate, source, sourceID)
		}
		return fmt.Errorf("update game %s source id: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game %s source id rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("game %s not found", id)
	}
	return nil
}

// FindDuplicateGroups loads every natural-key pair that occurs more than
// once, then chains rows whose scheduled times sit within window of their
// neighbor. Per-source id duplicates cannot exist here, the partial unique
// indexes reject them at insert.
func (r *GameRepository) FindDuplicateGroups(ctx context.Context, window time.Duration) ([][]game.Game, error) {
	query, args, err := qb.Select("*").From(gamesTable).
		Where(qb.Expr("(sport, home_code, away_code) IN (SELECT sport, home_code, away_code FROM " + gamesTable + " GROUP BY sport, home_code, away_code HAVING COUNT(*) > 1)")).
		OrderBy("sport", "home_code", "away_code", "scheduled_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select duplicate games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select duplicate games: %w", err)
	}

	byPair := make(map[string][]game.Game)
	var order []string
	for _, row := range rows {
		key := row.Sport + "|" + row.HomeCode + "|" + row.AwayCode
		if _, seen := byPair[key]; !seen {
			order = append(order, key)
		}
		byPair[key] = append(byPair[key], row.toDomain())
	}

	var groups [][]game.Game
	for _, key := range order {
		games := byPair[key]
		start := 0
		for i := 1; i <= len(games); i++ {
			if i < len(games) && games[i].ScheduledAt.Sub(games[i-1].ScheduledAt) <= window {
				continue
			}
			if i-start > 1 {
				group := append([]game.Game(nil), games[start:i]...)
				sort.Slice(group, func(a, b int) bool {
					if !group[a].CreatedAt.Equal(group[b].CreatedAt) {
						return group[a].CreatedAt.Before(group[b].CreatedAt)
					}
					return group[a].ID < group[b].ID
				})
				groups = append(groups, group)
			}
			start = i
		}
	}
	return groups, nil
}

// Merge runs in one transaction: re-point mappings and predictions from the
// loser to the survivor, carry missing per-source ids over, delete the
// loser. A foreign key still referencing the loser aborts the whole merge
// with game.ErrMergeIntegrity.
func (r *GameRepository) Merge(ctx context.Context, survivorID, loserID string) (game.MergeStats, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("begin game merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	survivor, err := lockGame(ctx, tx, survivorID)
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("survivor game %s: %w", survivorID, err)
	}
	loser, err := lockGame(ctx, tx, loserID)
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("loser game %s: %w", loserID, err)
	}

	var stats game.MergeStats
	stats.MappingsRepointed, err = repointMappings(ctx, tx, mapping.KindGame, loserID, survivorID)
	if err != nil {
		return game.MergeStats{}, err
	}

	stats.PredictionsRepointed, err = execCount(ctx, tx, qb.Update("predictions").
		Set("game_id", survivorID).
		Where(qb.Eq("game_id", loserID)))
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("repoint predictions from game %s: %w", loserID, err)
	}

	update := qb.Update(gamesTable).Set("updated_at", time.Now().UTC())
	if survivor.StatsGameID == "" && loser.StatsGameID != "" {
		update.Set("stats_game_id", loser.StatsGameID)
	}
	if survivor.OddsEventID == "" && loser.OddsEventID != "" {
		update.Set("odds_event_id", loser.OddsEventID)
	}
	if survivor.NewsGameKey == "" && loser.NewsGameKey != "" {
		update.Set("news_game_key", loser.NewsGameKey)
	}
	query, args, err := update.Where(qb.Eq("id", survivorID)).ToSQL()
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("build update merge survivor query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return game.MergeStats{}, fmt.Errorf("update merge survivor %s: %w", survivorID, err)
	}

	query, args, err = qb.DeleteFrom(gamesTable).Where(qb.Eq("id", loserID)).ToSQL()
	if err != nil {
		return game.MergeStats{}, fmt.Errorf("build delete merge loser query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return game.MergeStats{}, fmt.Errorf("%w: game %s is still referenced", game.ErrMergeIntegrity, loserID)
		}
		return game.MergeStats{}, fmt.Errorf("delete merge loser %s: %w", loserID, err)
	}

	if err := tx.Commit(); err != nil {
		return game.MergeStats{}, fmt.Errorf("commit game merge: %w", err)
	}
	return stats, nil
}

func lockGame(ctx context.Context, tx *sqlx.Tx, id string) (game.Game, error) {
	query, args, err := qb.Select("*").From(gamesTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return game.Game{}, fmt.Errorf("build lock game query: %w", err)
	}

	var row gameTableModel
	if err := tx.GetContext(ctx, &row, query+" FOR UPDATE", args...); err != nil {
		if isNotFound(err) {
			return game.Game{}, fmt.Errorf("not found")
		}
		return game.Game{}, err
	}
	return row.toDomain(), nil
}

func gameSourceColumn(source string) (string, error) {
	switch source {
	case game.SourceStats:
		return "stats_game_id", nil
	case game.SourceOdds:
		return "odds_event_id", nil
	case game.SourceNews:
		return "news_game_key", nil
	default:
		return "", fmt.Errorf("unknown source %q", source)
	}
}

func gameRowsToDomain(rows []gameTableModel) []game.Game {
	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func repointMappings(ctx context.Context, tx *sqlx.Tx, kind mapping.Kind, fromID, toID string) (int, error) {
	count, err := execCount(ctx, tx, qb.Update(mappingsTable).
		Set("canonical_id", toID).
		Set("updated_at", time.Now().UTC()).
		Where(
			qb.Eq("kind", string(kind)),
			qb.Eq("canonical_id", fromID),
		))
	if err != nil {
		return 0, fmt.Errorf("repoint %s mappings from %s: %w", kind, fromID, err)
	}
	return count, nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, builder *qb.UpdateBuilder) (int, error) {
	query, args, err := builder.ToSQL()
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
