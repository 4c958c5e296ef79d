package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const (
	playersTable       = "canonical_players"
	playerAliasesTable = "player_aliases"
)

// PlayerRepository stores canonical players and their name aliases.
type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (player.Player, bool, error) {
	query, args, err := qb.Select("*").From(playersTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player %s: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerRepository) FindByNormalizedName(ctx context.Context, sport, normalized, teamCode string) ([]player.Player, error) {
	conditions := []qb.Condition{
		qb.Eq("sport", sport),
		qb.Eq("normalized_name", normalized),
	}
	if teamCode != "" {
		conditions = append(conditions, qb.Eq("team_code", teamCode))
	}

	query, args, err := qb.Select("*").From(playersTable).
		Where(conditions...).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by name query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by name: %w", err)
	}
	return playerRowsToDomain(rows), nil
}

func (r *PlayerRepository) ListByTeam(ctx context.Context, sport, teamCode string) ([]player.Player, error) {
	query, args, err := qb.Select("*").From(playersTable).
		Where(
			qb.Eq("sport", sport),
			qb.Eq("team_code", teamCode),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by team query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by team: %w", err)
	}
	return playerRowsToDomain(rows), nil
}

func (r *PlayerRepository) Create(ctx context.Context, p player.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertModel(playersTable, newPlayerTableModel(p), "")
	if err != nil {
		return fmt.Errorf("build insert player query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: player %s", player.ErrDuplicate, p.ID)
		}
		return fmt.Errorf("insert player %s: %w", p.ID, err)
	}
	return nil
}

func (r *PlayerRepository) SetSourceID(ctx context.Context, id, source, sourceID string) error {
	column, err := playerSourceColumn(source)
	if err != nil {
		return err
	}

	query, args, err := qb.Update(playersTable).
		Set(column, sourceID).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player source id query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s id %s owned by another player", player.ErrDuplicate, source, sourceID)
		}
		return fmt.Errorf("update player %s source id: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update player %s source id rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("player %s not found", id)
	}
	return nil
}

func (r *PlayerRepository) AddAlias(ctx context.Context, a player.Alias) error {
	if err := a.Validate(); err != nil {
		return err
	}

	// A (normalized_name, source) pair binds to one player; the first
	// binding stands and later inserts are no-ops.
	query, args, err := qb.InsertModel(playerAliasesTable, newPlayerAliasTableModel(a),
		"ON CONFLICT (normalized_name, source) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert alias query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("player %s not found", a.PlayerID)
		}
		return fmt.Errorf("insert alias for player %s: %w", a.PlayerID, err)
	}
	return nil
}

func (r *PlayerRepository) FindAlias(ctx context.Context, sport, normalized, source string) (player.Player, player.Alias, bool, error) {
	conditions := []qb.Condition{
		qb.Eq("p.sport", sport),
		qb.Eq("a.normalized_name", normalized),
	}
	if source != "" {
		conditions = append(conditions, qb.Eq("a.source", source))
	}

	query, args, err := qb.Select(
		"a.player_id", "a.name", "a.normalized_name", "a.source",
		"a.confidence", "a.verified", "a.created_at",
	).From(playerAliasesTable+" a JOIN "+playersTable+" p ON p.id = a.player_id").
		Where(conditions...).
		OrderBy("a.created_at", "a.player_id").
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, player.Alias{}, false, fmt.Errorf("build select alias query: %w", err)
	}

	var row playerAliasTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, player.Alias{}, false, nil
		}
		return player.Player{}, player.Alias{}, false, fmt.Errorf("select alias %s: %w", normalized, err)
	}

	p, ok, err := r.GetByID(ctx, row.PlayerID)
	if err != nil {
		return player.Player{}, player.Alias{}, false, err
	}
	if !ok {
		return player.Player{}, player.Alias{}, false, nil
	}
	return p, row.toDomain(), true, nil
}

func (r *PlayerRepository) ListAliases(ctx context.Context, playerID string) ([]player.Alias, error) {
	query, args, err := qb.Select("*").From(playerAliasesTable).
		Where(qb.Eq("player_id", playerID)).
		OrderBy("created_at", "normalized_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select aliases query: %w", err)
	}

	var rows []playerAliasTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select aliases for player %s: %w", playerID, err)
	}

	out := make([]player.Alias, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// FindDuplicateGroups loads every (sport, normalized name, suffix) key that
// occurs more than once. Rows on two different teams are different people
// and are skipped; the remaining leak is one row with a team plus one
// without. A positive window further restricts groups to rows created close
// together.
func (r *PlayerRepository) FindDuplicateGroups(ctx context.Context, window time.Duration) ([][]player.Player, error) {
	query, args, err := qb.Select("*").From(playersTable).
		Where(qb.Expr("(sport, normalized_name, suffix) IN (SELECT sport, normalized_name, suffix FROM " + playersTable + " GROUP BY sport, normalized_name, suffix HAVING COUNT(*) > 1)")).
		OrderBy("sport", "normalized_name", "suffix", "created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select duplicate players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select duplicate players: %w", err)
	}

	byKey := make(map[string][]player.Player)
	var order []string
	for _, row := range rows {
		key := row.Sport + "|" + row.NormalizedName + "|" + row.Suffix
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], row.toDomain())
	}

	var groups [][]player.Player
	for _, key := range order {
		players := byKey[key]
		if len(players) < 2 {
			continue
		}
		teams := make(map[string]bool)
		for _, p := range players {
			if p.TeamCode != "" {
				teams[p.TeamCode] = true
			}
		}
		if len(teams) > 1 {
			continue
		}
		sort.Slice(players, func(i, j int) bool {
			if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
				return players[i].CreatedAt.Before(players[j].CreatedAt)
			}
			return players[i].ID < players[j].ID
		})
		if window > 0 && players[len(players)-1].CreatedAt.Sub(players[0].CreatedAt) > window {
			continue
		}
		groups = append(groups, append([]player.Player(nil), players...))
	}
	return groups, nil
}

// Merge runs in one transaction: re-point mappings, aliases and stat rows
// from the loser to the survivor, carry missing per-source ids over, delete
// the loser.
func (r *PlayerRepository) Merge(ctx context.Context, survivorID, loserID string) (player.MergeStats, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("begin player merge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	survivor, err := lockPlayer(ctx, tx, survivorID)
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("survivor player %s: %w", survivorID, err)
	}
	loser, err := lockPlayer(ctx, tx, loserID)
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("loser player %s: %w", loserID, err)
	}

	var stats player.MergeStats
	stats.MappingsRepointed, err = repointMappings(ctx, tx, mapping.KindPlayer, loserID, survivorID)
	if err != nil {
		return player.MergeStats{}, err
	}

	// The alias key is (normalized_name, source), so moving the loser's
	// rows to the survivor cannot collide with rows it already holds.
	stats.AliasesRepointed, err = execCount(ctx, tx, qb.Update(playerAliasesTable).
		Set("player_id", survivorID).
		Where(qb.Eq("player_id", loserID)))
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("repoint aliases from player %s: %w", loserID, err)
	}

	stats.StatsRepointed, err = execCount(ctx, tx, qb.Update("player_stats").
		Set("player_id", survivorID).
		Where(qb.Eq("player_id", loserID)))
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("repoint stats from player %s: %w", loserID, err)
	}

	update := qb.Update(playersTable).Set("updated_at", time.Now().UTC())
	if survivor.StatsPlayerID == "" && loser.StatsPlayerID != "" {
		update.Set("stats_player_id", loser.StatsPlayerID)
	}
	if survivor.OddsPlayerID == "" && loser.OddsPlayerID != "" {
		update.Set("odds_player_id", loser.OddsPlayerID)
	}
	if survivor.NewsPlayerKey == "" && loser.NewsPlayerKey != "" {
		update.Set("news_player_key", loser.NewsPlayerKey)
	}
	query, args, err := update.Where(qb.Eq("id", survivorID)).ToSQL()
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("build update merge survivor query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return player.MergeStats{}, fmt.Errorf("update merge survivor %s: %w", survivorID, err)
	}

	query, args, err = qb.DeleteFrom(playersTable).Where(qb.Eq("id", loserID)).ToSQL()
	if err != nil {
		return player.MergeStats{}, fmt.Errorf("build delete merge loser query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return player.MergeStats{}, fmt.Errorf("%w: player %s is still referenced", player.ErrMergeIntegrity, loserID)
		}
		return player.MergeStats{}, fmt.Errorf("delete merge loser %s: %w", loserID, err)
	}

	if err := tx.Commit(); err != nil {
		return player.MergeStats{}, fmt.Errorf("commit player merge: %w", err)
	}
	return stats, nil
}

func lockPlayer(ctx context.Context, tx *sqlx.Tx, id string) (player.Player, error) {
	query, args, err := qb.Select("*").From(playersTable).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return player.Player{}, fmt.Errorf("build lock player query: %w", err)
	}

	var row playerTableModel
	if err := tx.GetContext(ctx, &row, query+" FOR UPDATE", args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, fmt.Errorf("not found")
		}
		return player.Player{}, err
	}
	return row.toDomain(), nil
}

func playerSourceColumn(source string) (string, error) {
	switch source {
	case sourcerecord.SourceStats:
		return "stats_player_id", nil
	case sourcerecord.SourceOdds:
		return "odds_player_id", nil
	case sourcerecord.SourceNews:
		return "news_player_key", nil
	default:
		return "", fmt.Errorf("unknown source %q", source)
	}
}

func playerRowsToDomain(rows []playerTableModel) []player.Player {
	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
