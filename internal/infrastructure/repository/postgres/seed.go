package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the team registry on an empty database. Re-running it
// against a seeded database is a no-op.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM team_registry`); err != nil {
		return fmt.Errorf("count team registry for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, e := range memory.SeedTeamRegistry() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO team_registry (sport, source, source_key, team_code, team_name)
VALUES (:sport, :source, :source_key, :team_code, :team_name)
ON CONFLICT (sport, source, source_key) DO NOTHING`, map[string]any{
			"sport":      e.Sport,
			"source":     e.Source,
			"source_key": e.SourceKey,
			"team_code":  e.TeamCode,
			"team_name":  e.TeamName,
		})
		if err != nil {
			return fmt.Errorf("bind seed registry entry %s/%s query: %w", e.Source, e.SourceKey, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed registry entry %s/%s: %w", e.Source, e.SourceKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
