package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const teamRegistryTable = "team_registry"

type teamRegistryTableModel struct {
	Sport     string `db:"sport"`
	Source    string `db:"source"`
	SourceKey string `db:"source_key"`
	TeamCode  string `db:"team_code"`
	TeamName  string `db:"team_name"`
}

// TeamRegistryRepository reads the seeded source-key to team-code table.
// Rows are loaded once at startup into a teamregistry.Registry.
type TeamRegistryRepository struct {
	db *sqlx.DB
}

func NewTeamRegistryRepository(db *sqlx.DB) *TeamRegistryRepository {
	return &TeamRegistryRepository{db: db}
}

func (r *TeamRegistryRepository) List(ctx context.Context) ([]teamregistry.Entry, error) {
	query, args, err := qb.Select("*").From(teamRegistryTable).
		OrderBy("sport", "source", "source_key").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select team registry query: %w", err)
	}

	var rows []teamRegistryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select team registry: %w", err)
	}

	out := make([]teamregistry.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamregistry.Entry{
			Sport:     row.Sport,
			Source:    row.Source,
			SourceKey: row.SourceKey,
			TeamCode:  row.TeamCode,
			TeamName:  row.TeamName,
		})
	}
	return out, nil
}
