package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const mappingsTable = "entity_mappings"

type mappingTableModel struct {
	Sport       string    `db:"sport"`
	Kind        string    `db:"kind"`
	Source      string    `db:"source"`
	SourceID    string    `db:"source_id"`
	CanonicalID string    `db:"canonical_id"`
	Confidence  float64   `db:"confidence"`
	Method      string    `db:"method"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (m mappingTableModel) toDomain() mapping.Mapping {
	return mapping.Mapping{
		Sport:       m.Sport,
		Kind:        mapping.Kind(m.Kind),
		Source:      m.Source,
		SourceID:    m.SourceID,
		CanonicalID: m.CanonicalID,
		Confidence:  m.Confidence,
		Method:      mapping.Method(m.Method),
		Status:      mapping.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type MappingRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Get(ctx context.Context, sport string, kind mapping.Kind, source, sourceID string) (mapping.Mapping, bool, error) {
	query, args, err := qb.Select("*").From(mappingsTable).
		Where(
			qb.Eq("sport", sport),
			qb.Eq("kind", string(kind)),
			qb.Eq("source", source),
			qb.Eq("source_id", sourceID),
		).
		ToSQL()
	if err != nil {
		return mapping.Mapping{}, false, fmt.Errorf("build select mapping query: %w", err)
	}

	var row mappingTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return mapping.Mapping{}, false, nil
		}
		return mapping.Mapping{}, false, fmt.Errorf("select mapping %s/%s: %w", source, sourceID, err)
	}
	return row.toDomain(), true, nil
}

// Upsert keeps the original created_at on conflict and overwrites the rest.
func (r *MappingRepository) Upsert(ctx context.Context, m mapping.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}

	model := mappingTableModel{
		Sport:       m.Sport,
		Kind:        string(m.Kind),
		Source:      m.Source,
		SourceID:    m.SourceID,
		CanonicalID: m.CanonicalID,
		Confidence:  m.Confidence,
		Method:      string(m.Method),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	query, args, err := qb.InsertModel(mappingsTable, model,
		`ON CONFLICT (sport, kind, source, source_id) DO UPDATE SET
			canonical_id = EXCLUDED.canonical_id,
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert mapping query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert mapping %s/%s: %w", m.Source, m.SourceID, err)
	}
	return nil
}

func (r *MappingRepository) ListByCanonical(ctx context.Context, kind mapping.Kind, canonicalID string) ([]mapping.Mapping, error) {
	query, args, err := qb.Select("*").From(mappingsTable).
		Where(
			qb.Eq("kind", string(kind)),
			qb.Eq("canonical_id", canonicalID),
		).
		OrderBy("source", "source_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select mappings by canonical query: %w", err)
	}

	var rows []mappingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select mappings for %s %s: %w", kind, canonicalID, err)
	}

	out := make([]mapping.Mapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
