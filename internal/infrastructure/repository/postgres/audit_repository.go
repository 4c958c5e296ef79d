package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const auditLogTable = "audit_log"

type auditTableModel struct {
	ID            int64          `db:"id"`
	EntityType    string         `db:"entity_type"`
	EntityID      string         `db:"entity_id"`
	Action        string         `db:"action"`
	PreviousState sql.NullString `db:"previous_state"`
	NewState      sql.NullString `db:"new_state"`
	MatchDetails  sql.NullString `db:"match_details"`
	Actor         string         `db:"actor"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (m auditTableModel) toDomain() audit.Entry {
	return audit.Entry{
		ID:            m.ID,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		Action:        audit.Action(m.Action),
		PreviousState: nullStringToBytes(m.PreviousState),
		NewState:      nullStringToBytes(m.NewState),
		MatchDetails:  nullStringToBytes(m.MatchDetails),
		Actor:         m.Actor,
		CreatedAt:     m.CreatedAt,
	}
}

// AuditRepository is an append-only log. There is no update or delete path.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, e audit.Entry) error {
	query, args, err := qb.InsertInto(auditLogTable).
		Columns("entity_type", "entity_id", "action", "previous_state", "new_state", "match_details", "actor", "created_at").
		Values(
			e.EntityType,
			e.EntityID,
			string(e.Action),
			bytesToNullString(e.PreviousState),
			bytesToNullString(e.NewState),
			bytesToNullString(e.MatchDetails),
			e.Actor,
			e.CreatedAt.UTC(),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert audit entry query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry for %s %s: %w", e.EntityType, e.EntityID, err)
	}
	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]audit.Entry, error) {
	query, args, err := qb.Select("*").From(auditLogTable).
		Where(
			qb.Eq("entity_type", entityType),
			qb.Eq("entity_id", entityID),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select audit entries query: %w", err)
	}

	var rows []auditTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select audit entries for %s %s: %w", entityType, entityID, err)
	}

	out := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func bytesToNullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullStringToBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
