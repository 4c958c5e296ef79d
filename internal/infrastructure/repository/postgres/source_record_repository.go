package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const sourceRecordsTable = "source_records"

type sourceRecordTableModel struct {
	Source     string         `db:"source"`
	Sport      string         `db:"sport"`
	Kind       string         `db:"kind"`
	SourceID   string         `db:"source_id"`
	Fields     sql.NullString `db:"fields"`
	RawPayload sql.NullString `db:"raw_payload"`
	IngestedAt time.Time      `db:"ingested_at"`
}

func newSourceRecordTableModel(rec sourcerecord.Record) (sourceRecordTableModel, error) {
	model := sourceRecordTableModel{
		Source:     rec.Source,
		Sport:      rec.Sport,
		Kind:       string(rec.Kind),
		SourceID:   rec.SourceID,
		IngestedAt: rec.IngestedAt.UTC(),
	}

	var fields any
	switch rec.Kind {
	case sourcerecord.KindGame:
		fields = rec.Game
	case sourcerecord.KindPlayer:
		fields = rec.Player
	}
	encoded, err := sonic.Marshal(fields)
	if err != nil {
		return sourceRecordTableModel{}, fmt.Errorf("encode record fields: %w", err)
	}
	model.Fields = sql.NullString{String: string(encoded), Valid: true}
	if len(rec.RawPayload) > 0 {
		model.RawPayload = sql.NullString{String: string(rec.RawPayload), Valid: true}
	}
	return model, nil
}

func (m sourceRecordTableModel) toDomain() (sourcerecord.Record, error) {
	rec := sourcerecord.Record{
		Source:     m.Source,
		Sport:      m.Sport,
		Kind:       sourcerecord.Kind(m.Kind),
		SourceID:   m.SourceID,
		IngestedAt: m.IngestedAt,
	}
	if m.RawPayload.Valid {
		rec.RawPayload = []byte(m.RawPayload.String)
	}
	if !m.Fields.Valid {
		return rec, nil
	}

	switch rec.Kind {
	case sourcerecord.KindGame:
		var fields sourcerecord.GameFields
		if err := sonic.Unmarshal([]byte(m.Fields.String), &fields); err != nil {
			return sourcerecord.Record{}, fmt.Errorf("decode game fields: %w", err)
		}
		rec.Game = &fields
	case sourcerecord.KindPlayer:
		var fields sourcerecord.PlayerFields
		if err := sonic.Unmarshal([]byte(m.Fields.String), &fields); err != nil {
			return sourcerecord.Record{}, fmt.Errorf("decode player fields: %w", err)
		}
		rec.Player = &fields
	}
	return rec, nil
}

// SourceRecordRepository is the immutable capture of upstream payloads. The
// primary key makes re-ingesting the same payload a no-op.
type SourceRecordRepository struct {
	db *sqlx.DB
}

func NewSourceRecordRepository(db *sqlx.DB) *SourceRecordRepository {
	return &SourceRecordRepository{db: db}
}

func (r *SourceRecordRepository) Insert(ctx context.Context, rec sourcerecord.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	model, err := newSourceRecordTableModel(rec)
	if err != nil {
		return false, err
	}
	query, args, err := qb.InsertModel(sourceRecordsTable, model,
		"ON CONFLICT (source, sport, kind, source_id) DO NOTHING")
	if err != nil {
		return false, fmt.Errorf("build insert source record query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert source record %s/%s: %w", rec.Source, rec.SourceID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert source record rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *SourceRecordRepository) Get(ctx context.Context, source, sport string, kind sourcerecord.Kind, sourceID string) (sourcerecord.Record, bool, error) {
	query, args, err := qb.Select("*").From(sourceRecordsTable).
		Where(
			qb.Eq("source", source),
			qb.Eq("sport", sport),
			qb.Eq("kind", string(kind)),
			qb.Eq("source_id", sourceID),
		).
		ToSQL()
	if err != nil {
		return sourcerecord.Record{}, false, fmt.Errorf("build select source record query: %w", err)
	}

	var row sourceRecordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return sourcerecord.Record{}, false, nil
		}
		return sourcerecord.Record{}, false, fmt.Errorf("select source record %s/%s: %w", source, sourceID, err)
	}

	rec, err := row.toDomain()
	if err != nil {
		return sourcerecord.Record{}, false, err
	}
	return rec, true, nil
}
