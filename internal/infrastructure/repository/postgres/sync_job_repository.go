package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
	qb "github.com/riskibarqy/sportsync/internal/platform/querybuilder"
)

const syncJobsTable = "sync_jobs"

type syncJobTableModel struct {
	Source     string     `db:"source"`
	DataType   string     `db:"data_type"`
	State      string     `db:"state"`
	Processed  int        `db:"processed"`
	Matched    int        `db:"matched"`
	Created    int        `db:"created"`
	Queued     int        `db:"queued"`
	Failed     int        `db:"failed"`
	LastError  string     `db:"last_error"`
	StartedAt  *time.Time `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	DurationMs int64      `db:"duration_ms"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func newSyncJobTableModel(j syncjob.Job) syncJobTableModel {
	return syncJobTableModel{
		Source:     j.Source,
		DataType:   j.DataType,
		State:      string(j.State),
		Processed:  j.Counts.Processed,
		Matched:    j.Counts.Matched,
		Created:    j.Counts.Created,
		Queued:     j.Counts.Queued,
		Failed:     j.Counts.Failed,
		LastError:  j.LastError,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		DurationMs: j.DurationMs,
		UpdatedAt:  j.UpdatedAt.UTC(),
	}
}

func (m syncJobTableModel) toDomain() syncjob.Job {
	return syncjob.Job{
		Source:   m.Source,
		DataType: m.DataType,
		State:    syncjob.State(m.State),
		Counts: syncjob.Counts{
			Processed: m.Processed,
			Matched:   m.Matched,
			Created:   m.Created,
			Queued:    m.Queued,
			Failed:    m.Failed,
		},
		LastError:  m.LastError,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		DurationMs: m.DurationMs,
		UpdatedAt:  m.UpdatedAt,
	}
}

type SyncJobRepository struct {
	db *sqlx.DB
}

func NewSyncJobRepository(db *sqlx.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db}
}

func (r *SyncJobRepository) Get(ctx context.Context, source, dataType string) (syncjob.Job, bool, error) {
	query, args, err := qb.Select("*").From(syncJobsTable).
		Where(
			qb.Eq("source", source),
			qb.Eq("data_type", dataType),
		).
		ToSQL()
	if err != nil {
		return syncjob.Job{}, false, fmt.Errorf("build select sync job query: %w", err)
	}

	var row syncJobTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return syncjob.Job{}, false, nil
		}
		return syncjob.Job{}, false, fmt.Errorf("select sync job %s/%s: %w", source, dataType, err)
	}
	return row.toDomain(), true, nil
}

func (r *SyncJobRepository) Upsert(ctx context.Context, j syncjob.Job) error {
	query, args, err := qb.InsertModel(syncJobsTable, newSyncJobTableModel(j),
		`ON CONFLICT (source, data_type) DO UPDATE SET
			state = EXCLUDED.state,
			processed = EXCLUDED.processed,
			matched = EXCLUDED.matched,
			created = EXCLUDED.created,
			queued = EXCLUDED.queued,
			failed = EXCLUDED.failed,
			last_error = EXCLUDED.last_error,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			duration_ms = EXCLUDED.duration_ms,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert sync job query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert sync job %s/%s: %w", j.Source, j.DataType, err)
	}
	return nil
}

func (r *SyncJobRepository) List(ctx context.Context) ([]syncjob.Job, error) {
	query, args, err := qb.Select("*").From(syncJobsTable).
		OrderBy("source", "data_type").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select sync jobs query: %w", err)
	}

	var rows []syncJobTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select sync jobs: %w", err)
	}

	out := make([]syncjob.Job, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
