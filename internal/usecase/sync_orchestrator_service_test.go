package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	source   string
	records  []sourcerecord.Record
	err      error
	failures int
	calls    int
}

func (a *fakeAdapter) Source() string { return a.source }

func (a *fakeAdapter) Fetch(_ context.Context, _, _ string) ([]sourcerecord.Record, error) {
	a.calls++
	if a.failures > 0 {
		a.failures--
		return nil, fmt.Errorf("%w: connection reset", usecase.ErrTransient)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

type orchestratorFixture struct {
	svc   *usecase.SyncOrchestratorService
	jobs  *memory.SyncJobRepository
	games gameFixture
}

func newOrchestratorFixture(t *testing.T, adapters ...usecase.SourceAdapter) orchestratorFixture {
	t.Helper()

	gf := newGameFixture(t, usecase.GameMatchConfig{})
	pf := newPlayerFixture(t)
	jobs := memory.NewSyncJobRepository()

	svc := usecase.NewSyncOrchestratorService(
		adapters,
		jobs,
		gf.svc,
		pf.svc,
		usecase.OrchestratorConfig{RetryBackoff: time.Millisecond},
		logging.NewNop(),
	)
	return orchestratorFixture{svc: svc, jobs: jobs, games: gf}
}

func TestRunJobProcessesGamesAndFinishesIdle(t *testing.T) {
	t.Parallel()

	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		source: "stats_api",
		records: []sourcerecord.Record{
			gameRecord("stats_api", "g-1", "LAL", "BOS", tip),
			gameRecord("stats_api", "g-2", "NYK", "DAL", tip),
		},
	}
	f := newOrchestratorFixture(t, adapter)
	ctx := context.Background()

	report, err := f.svc.RunJob(ctx, "stats_api", "basketball", "games")
	require.NoError(t, err)
	assert.Equal(t, syncjob.StateIdle, report.State)
	assert.Equal(t, 2, report.Counts.Processed)
	assert.Equal(t, 2, report.Counts.Created)
	assert.Zero(t, report.Counts.Failed)

	job, found, err := f.jobs.Get(ctx, "stats_api", "games")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, syncjob.StateIdle, job.State)
	require.NotNil(t, job.FinishedAt)
}

func TestRunJobPartialOnBadRecord(t *testing.T) {
	t.Parallel()

	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	bad := gameRecord("stats_api", "g-bad", "LAL", "BOS", tip)
	bad.Game.ScheduledAt = time.Time{}
	adapter := &fakeAdapter{
		source: "stats_api",
		records: []sourcerecord.Record{
			gameRecord("stats_api", "g-1", "LAL", "BOS", tip),
			bad,
		},
	}
	f := newOrchestratorFixture(t, adapter)

	report, err := f.svc.RunJob(context.Background(), "stats_api", "basketball", "games")
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatePartial, report.State)
	assert.Equal(t, 1, report.Counts.Created)
	assert.Equal(t, 1, report.Counts.Failed)
}

func TestRunJobRetriesTransientFetchFailures(t *testing.T) {
	t.Parallel()

	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		source:   "stats_api",
		failures: 2,
		records:  []sourcerecord.Record{gameRecord("stats_api", "g-1", "LAL", "BOS", tip)},
	}
	f := newOrchestratorFixture(t, adapter)

	report, err := f.svc.RunJob(context.Background(), "stats_api", "basketball", "games")
	require.NoError(t, err)
	assert.Equal(t, syncjob.StateIdle, report.State)
	assert.Equal(t, 3, adapter.calls)
}

func TestRunJobFailsAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	adapter := &fakeAdapter{source: "stats_api", failures: 10}
	f := newOrchestratorFixture(t, adapter)
	ctx := context.Background()

	_, err := f.svc.RunJob(ctx, "stats_api", "basketball", "games")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)

	job, found, jerr := f.jobs.Get(ctx, "stats_api", "games")
	require.NoError(t, jerr)
	require.True(t, found)
	assert.Equal(t, syncjob.StateFailed, job.State)
	assert.NotEmpty(t, job.LastError)

	// A failed source stays runnable: the next trigger starts a fresh
	// run and recovers once the upstream does.
	adapter.failures = 0
	adapter.records = []sourcerecord.Record{
		gameRecord("stats_api", "g-1", "LAL", "BOS", time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)),
	}
	report, err := f.svc.RunJob(ctx, "stats_api", "basketball", "games")
	require.NoError(t, err)
	assert.Equal(t, syncjob.StateIdle, report.State)
}

func TestRunJobFailureIsolatedPerSource(t *testing.T) {
	t.Parallel()

	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	broken := &fakeAdapter{source: "odds_api", err: fmt.Errorf("upstream decommissioned")}
	healthy := &fakeAdapter{
		source:  "stats_api",
		records: []sourcerecord.Record{gameRecord("stats_api", "g-1", "LAL", "BOS", tip)},
	}
	f := newOrchestratorFixture(t, broken, healthy)
	ctx := context.Background()

	_, err := f.svc.RunJob(ctx, "odds_api", "basketball", "games")
	require.Error(t, err)

	report, err := f.svc.RunJob(ctx, "stats_api", "basketball", "games")
	require.NoError(t, err)
	assert.Equal(t, syncjob.StateIdle, report.State)
	assert.Equal(t, 1, report.Counts.Created)
}

func TestRunJobUnknownSource(t *testing.T) {
	t.Parallel()

	f := newOrchestratorFixture(t)
	_, err := f.svc.RunJob(context.Background(), "nope", "basketball", "games")
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestResyncEntityReplaysStoredRecord(t *testing.T) {
	t.Parallel()

	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	adapter := &fakeAdapter{
		source:  "stats_api",
		records: []sourcerecord.Record{gameRecord("stats_api", "g-9", "LAL", "BOS", tip)},
	}
	f := newOrchestratorFixture(t, adapter)
	ctx := context.Background()

	_, err := f.svc.RunJob(ctx, "stats_api", "basketball", "games")
	require.NoError(t, err)

	dry, err := f.svc.ResyncEntity(ctx, usecase.ResyncInput{
		Sport:    "basketball",
		Kind:     sourcerecord.KindGame,
		Source:   "stats_api",
		SourceID: "g-9",
		DryRun:   true,
	})
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, "g-9", dry.Record.SourceID)

	replay, err := f.svc.ResyncEntity(ctx, usecase.ResyncInput{
		Sport:    "basketball",
		Kind:     sourcerecord.KindGame,
		Source:   "stats_api",
		SourceID: "g-9",
	})
	require.NoError(t, err)
	assert.Equal(t, mapping.StatusMatched, replay.Resolution.Status)
	assert.NotEmpty(t, replay.Resolution.CanonicalID)
}

func TestSyncStatusRollup(t *testing.T) {
	t.Parallel()

	jobs := memory.NewSyncJobRepository()
	ctx := context.Background()
	require.NoError(t, jobs.Upsert(ctx, syncjob.Job{Source: "stats_api", DataType: "games", State: syncjob.StateIdle}))
	require.NoError(t, jobs.Upsert(ctx, syncjob.Job{Source: "odds_api", DataType: "games", State: syncjob.StatePartial}))

	svc := usecase.NewSyncStatusService(jobs)
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.HealthDegraded, status.Health)
	assert.Len(t, status.Jobs, 2)

	require.NoError(t, jobs.Upsert(ctx, syncjob.Job{Source: "news_feed", DataType: "players", State: syncjob.StateFailed}))
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, usecase.HealthFailing, status.Health)
}
