package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconFixture struct {
	svc      *usecase.ReconciliationService
	games    *memory.GameRepository
	players  *memory.PlayerRepository
	mappings *memory.MappingRepository
	auditLog *memory.AuditRepository
}

func newReconFixture(t *testing.T) reconFixture {
	t.Helper()

	mappings := memory.NewMappingRepository()
	games := memory.NewGameRepository(mappings)
	players := memory.NewPlayerRepository(mappings)
	auditLog := memory.NewAuditRepository()
	logger := logging.NewNop()

	svc := usecase.NewReconciliationService(
		games,
		players,
		usecase.NewAuditService(auditLog, logger),
		usecase.ReconciliationConfig{},
		logger,
	)
	return reconFixture{svc: svc, games: games, players: players, mappings: mappings, auditLog: auditLog}
}

// seedDuplicateGames plants the duplicate the day-bucket constraint cannot
// stop: the same game recorded at 23:58 and 00:02 across midnight.
func seedDuplicateGames(t *testing.T, f reconFixture) (survivor, loser game.Game) {
	t.Helper()
	ctx := context.Background()

	survivor = game.Game{
		ID:          "game-early",
		Sport:       "basketball",
		ScheduledAt: time.Date(2026, 3, 14, 23, 58, 0, 0, time.UTC),
		HomeCode:    "LAL",
		AwayCode:    "BOS",
		StatsGameID: "g-1",
		CreatedAt:   time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC),
	}
	loser = game.Game{
		ID:          "game-late",
		Sport:       "basketball",
		ScheduledAt: time.Date(2026, 3, 15, 0, 2, 0, 0, time.UTC),
		HomeCode:    "LAL",
		AwayCode:    "BOS",
		OddsEventID: "evt-1",
		CreatedAt:   time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.games.Create(ctx, survivor))
	require.NoError(t, f.games.Create(ctx, loser))

	for _, m := range []mapping.Mapping{
		{Sport: "basketball", Kind: mapping.KindGame, Source: "stats_api", SourceID: "g-1", CanonicalID: survivor.ID, Status: mapping.StatusMatched},
		{Sport: "basketball", Kind: mapping.KindGame, Source: "odds_api", SourceID: "evt-1", CanonicalID: loser.ID, Status: mapping.StatusMatched},
	} {
		require.NoError(t, f.mappings.Upsert(ctx, m))
	}

	f.games.AddPredictionRef(survivor.ID, "pred-1")
	f.games.AddPredictionRef(loser.ID, "pred-2")
	f.games.AddPredictionRef(loser.ID, "pred-3")
	return survivor, loser
}

func TestReconciliationMergesCrossMidnightDuplicates(t *testing.T) {
	t.Parallel()

	f := newReconFixture(t)
	ctx := context.Background()
	survivor, loser := seedDuplicateGames(t, f)

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.GameGroups)
	assert.Equal(t, 1, report.GamesMerged)
	assert.Zero(t, report.Skipped)

	// Earliest created row survives, loser is gone.
	_, ok, err := f.games.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	merged, ok, err := f.games.GetByID(ctx, survivor.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "g-1", merged.StatsGameID)
	assert.Equal(t, "evt-1", merged.OddsEventID, "loser's per-source id carried over")

	// Every mapping points at the survivor.
	mappings, err := f.mappings.ListByCanonical(ctx, mapping.KindGame, survivor.ID)
	require.NoError(t, err)
	assert.Len(t, mappings, 2)

	// No prediction row was lost.
	refs := f.games.PredictionRefs(survivor.ID)
	assert.ElementsMatch(t, []string{"pred-1", "pred-2", "pred-3"}, refs)
	assert.Empty(t, f.games.PredictionRefs(loser.ID))

	// The merge is on the audit trail.
	entries, err := f.auditLog.ListByEntity(ctx, "game", survivor.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestReconciliationIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newReconFixture(t)
	ctx := context.Background()
	seedDuplicateGames(t, f)

	first, err := f.svc.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.GamesMerged)

	second, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.GameGroups)
	assert.Zero(t, second.GamesMerged)
	assert.Zero(t, second.PlayersMerged)
	assert.Zero(t, second.Skipped)
}

func TestReconciliationCleanStoreIsNoOp(t *testing.T) {
	t.Parallel()

	f := newReconFixture(t)
	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, usecase.ReconciliationReport{}, report)
}

func TestReconciliationSkipsMergeThatWouldOrphanReferences(t *testing.T) {
	t.Parallel()

	f := newReconFixture(t)
	ctx := context.Background()
	survivor, loser := seedDuplicateGames(t, f)

	// A reference the merge path cannot re-point pins the loser in
	// place; the sweep must skip it and leave both rows intact.
	f.games.AddExternalRef(loser.ID, "legacy-export-7")

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.GamesMerged)
	assert.Equal(t, 1, report.Skipped)

	_, ok, err := f.games.GetByID(ctx, survivor.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = f.games.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconciliationMergesPlayersMissingTeam(t *testing.T) {
	t.Parallel()

	f := newReconFixture(t)
	ctx := context.Background()

	keep := player.Player{
		ID:             "player-early",
		Sport:          "basketball",
		CanonicalName:  "Austin Reaves",
		NormalizedName: "austin reaves",
		TeamCode:       "LAL",
		StatsPlayerID:  "p-1",
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	dup := player.Player{
		ID:             "player-late",
		Sport:          "basketball",
		CanonicalName:  "Austin Reaves",
		NormalizedName: "austin reaves",
		TeamCode:       "",
		OddsPlayerID:   "o-1",
		CreatedAt:      time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC),
	}
	require.NoError(t, f.players.Create(ctx, keep))
	require.NoError(t, f.players.Create(ctx, dup))
	f.players.AddStatRef(dup.ID, "line-1")

	report, err := f.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PlayersMerged)

	merged, ok, err := f.players.GetByID(ctx, keep.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o-1", merged.OddsPlayerID)
	assert.ElementsMatch(t, []string{"line-1"}, f.players.StatRefs(keep.ID))
}
