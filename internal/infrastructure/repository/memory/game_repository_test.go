package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/require"
)

func TestGameSourceIDsScopedBySport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewGameRepository(memory.NewMappingRepository())
	tip := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

	nba := game.Game{ID: "g1", Sport: "basketball", ScheduledAt: tip, HomeCode: "LAL", AwayCode: "BOS", StatsGameID: "777"}
	require.NoError(t, repo.Create(ctx, nba))

	// Another sport may reuse the provider's id space.
	nhl := game.Game{ID: "g2", Sport: "hockey", ScheduledAt: tip, HomeCode: "LAK", AwayCode: "BOS", StatsGameID: "777"}
	require.NoError(t, repo.Create(ctx, nhl))

	clash := game.Game{ID: "g3", Sport: "basketball", ScheduledAt: tip.Add(48 * time.Hour), HomeCode: "GSW", AwayCode: "PHX", StatsGameID: "777"}
	err := repo.Create(ctx, clash)
	require.ErrorIs(t, err, game.ErrDuplicate)

	other := game.Game{ID: "g4", Sport: "hockey", ScheduledAt: tip.Add(48 * time.Hour), HomeCode: "NYR", AwayCode: "PIT"}
	require.NoError(t, repo.Create(ctx, other))
	err = repo.SetSourceID(ctx, "g4", "stats_api", "777")
	require.ErrorIs(t, err, game.ErrDuplicate)

	require.NoError(t, repo.SetSourceID(ctx, "g4", "odds_api", "E9"))
}
