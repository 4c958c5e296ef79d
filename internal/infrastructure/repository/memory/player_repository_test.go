package memory_test

import (
	"context"
	"testing"

	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasPairBindsToOnePlayer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository(memory.NewMappingRepository())

	first := player.Player{ID: "p1", Sport: "basketball", CanonicalName: "Jalen Smith", NormalizedName: "jalen smith", TeamCode: "PHX"}
	second := player.Player{ID: "p2", Sport: "basketball", CanonicalName: "Jaylen Smith", NormalizedName: "jaylen smith", TeamCode: "MIA"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	a := player.Alias{PlayerID: "p1", Name: "J. Smith", NormalizedName: "j smith", Source: "stats_api"}
	require.NoError(t, repo.AddAlias(ctx, a))

	// The same observed pair for another player is a no-op; the first
	// binding stands.
	b := a
	b.PlayerID = "p2"
	require.NoError(t, repo.AddAlias(ctx, b))

	got, _, found, err := repo.FindAlias(ctx, "basketball", "j smith", "stats_api")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "p1", got.ID)

	aliases, err := repo.ListAliases(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, aliases)

	// No other feed has recorded the spelling.
	_, _, found, err = repo.FindAlias(ctx, "basketball", "j smith", "odds_api")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPlayerSourceIDsScopedBySport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := memory.NewPlayerRepository(memory.NewMappingRepository())

	nba := player.Player{ID: "p1", Sport: "basketball", CanonicalName: "Alex Moore", NormalizedName: "alex moore", TeamCode: "BOS", StatsPlayerID: "42"}
	require.NoError(t, repo.Create(ctx, nba))

	// Another sport may reuse the provider's id space.
	nhl := player.Player{ID: "p2", Sport: "hockey", CanonicalName: "Alex Moore", NormalizedName: "alex moore", TeamCode: "BOS", StatsPlayerID: "42"}
	require.NoError(t, repo.Create(ctx, nhl))

	clash := player.Player{ID: "p3", Sport: "basketball", CanonicalName: "Sam Hart", NormalizedName: "sam hart", TeamCode: "DEN", StatsPlayerID: "42"}
	err := repo.Create(ctx, clash)
	require.ErrorIs(t, err, player.ErrDuplicate)

	other := player.Player{ID: "p4", Sport: "hockey", CanonicalName: "Sam Hart", NormalizedName: "sam hart", TeamCode: "DEN"}
	require.NoError(t, repo.Create(ctx, other))
	err = repo.SetSourceID(ctx, "p4", "stats_api", "42")
	require.ErrorIs(t, err, player.ErrDuplicate)

	// The basketball id does not block a cross-sport assignment of a
	// different source's id, and vice versa.
	require.NoError(t, repo.SetSourceID(ctx, "p4", "odds_api", "o-42"))
}
