package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsync/internal/matching"
	"github.com/riskibarqy/sportsync/internal/platform/id"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type playerFixture struct {
	svc      *usecase.PlayerResolverService
	players  *memory.PlayerRepository
	mappings *memory.MappingRepository
	reviews  *memory.ReviewRepository
	auditLog *memory.AuditRepository
}

func newPlayerFixture(t *testing.T) playerFixture {
	t.Helper()

	mappings := memory.NewMappingRepository()
	players := memory.NewPlayerRepository(mappings)
	reviews := memory.NewReviewRepository()
	auditLog := memory.NewAuditRepository()
	logger := logging.NewNop()

	svc := usecase.NewPlayerResolverService(
		players,
		mappings,
		memory.NewSourceRecordRepository(),
		reviews,
		testRegistry(),
		matching.NewScorer(matching.DefaultPlayerConfig()),
		usecase.NewAuditService(auditLog, logger),
		usecase.PlayerResolveConfig{},
		id.NewRandomGenerator(),
		logger,
	)
	return playerFixture{svc: svc, players: players, mappings: mappings, reviews: reviews, auditLog: auditLog}
}

func playerRecord(source, sourceID, name, teamKey, position string) sourcerecord.Record {
	return sourcerecord.Record{
		Source:   source,
		Sport:    "basketball",
		Kind:     sourcerecord.KindPlayer,
		SourceID: sourceID,
		Player: &sourcerecord.PlayerFields{
			Name:     name,
			TeamKey:  teamKey,
			Position: position,
		},
	}
}

func seedPlayer(t *testing.T, f playerFixture, name, teamCode, position string) player.Player {
	t.Helper()

	norm := matching.Normalize(name)
	p := player.Player{
		ID:             "seed-" + norm.Value + "-" + norm.Suffix,
		Sport:          "basketball",
		CanonicalName:  name,
		NormalizedName: norm.Value,
		Suffix:         norm.Suffix,
		TeamCode:       teamCode,
		Position:       position,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.players.Create(context.Background(), p))
	return p
}

func TestPlayerResolverCreatesThenResolvesByExactID(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()

	rec := playerRecord("stats_api", "p-23", "LeBron James", "LAL", "F")
	first, err := f.svc.Resolve(ctx, rec)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, mapping.StatusMatched, first.Status)

	second, err := f.svc.Resolve(ctx, rec)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.CanonicalID, second.CanonicalID)
	assert.Equal(t, mapping.MethodExactID, second.Method)
	assert.Equal(t, 1.0, second.Confidence)
}

func TestPlayerResolverExactNameAndTeam(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()
	seeded := seedPlayer(t, f, "Nikola Jokić", "DAL", "C")

	// A different source spells the name without the accent.
	res, err := f.svc.Resolve(ctx, playerRecord("odds_api", "o-15", "Nikola Jokic", "DAL", "C"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, seeded.ID, res.CanonicalID)
	assert.Equal(t, mapping.MethodNameTeam, res.Method)
	assert.Equal(t, 0.90, res.Confidence)

	// The odds id was filled onto the canonical row.
	p, ok, err := f.players.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "o-15", p.OddsPlayerID)
}

func TestPlayerResolverSuffixConflictNeverAutoMerges(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()
	senior := seedPlayer(t, f, "Tim Hardaway Sr.", "DAL", "G")

	res, err := f.svc.Resolve(ctx, playerRecord("stats_api", "p-10", "Tim Hardaway Jr.", "DAL", "G"))
	require.NoError(t, err)

	// Junior must never land on Senior's row: either a brand new player
	// or a review item, anything but Senior's id.
	assert.NotEqual(t, senior.ID, res.CanonicalID)
	require.True(t, res.Created)

	jr, ok, err := f.players.GetByID(ctx, res.CanonicalID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "jr", jr.Suffix)

	sr, ok, err := f.players.GetByID(ctx, senior.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sr", sr.Suffix)
	assert.Empty(t, sr.StatsPlayerID)
}

func TestPlayerResolverFuzzyAcceptRecordsAlias(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()
	seeded := seedPlayer(t, f, "Stephen Curry", "LAL", "G")

	res, err := f.svc.Resolve(ctx, playerRecord("odds_api", "o-30", "Stephen Currey", "lakers", "G"))
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, res.CanonicalID)
	assert.Equal(t, mapping.MethodFuzzyName, res.Method)
	assert.GreaterOrEqual(t, res.Confidence, 0.85)

	aliases, err := f.players.ListAliases(ctx, seeded.ID)
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "stephen currey", aliases[0].NormalizedName)
	assert.False(t, aliases[0].Verified)

	// The recorded alias short-circuits the next sync from the same feed.
	again, err := f.svc.Resolve(ctx, playerRecord("odds_api", "o-31", "Stephen Currey", "lakers", ""))
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, again.CanonicalID)
	assert.Equal(t, mapping.MethodAlias, again.Method)
	assert.Equal(t, 0.95, again.Confidence)
}

func TestPlayerResolverAliasLookupIsSourceScoped(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()
	seeded := seedPlayer(t, f, "Stephen Curry", "LAL", "G")

	res, err := f.svc.Resolve(ctx, playerRecord("odds_api", "o-40", "Stephen Currey", "lakers", "G"))
	require.NoError(t, err)
	require.Equal(t, seeded.ID, res.CanonicalID)

	// The alias belongs to odds_api; a news_feed record with the same
	// spelling must walk the rest of the pipeline instead of borrowing it.
	other, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-40", "Stephen Currey", "Los Angeles Lakers", "G"))
	require.NoError(t, err)
	assert.NotEqual(t, mapping.MethodAlias, other.Method)
}

func TestPlayerResolverAmbiguousRosterGoesToReview(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()
	seedPlayer(t, f, "Jalen Williams", "DAL", "F")
	seedPlayer(t, f, "Jaylin Williams", "DAL", "F")

	res, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-44", "Jaylen Williams", "DAL", "F"))
	require.NoError(t, err)
	assert.Equal(t, mapping.StatusManualReview, res.Status)
	require.NotEmpty(t, res.ReviewItemID)

	item, ok, err := f.reviews.Get(ctx, res.ReviewItemID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(item.Candidates), 2)
}

func TestPlayerResolverUnknownTeamQueuesInsteadOfCreating(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()

	res, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-50", "Victor Wembanyama", "", ""))
	require.NoError(t, err)
	assert.Equal(t, mapping.StatusManualReview, res.Status)
	assert.False(t, res.Created)
}

func TestPlayerResolverConcurrentResolveCreatesOnePlayer(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	ctx := context.Background()

	const writers = 12
	results := make([]usecase.Resolution, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			source := "stats_api"
			teamKey := "LAL"
			if i%2 == 1 {
				source, teamKey = "odds_api", "lakers"
			}
			rec := playerRecord(source, fmt.Sprintf("pid-%d", i), "Austin Reaves", teamKey, "G")
			results[i], errs[i] = f.svc.Resolve(ctx, rec)
		}()
	}
	wg.Wait()

	created := 0
	canonical := ""
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i], "writer %d", i)
		require.Equal(t, mapping.StatusMatched, results[i].Status, "writer %d", i)
		if results[i].Created {
			created++
		}
		if canonical == "" {
			canonical = results[i].CanonicalID
		}
		assert.Equal(t, canonical, results[i].CanonicalID, "writer %d", i)
	}
	assert.Equal(t, 1, created, "exactly one writer should create the player")
}
