package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(t *testing.T, pf playerFixture) *usecase.ReviewService {
	t.Helper()
	logger := logging.NewNop()
	return usecase.NewReviewService(
		pf.reviews,
		pf.mappings,
		nil,
		pf.svc,
		usecase.NewAuditService(pf.auditLog, logger),
		logger,
	)
}

func queuePlayerReview(t *testing.T, f playerFixture) usecase.Resolution {
	t.Helper()
	ctx := context.Background()
	seedPlayer(t, f, "Jalen Williams", "DAL", "F")
	seedPlayer(t, f, "Jaylin Williams", "DAL", "F")

	res, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-70", "Jaylen Williams", "DAL", "F"))
	require.NoError(t, err)
	require.Equal(t, mapping.StatusManualReview, res.Status)
	require.NotEmpty(t, res.ReviewItemID)
	return res
}

func TestReviewApproveAppliesManualMatch(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	svc := newReviewService(t, f)
	ctx := context.Background()
	queued := queuePlayerReview(t, f)

	item, err := svc.Approve(ctx, queued.ReviewItemID, "seed-jalen williams-", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", item.ResolvedBy)

	// The mapping now resolves like any auto-accepted match.
	res, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-70", "Jaylen Williams", "DAL", "F"))
	require.NoError(t, err)
	assert.Equal(t, mapping.StatusMatched, res.Status)
	assert.Equal(t, "seed-jalen williams-", res.CanonicalID)
	assert.Equal(t, mapping.MethodExactID, res.Method)

	// The observed spelling became an alias of the chosen player.
	aliases, err := f.players.ListAliases(ctx, "seed-jalen williams-")
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.True(t, aliases[0].Verified)

	// The whole decision is on the audit trail.
	entries, err := f.auditLog.ListByEntity(ctx, "player", "seed-jalen williams-")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestReviewRejectMarksMappingFailed(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	svc := newReviewService(t, f)
	ctx := context.Background()
	queued := queuePlayerReview(t, f)

	item, err := svc.Reject(ctx, queued.ReviewItemID, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", item.ResolvedBy)

	m, found, err := f.mappings.Get(ctx, "basketball", mapping.KindPlayer, "news_feed", "n-70")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mapping.StatusFailed, m.Status)
}

func TestReviewDoubleResolveLosesSecondRace(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	svc := newReviewService(t, f)
	ctx := context.Background()
	queued := queuePlayerReview(t, f)

	const reviewers = 8
	errs := make([]error, reviewers)
	var wg sync.WaitGroup
	for i := 0; i < reviewers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = svc.Approve(ctx, queued.ReviewItemID, "", "reviewer-a")
			} else {
				_, errs[i] = svc.Reject(ctx, queued.ReviewItemID, "reviewer-b")
			}
		}()
	}
	wg.Wait()

	won := 0
	for i := 0; i < reviewers; i++ {
		if errs[i] == nil {
			won++
		} else {
			assert.ErrorIs(t, errs[i], usecase.ErrConflict, "reviewer %d", i)
		}
	}
	assert.Equal(t, 1, won, "exactly one reviewer should win the resolve")
}

func TestReviewFailedApproveReturnsItemToQueue(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	svc := newReviewService(t, f)
	ctx := context.Background()

	// An unknown team queues the record with no candidates, so approving
	// without naming a canonical id cannot be applied.
	res, err := f.svc.Resolve(ctx, playerRecord("news_feed", "n-90", "Victor Wembanyama", "", ""))
	require.NoError(t, err)
	require.Equal(t, mapping.StatusManualReview, res.Status)
	require.NotEmpty(t, res.ReviewItemID)

	_, err = svc.Approve(ctx, res.ReviewItemID, "", "ops@example.com")
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	// The failed approval must not consume the item.
	pending, err := svc.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.ReviewItemID, pending[0].ID)

	// A retry with an explicit canonical id goes through.
	chosen := seedPlayer(t, f, "Victor Wembanyama", "SAS", "C")
	item, err := svc.Approve(ctx, res.ReviewItemID, chosen.ID, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", item.ResolvedBy)
}

func TestReviewApproveUnknownItem(t *testing.T) {
	t.Parallel()

	f := newPlayerFixture(t)
	svc := newReviewService(t, f)

	_, err := svc.Approve(context.Background(), "missing", "", "ops@example.com")
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}
