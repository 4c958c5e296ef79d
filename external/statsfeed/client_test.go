package statsfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/platform/resilience"
	"github.com/riskibarqy/sportsync/internal/usecase"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg ClientConfig) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return NewClient(cfg)
}

func TestFetchGames_DecodesRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/basketball/games", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"id":"g-100",
			"homeTeam":{"key":"LAL","name":"Los Angeles Lakers"},
			"awayTeam":{"key":"BOS","name":"Boston Celtics"},
			"scheduledAt":"2026-03-01T19:30:00Z",
			"status":"scheduled",
			"venue":"Crypto.com Arena"
		}]}`))
	}, ClientConfig{Token: "secret"})

	records, err := client.Fetch(context.Background(), "basketball", DataTypeGames)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, "stats_api", rec.Source)
	require.Equal(t, sourcerecord.KindGame, rec.Kind)
	require.Equal(t, "g-100", rec.SourceID)
	require.Equal(t, "LAL", rec.Game.HomeKey)
	require.Equal(t, "Boston Celtics", rec.Game.AwayName)
	require.Equal(t, time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC), rec.Game.ScheduledAt)
	require.NotEmpty(t, rec.RawPayload)
	require.NoError(t, rec.Validate())
}

func TestFetchPlayers_DecodesRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/basketball/players", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"id":"p-7",
			"name":"Nikola Jokic",
			"team":{"key":"DEN","name":"Denver Nuggets"},
			"position":"C"
		}]}`))
	}, ClientConfig{})

	records, err := client.Fetch(context.Background(), "basketball", DataTypePlayers)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, sourcerecord.KindPlayer, records[0].Kind)
	require.Equal(t, "Nikola Jokic", records[0].Player.Name)
	require.Equal(t, "DEN", records[0].Player.TeamKey)
}

func TestFetch_RetriesTransientStatusAndMarksError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, ClientConfig{MaxRetries: 1, CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false}})

	_, err := client.Fetch(context.Background(), "basketball", DataTypeGames)
	require.Error(t, err)
	require.ErrorIs(t, err, usecase.ErrTransient)
	require.EqualValues(t, 2, calls.Load())
}

func TestFetch_NonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, ClientConfig{MaxRetries: 3, CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false}})

	_, err := client.Fetch(context.Background(), "basketball", DataTypeGames)
	require.Error(t, err)
	require.False(t, errors.Is(err, usecase.ErrTransient))
	require.EqualValues(t, 1, calls.Load())
}

func TestFetch_CircuitBreakerShedsAfterFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, ClientConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	}})

	_, err := client.Fetch(context.Background(), "basketball", DataTypeGames)
	require.ErrorIs(t, err, usecase.ErrTransient)

	_, err = client.Fetch(context.Background(), "basketball", DataTypeGames)
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
}

func TestFetch_UnknownDataType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, ClientConfig{})

	_, err := client.Fetch(context.Background(), "basketball", "standings")
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}
