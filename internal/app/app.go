package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/sportsync/external/statsfeed"
	"github.com/riskibarqy/sportsync/internal/config"
	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sportsync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/sportsync/internal/interfaces/httpapi"
	"github.com/riskibarqy/sportsync/internal/matching"
	idgen "github.com/riskibarqy/sportsync/internal/platform/id"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/platform/resilience"
	"github.com/riskibarqy/sportsync/internal/usecase"
)

// App holds everything one process needs: repositories behind their domain
// interfaces, the resolution services, and the HTTP surface. The api and
// worker binaries share this wiring.
type App struct {
	Config config.Config
	Logger *logging.Logger

	Router         http.Handler
	Orchestrator   *usecase.SyncOrchestratorService
	Reconciliation *usecase.ReconciliationService

	db *sqlx.DB
}

type repositories struct {
	games    game.Repository
	players  player.Repository
	mappings mapping.Repository
	sources  sourcerecord.Repository
	reviews  review.Repository
	jobs     syncjob.Repository
	audit    audit.Repository
	teams    teamregistry.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	repos, err := a.buildRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	entries, err := repos.teams.List(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load team registry: %w", err)
	}
	registry := teamregistry.New(entries)

	auditSvc := usecase.NewAuditService(repos.audit, logger)

	cacheTTL := cfg.CacheTTL
	if !cfg.CacheEnabled {
		cacheTTL = -1
	}

	gameSvc := usecase.NewGameMatcherService(
		repos.games,
		repos.mappings,
		repos.sources,
		repos.reviews,
		registry,
		matching.NewScorer(applyThresholds(matching.DefaultGameConfig(), cfg)),
		auditSvc,
		usecase.GameMatchConfig{
			TimeTolerance:    cfg.GameTimeTolerance,
			CrossTZTolerance: cfg.GameCrossTZTolerance,
			CrossTZSources:   toSet(cfg.GameCrossTZSources),
			FuzzyMaxDistance: cfg.GameFuzzyMaxDistance,
			ReviewLimit:      cfg.ReviewCandidateLimit,
			CacheTTL:         cacheTTL,
		},
		idgen.NewRandomGenerator(),
		logger,
	)

	playerSvc := usecase.NewPlayerResolverService(
		repos.players,
		repos.mappings,
		repos.sources,
		repos.reviews,
		registry,
		matching.NewScorer(applyThresholds(matching.DefaultPlayerConfig(), cfg)),
		auditSvc,
		usecase.PlayerResolveConfig{
			ReviewLimit:  cfg.ReviewCandidateLimit,
			AmbiguityGap: cfg.MatchAmbiguityGap,
			CacheTTL:     cacheTTL,
		},
		idgen.NewRandomGenerator(),
		logger,
	)

	reviewSvc := usecase.NewReviewService(repos.reviews, repos.mappings, gameSvc, playerSvc, auditSvc, logger)
	statusSvc := usecase.NewSyncStatusService(repos.jobs)

	a.Reconciliation = usecase.NewReconciliationService(
		repos.games,
		repos.players,
		auditSvc,
		usecase.ReconciliationConfig{
			Window:        cfg.ReconciliationWindow,
			MaxConcurrent: cfg.ReconciliationWorkers,
		},
		logger,
	)

	adapters, specs := buildAdapters(cfg, logger)
	a.Orchestrator = usecase.NewSyncOrchestratorService(
		adapters,
		repos.jobs,
		gameSvc,
		playerSvc,
		usecase.OrchestratorConfig{
			JobTimeout:   cfg.SyncJobTimeout,
			MaxWorkers:   cfg.SyncMaxWorkers,
			FetchRetries: cfg.SyncFetchRetries,
			RetryBackoff: cfg.SyncRetryBackoff,
			TickInterval: cfg.SyncTickInterval,
			Jobs:         specs,
		},
		logger,
	)

	handler := httpapi.NewHandler(gameSvc, playerSvc, reviewSvc, statusSvc, auditSvc, logger).
		WithJobRunner(a.Orchestrator, a.Reconciliation)
	a.Router = httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	return a, nil
}

// HTTPServer builds the server for the router with the configured timeouts.
func (a *App) HTTPServer() (*http.Server, error) {
	if a.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}
	return &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}, nil
}

// Close releases the database pool. Safe on an app running on in-memory
// repositories.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) buildRepositories(ctx context.Context, cfg config.Config, logger *logging.Logger) (repositories, error) {
	if cfg.DBURL == "" {
		logger.Info("no DB_URL configured, using in-memory repositories")
		mappings := memory.NewMappingRepository()
		return repositories{
			games:    memory.NewGameRepository(mappings),
			players:  memory.NewPlayerRepository(mappings),
			mappings: mappings,
			sources:  memory.NewSourceRecordRepository(),
			reviews:  memory.NewReviewRepository(),
			jobs:     memory.NewSyncJobRepository(),
			audit:    memory.NewAuditRepository(),
			teams:    memory.NewTeamRegistryRepository(memory.SeedTeamRegistry()),
		}, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return repositories{}, err
	}
	a.db = db

	if err := postgres.BootstrapSeed(ctx, db); err != nil {
		a.Close()
		return repositories{}, err
	}

	logger.Info("connected to postgres", "db", dbNameFromURL(cfg.DBURL))
	return repositories{
		games:    postgres.NewGameRepository(db),
		players:  postgres.NewPlayerRepository(db),
		mappings: postgres.NewMappingRepository(db),
		sources:  postgres.NewSourceRecordRepository(db),
		reviews:  postgres.NewReviewRepository(db),
		jobs:     postgres.NewSyncJobRepository(db),
		audit:    postgres.NewAuditRepository(db),
		teams:    postgres.NewTeamRegistryRepository(db),
	}, nil
}

func buildAdapters(cfg config.Config, logger *logging.Logger) ([]usecase.SourceAdapter, []usecase.JobSpec) {
	var adapters []usecase.SourceAdapter
	var specs []usecase.JobSpec

	if cfg.StatsfeedEnabled {
		client := statsfeed.NewClient(statsfeed.ClientConfig{
			BaseURL:    cfg.StatsfeedBaseURL,
			Token:      cfg.StatsfeedToken,
			Timeout:    cfg.StatsfeedTimeout,
			MaxRetries: cfg.StatsfeedMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.StatsfeedCircuitEnabled,
				FailureThreshold: cfg.StatsfeedCircuitFailureCount,
				OpenTimeout:      cfg.StatsfeedCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.StatsfeedCircuitHalfOpenMaxReq,
			},
		})
		adapters = append(adapters, client)

		for _, sport := range cfg.SyncSports {
			specs = append(specs,
				usecase.JobSpec{Source: client.Source(), Sport: sport, DataType: statsfeed.DataTypeGames, Interval: cfg.SyncGameInterval},
				usecase.JobSpec{Source: client.Source(), Sport: sport, DataType: statsfeed.DataTypePlayers, Interval: cfg.SyncPlayerInterval},
			)
		}
	}

	return adapters, specs
}

func applyThresholds(base matching.ScorerConfig, cfg config.Config) matching.ScorerConfig {
	if cfg.MatchAutoAccept > 0 {
		base.Thresholds.AutoAccept = cfg.MatchAutoAccept
	}
	if cfg.MatchManualReview > 0 {
		base.Thresholds.ManualReview = cfg.MatchManualReview
	}
	return base
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
