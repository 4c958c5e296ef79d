package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type ReconciliationConfig struct {
	// Window bounds how far apart two rows' timestamps may sit and still
	// count as the same natural key.
	Window time.Duration
	// MaxConcurrent caps parallel merge groups.
	MaxConcurrent int
}

func (c ReconciliationConfig) withDefaults() ReconciliationConfig {
	if c.Window <= 0 {
		c.Window = 2 * time.Hour
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	return c
}

// ReconciliationReport summarizes one sweep.
type ReconciliationReport struct {
	GameGroups    int
	GamesMerged   int
	PlayerGroups  int
	PlayersMerged int
	Skipped       int
}

// ReconciliationService finds canonical rows that slipped past the unique
// constraints and merges each group into its earliest-created survivor.
// The sweep is idempotent: a clean store yields an all-zero report.
type ReconciliationService struct {
	games   game.Repository
	players player.Repository
	audit   *AuditService
	cfg     ReconciliationConfig
	logger  *logging.Logger
	now     func() time.Time
}

func NewReconciliationService(
	games game.Repository,
	players player.Repository,
	auditSvc *AuditService,
	cfg ReconciliationConfig,
	logger *logging.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		games:   games,
		players: players,
		audit:   auditSvc,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one full sweep over games and players.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationReport, error) {
	ctx, span := startSpan(ctx, "ReconciliationService.Run")
	defer span.End()

	var report ReconciliationReport
	var mu sync.Mutex

	gameGroups, err := s.games.FindDuplicateGroups(ctx, s.cfg.Window)
	if err != nil {
		return report, fmt.Errorf("find duplicate games: %w", err)
	}
	playerGroups, err := s.players.FindDuplicateGroups(ctx, s.cfg.Window)
	if err != nil {
		return report, fmt.Errorf("find duplicate players: %w", err)
	}
	report.GameGroups = len(gameGroups)
	report.PlayerGroups = len(playerGroups)

	p := pool.New().WithMaxGoroutines(s.cfg.MaxConcurrent).WithContext(ctx)
	for _, group := range gameGroups {
		group := group
		p.Go(func(ctx context.Context) error {
			merged, skipped := s.mergeGameGroup(ctx, group)
			mu.Lock()
			report.GamesMerged += merged
			report.Skipped += skipped
			mu.Unlock()
			return nil
		})
	}
	for _, group := range playerGroups {
		group := group
		p.Go(func(ctx context.Context) error {
			merged, skipped := s.mergePlayerGroup(ctx, group)
			mu.Lock()
			report.PlayersMerged += merged
			report.Skipped += skipped
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return report, err
	}

	s.logger.InfoContext(ctx, "reconciliation sweep finished",
		"gameGroups", report.GameGroups,
		"gamesMerged", report.GamesMerged,
		"playerGroups", report.PlayerGroups,
		"playersMerged", report.PlayersMerged,
		"skipped", report.Skipped,
	)
	return report, nil
}

// mergeGameGroup folds every later duplicate into the earliest-created row.
// An integrity failure skips that one merge and leaves the rest of the
// group alone.
func (s *ReconciliationService) mergeGameGroup(ctx context.Context, group []game.Game) (merged, skipped int) {
	if len(group) < 2 {
		return 0, 0
	}
	survivor := group[0]
	for _, loser := range group[1:] {
		stats, err := s.games.Merge(ctx, survivor.ID, loser.ID)
		if err != nil {
			skipped++
			if errors.Is(err, game.ErrMergeIntegrity) {
				s.logger.WarnContext(ctx, "game merge skipped on integrity check",
					"survivorId", survivor.ID,
					"loserId", loser.ID,
				)
				continue
			}
			s.logger.ErrorContext(ctx, "game merge failed",
				"survivorId", survivor.ID,
				"loserId", loser.ID,
				"error", err,
			)
			continue
		}
		merged++
		if err := s.audit.Record(ctx, "game", survivor.ID, audit.ActionMerge, loser, survivor, &MatchDetails{
			Confidence: 1,
			Note:       fmt.Sprintf("absorbed duplicate %s: %d mappings, %d predictions re-pointed", loser.ID, stats.MappingsRepointed, stats.PredictionsRepointed),
		}, "reconciliation"); err != nil {
			s.logger.ErrorContext(ctx, "audit merge", "survivorId", survivor.ID, "error", err)
		}
	}
	return merged, skipped
}

func (s *ReconciliationService) mergePlayerGroup(ctx context.Context, group []player.Player) (merged, skipped int) {
	if len(group) < 2 {
		return 0, 0
	}
	survivor := group[0]
	for _, loser := range group[1:] {
		stats, err := s.players.Merge(ctx, survivor.ID, loser.ID)
		if err != nil {
			skipped++
			if errors.Is(err, player.ErrMergeIntegrity) {
				s.logger.WarnContext(ctx, "player merge skipped on integrity check",
					"survivorId", survivor.ID,
					"loserId", loser.ID,
				)
				continue
			}
			s.logger.ErrorContext(ctx, "player merge failed",
				"survivorId", survivor.ID,
				"loserId", loser.ID,
				"error", err,
			)
			continue
		}
		merged++
		if err := s.audit.Record(ctx, "player", survivor.ID, audit.ActionMerge, loser, survivor, &MatchDetails{
			Confidence: 1,
			Note:       fmt.Sprintf("absorbed duplicate %s: %d mappings, %d aliases, %d stat rows re-pointed", loser.ID, stats.MappingsRepointed, stats.AliasesRepointed, stats.StatsRepointed),
		}, "reconciliation"); err != nil {
			s.logger.ErrorContext(ctx, "audit merge", "survivorId", survivor.ID, "error", err)
		}
	}
	return merged, skipped
}
