package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
	"github.com/riskibarqy/sportsync/internal/matching"
	"github.com/riskibarqy/sportsync/internal/platform/cache"
	"github.com/riskibarqy/sportsync/internal/platform/id"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

const (
	confidenceAlias    = 0.95
	confidenceNameTeam = 0.90
)

type PlayerResolveConfig struct {
	// ReviewLimit caps the candidates attached to a review item.
	ReviewLimit int
	// AmbiguityGap is the minimum confidence lead the best candidate
	// needs over the runner-up to auto-accept. Two near-equal candidates
	// always go to a reviewer.
	AmbiguityGap float64
	// CacheTTL bounds how long resolved lookups stay cached.
	CacheTTL time.Duration
}

func (c PlayerResolveConfig) withDefaults() PlayerResolveConfig {
	if c.ReviewLimit <= 0 {
		c.ReviewLimit = 5
	}
	if c.AmbiguityGap <= 0 {
		c.AmbiguityGap = 0.05
	}
	// A negative TTL leaves the cache in place but expires entries
	// immediately, which disables it.
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	return c
}

// PlayerResolverService resolves incoming player records through a fixed
// priority pipeline: stored mapping, alias, normalized name with team,
// fuzzy scoring within the team, then manual review or creation.
type PlayerResolverService struct {
	players  player.Repository
	mappings mapping.Repository
	sources  sourcerecord.Repository
	reviews  review.Repository
	registry *teamregistry.Registry
	scorer   matching.Scorer
	audit    *AuditService
	cfg      PlayerResolveConfig
	idgen    id.Generator
	lookups  *cache.Store[player.Player]
	logger   *logging.Logger
	now      func() time.Time
}

func NewPlayerResolverService(
	players player.Repository,
	mappings mapping.Repository,
	sources sourcerecord.Repository,
	reviews review.Repository,
	registry *teamregistry.Registry,
	scorer matching.Scorer,
	auditSvc *AuditService,
	cfg PlayerResolveConfig,
	idgen id.Generator,
	logger *logging.Logger,
) *PlayerResolverService {
	cfg = cfg.withDefaults()
	return &PlayerResolverService{
		players:  players,
		mappings: mappings,
		sources:  sources,
		reviews:  reviews,
		registry: registry,
		scorer:   scorer,
		audit:    auditSvc,
		cfg:      cfg,
		idgen:    idgen,
		lookups:  cache.New[player.Player](cfg.CacheTTL),
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve matches one player record. Idempotent: a record that already
// resolved returns the stored outcome without new writes.
func (s *PlayerResolverService) Resolve(ctx context.Context, rec sourcerecord.Record) (Resolution, error) {
	ctx, span := startSpan(ctx, "PlayerResolverService.Resolve")
	defer span.End()

	if rec.Kind != sourcerecord.KindPlayer {
		return Resolution{}, fmt.Errorf("%w: record kind %q is not a player", ErrInvalidInput, rec.Kind)
	}
	if err := rec.Validate(); err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = s.now().UTC()
	}
	if _, err := s.sources.Insert(ctx, rec); err != nil {
		return Resolution{}, fmt.Errorf("store source record: %w", err)
	}

	// Step 1: stored mapping.
	m, found, err := s.mappings.Get(ctx, rec.Sport, mapping.KindPlayer, rec.Source, rec.SourceID)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup mapping: %w", err)
	}
	if found {
		switch m.Status {
		case mapping.StatusMatched:
			return Resolution{
				CanonicalID: m.CanonicalID,
				Confidence:  confidenceExactID,
				Status:      mapping.StatusMatched,
				Method:      mapping.MethodExactID,
			}, nil
		case mapping.StatusManualReview:
			return Resolution{Status: mapping.StatusManualReview, Confidence: m.Confidence}, nil
		}
	}

	norm := matching.Normalize(rec.Player.Name)

	// Step 2: alias table.
	if p, _, ok, err := s.players.FindAlias(ctx, rec.Sport, norm.Value, rec.Source); err != nil {
		return Resolution{}, fmt.Errorf("lookup alias: %w", err)
	} else if ok && !matching.SuffixConflict(norm.Suffix, p.Suffix) {
		if err := s.accept(ctx, rec, p, confidenceAlias, mapping.MethodAlias); err != nil {
			return Resolution{}, err
		}
		return Resolution{
			CanonicalID: p.ID,
			Confidence:  confidenceAlias,
			Status:      mapping.StatusMatched,
			Method:      mapping.MethodAlias,
		}, nil
	}

	teamCode, teamOK := s.resolveTeam(rec.Sport, rec.Source, rec.Player.TeamKey, rec.Player.TeamName)

	// Step 3: exact normalized name within the team.
	if teamOK {
		exact, err := s.players.FindByNormalizedName(ctx, rec.Sport, norm.Value, teamCode)
		if err != nil {
			return Resolution{}, fmt.Errorf("find players by name: %w", err)
		}
		exact = excludeSuffixConflicts(exact, norm.Suffix)
		if len(exact) == 1 {
			p := exact[0]
			if err := s.accept(ctx, rec, p, confidenceNameTeam, mapping.MethodNameTeam); err != nil {
				return Resolution{}, err
			}
			return Resolution{
				CanonicalID: p.ID,
				Confidence:  confidenceNameTeam,
				Status:      mapping.StatusMatched,
				Method:      mapping.MethodNameTeam,
			}, nil
		}
		if len(exact) > 1 {
			return s.enqueueReview(ctx, rec, norm, exact)
		}
	}

	// Step 4: fuzzy scoring within the team roster.
	if teamOK {
		roster, err := s.players.ListByTeam(ctx, rec.Sport, teamCode)
		if err != nil {
			return Resolution{}, fmt.Errorf("list team roster: %w", err)
		}
		roster = excludeSuffixConflicts(roster, norm.Suffix)

		scored := s.scoreCandidates(rec, norm, roster, true)
		if len(scored) > 0 {
			best := scored[0]
			tier := s.scorer.TierFor(best.Confidence)
			if tier == matching.TierAutoAccept && len(scored) > 1 &&
				best.Confidence-scored[1].Confidence < s.cfg.AmbiguityGap {
				tier = matching.TierManualReview
			}
			if tier == matching.TierAutoAccept {
				p, ok, err := s.players.GetByID(ctx, best.CanonicalID)
				if err != nil || !ok {
					return Resolution{}, fmt.Errorf("load scored candidate %s: %w", best.CanonicalID, err)
				}
				if err := s.accept(ctx, rec, p, best.Confidence, mapping.MethodFuzzyName); err != nil {
					return Resolution{}, err
				}
				return Resolution{
					CanonicalID: p.ID,
					Confidence:  best.Confidence,
					Status:      mapping.StatusMatched,
					Method:      mapping.MethodFuzzyName,
				}, nil
			}
			if tier == matching.TierManualReview {
				return s.enqueueReviewScored(ctx, rec, scored)
			}
		}
		// Every candidate rejected (or empty roster): this is a new
		// player on a known team.
		return s.createPlayer(ctx, rec, norm, teamCode)
	}

	// Team unknown: creating blind would seed duplicates, so hand the
	// record to a reviewer with sport-wide near matches attached.
	sportWide, err := s.players.FindByNormalizedName(ctx, rec.Sport, norm.Value, "")
	if err != nil {
		return Resolution{}, fmt.Errorf("find players sport-wide: %w", err)
	}
	return s.enqueueReview(ctx, rec, norm, excludeSuffixConflicts(sportWide, norm.Suffix))
}

// createPlayer inserts a new canonical player, treating a unique violation
// as losing a race: re-fetch and link to the winner.
func (s *PlayerResolverService) createPlayer(ctx context.Context, rec sourcerecord.Record, norm matching.NormalizedName, teamCode string) (Resolution, error) {
	playerID, err := s.idgen.NewID()
	if err != nil {
		return Resolution{}, fmt.Errorf("generate player id: %w", err)
	}

	now := s.now().UTC()
	p := player.Player{
		ID:             playerID,
		Sport:          rec.Sport,
		CanonicalName:  rec.Player.Name,
		NormalizedName: norm.Value,
		Suffix:         norm.Suffix,
		TeamCode:       teamCode,
		Position:       rec.Player.Position,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	setPlayerSourceID(&p, rec.Source, rec.SourceID)

	if err := s.players.Create(ctx, p); err != nil {
		if errors.Is(err, player.ErrDuplicate) {
			winner, ferr := s.refetchWinner(ctx, rec, norm, teamCode)
			if ferr != nil {
				return Resolution{}, ferr
			}
			if err := s.accept(ctx, rec, winner, confidenceNameTeam, mapping.MethodNameTeam); err != nil {
				return Resolution{}, err
			}
			return Resolution{
				CanonicalID: winner.ID,
				Confidence:  confidenceNameTeam,
				Status:      mapping.StatusMatched,
				Method:      mapping.MethodNameTeam,
			}, nil
		}
		return Resolution{}, fmt.Errorf("create player: %w", err)
	}

	if err := s.upsertMapping(ctx, rec, p.ID, confidenceExactID, mapping.MethodCreated); err != nil {
		return Resolution{}, err
	}
	if err := s.audit.Record(ctx, "player", p.ID, audit.ActionCreate, nil, p, &MatchDetails{
		Method:     mapping.MethodCreated,
		Confidence: confidenceExactID,
		Source:     rec.Source,
		SourceID:   rec.SourceID,
	}, rec.Source); err != nil {
		return Resolution{}, err
	}

	s.logger.InfoContext(ctx, "canonical player created",
		"playerId", p.ID,
		"sport", p.Sport,
		"name", p.CanonicalName,
		"team", teamCode,
		"source", rec.Source,
	)
	return Resolution{
		CanonicalID: p.ID,
		Confidence:  confidenceExactID,
		Status:      mapping.StatusMatched,
		Method:      mapping.MethodCreated,
		Created:     true,
	}, nil
}

func (s *PlayerResolverService) refetchWinner(ctx context.Context, rec sourcerecord.Record, norm matching.NormalizedName, teamCode string) (player.Player, error) {
	winners, err := s.players.FindByNormalizedName(ctx, rec.Sport, norm.Value, teamCode)
	if err != nil {
		return player.Player{}, fmt.Errorf("refetch after duplicate: %w", err)
	}
	winners = excludeSuffixConflicts(winners, norm.Suffix)
	if len(winners) > 0 {
		return winners[0], nil
	}
	m, found, err := s.mappings.Get(ctx, rec.Sport, mapping.KindPlayer, rec.Source, rec.SourceID)
	if err == nil && found && m.CanonicalID != "" {
		if p, ok, perr := s.players.GetByID(ctx, m.CanonicalID); perr == nil && ok {
			return p, nil
		}
	}
	return player.Player{}, fmt.Errorf("%w: duplicate insert but no winning row found", ErrConflict)
}

// accept links the record to a canonical player: mapping upsert, missing
// per-source id fill, alias capture when the observed spelling differs.
func (s *PlayerResolverService) accept(ctx context.Context, rec sourcerecord.Record, p player.Player, confidence float64, method mapping.Method) error {
	if err := s.upsertMapping(ctx, rec, p.ID, confidence, method); err != nil {
		return err
	}

	if p.SourceID(rec.Source) == "" {
		prev := p
		if err := s.players.SetSourceID(ctx, p.ID, rec.Source, rec.SourceID); err != nil {
			if errors.Is(err, player.ErrDuplicate) {
				s.logger.WarnContext(ctx, "per-source id column already taken",
					"playerId", p.ID,
					"source", rec.Source,
					"sourceId", rec.SourceID,
				)
				return s.recordAliasIfNew(ctx, rec, p, confidence, method)
			}
			return fmt.Errorf("set player source id: %w", err)
		}
		setPlayerSourceID(&p, rec.Source, rec.SourceID)
		if err := s.audit.Record(ctx, "player", p.ID, audit.ActionUpdate, prev, p, &MatchDetails{
			Method:     method,
			Confidence: confidence,
			Source:     rec.Source,
			SourceID:   rec.SourceID,
			Note:       "per-source id filled",
		}, rec.Source); err != nil {
			return err
		}
		s.lookups.Delete(lookupKey(rec.Sport, rec.Source, rec.SourceID))
	}
	return s.recordAliasIfNew(ctx, rec, p, confidence, method)
}

// recordAliasIfNew captures the observed spelling when it differs from the
// canonical one, so the next sync resolves it at the alias step.
func (s *PlayerResolverService) recordAliasIfNew(ctx context.Context, rec sourcerecord.Record, p player.Player, confidence float64, method mapping.Method) error {
	norm := matching.Normalize(rec.Player.Name)
	if norm.Value == p.NormalizedName {
		return nil
	}
	alias := player.Alias{
		PlayerID:       p.ID,
		Name:           rec.Player.Name,
		NormalizedName: norm.Value,
		Source:         rec.Source,
		Confidence:     confidence,
		Verified:       method == mapping.MethodManual,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.players.AddAlias(ctx, alias); err != nil {
		return fmt.Errorf("record alias: %w", err)
	}
	return nil
}

func (s *PlayerResolverService) upsertMapping(ctx context.Context, rec sourcerecord.Record, canonicalID string, confidence float64, method mapping.Method) error {
	now := s.now().UTC()
	m := mapping.Mapping{
		Sport:       rec.Sport,
		Kind:        mapping.KindPlayer,
		Source:      rec.Source,
		SourceID:    rec.SourceID,
		CanonicalID: canonicalID,
		Confidence:  confidence,
		Method:      method,
		Status:      mapping.StatusMatched,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.mappings.Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert player mapping: %w", err)
	}
	return s.audit.Record(ctx, "player_mapping", canonicalID, audit.ActionCreate, nil, m, &MatchDetails{
		Method:     method,
		Confidence: confidence,
		Source:     rec.Source,
		SourceID:   rec.SourceID,
	}, rec.Source)
}

func (s *PlayerResolverService) scoreCandidates(rec sourcerecord.Record, norm matching.NormalizedName, roster []player.Player, teamMatch bool) []review.Candidate {
	scored := make([]review.Candidate, 0, len(roster))
	for _, p := range roster {
		sig := matching.Signals{
			NameSimilarity: matching.JaroWinkler(norm.Value, p.NormalizedName),
			TeamMatch:      teamMatch,
			PositionMatch:  rec.Player.Position != "" && rec.Player.Position == p.Position,
		}
		conf, tier := s.scorer.Score(sig)
		if tier == matching.TierReject {
			continue
		}
		scored = append(scored, review.Candidate{
			CanonicalID: p.ID,
			Name:        p.CanonicalName,
			Confidence:  conf,
			Signals:     sig.Map(),
		})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })
	if len(scored) > s.cfg.ReviewLimit {
		scored = scored[:s.cfg.ReviewLimit]
	}
	return scored
}

func (s *PlayerResolverService) enqueueReview(ctx context.Context, rec sourcerecord.Record, norm matching.NormalizedName, candidates []player.Player) (Resolution, error) {
	return s.enqueueReviewScored(ctx, rec, s.scoreCandidates(rec, norm, candidates, false))
}

func (s *PlayerResolverService) enqueueReviewScored(ctx context.Context, rec sourcerecord.Record, candidates []review.Candidate) (Resolution, error) {
	itemID, err := s.idgen.NewID()
	if err != nil {
		return Resolution{}, fmt.Errorf("generate review item id: %w", err)
	}
	item := review.Item{
		ID:         itemID,
		Sport:      rec.Sport,
		Kind:       sourcerecord.KindPlayer,
		Record:     rec,
		Candidates: candidates,
		Status:     review.StatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, item); err != nil {
		return Resolution{}, fmt.Errorf("create review item: %w", err)
	}

	now := s.now().UTC()
	if err := s.mappings.Upsert(ctx, mapping.Mapping{
		Sport:     rec.Sport,
		Kind:      mapping.KindPlayer,
		Source:    rec.Source,
		SourceID:  rec.SourceID,
		Status:    mapping.StatusManualReview,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return Resolution{}, fmt.Errorf("mark mapping for review: %w", err)
	}

	best := 0.0
	if len(candidates) > 0 {
		best = candidates[0].Confidence
	}
	s.logger.InfoContext(ctx, "player queued for manual review",
		"reviewItemId", itemID,
		"source", rec.Source,
		"sourceId", rec.SourceID,
		"name", rec.Player.Name,
		"candidates", len(candidates),
	)
	return Resolution{
		Status:       mapping.StatusManualReview,
		Confidence:   best,
		ReviewItemID: itemID,
	}, nil
}

// AcceptManual applies a reviewer's decision: same write path as an
// auto-accepted match, recorded with the manual method.
func (s *PlayerResolverService) AcceptManual(ctx context.Context, rec sourcerecord.Record, canonicalID string, confidence float64) error {
	p, ok, err := s.players.GetByID(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: player %s", ErrNotFound, canonicalID)
	}
	return s.accept(ctx, rec, p, confidence, mapping.MethodManual)
}

// Lookup resolves a (source, source id) pair to its canonical player.
func (s *PlayerResolverService) Lookup(ctx context.Context, sport, source, sourceID string) (player.Player, mapping.Mapping, error) {
	ctx, span := startSpan(ctx, "PlayerResolverService.Lookup")
	defer span.End()

	if sport == "" || source == "" || sourceID == "" {
		return player.Player{}, mapping.Mapping{}, fmt.Errorf("%w: sport, source and source id are required", ErrInvalidInput)
	}

	m, found, err := s.mappings.Get(ctx, sport, mapping.KindPlayer, source, sourceID)
	if err != nil {
		return player.Player{}, mapping.Mapping{}, fmt.Errorf("lookup mapping: %w", err)
	}
	if !found || m.CanonicalID == "" {
		return player.Player{}, mapping.Mapping{}, fmt.Errorf("%w: no canonical player for %s/%s", ErrNotFound, source, sourceID)
	}

	key := lookupKey(sport, source, sourceID)
	if p, ok := s.lookups.Get(key); ok {
		return p, m, nil
	}
	p, ok, err := s.players.GetByID(ctx, m.CanonicalID)
	if err != nil {
		return player.Player{}, mapping.Mapping{}, fmt.Errorf("load player: %w", err)
	}
	if !ok {
		return player.Player{}, mapping.Mapping{}, fmt.Errorf("%w: mapping points at missing player %s", ErrNotFound, m.CanonicalID)
	}
	s.lookups.Set(key, p)
	return p, m, nil
}

func (s *PlayerResolverService) resolveTeam(sport, source, key, name string) (string, bool) {
	if key != "" {
		if code, ok := s.registry.Resolve(sport, source, key); ok {
			return code, true
		}
	}
	if name != "" {
		if code, ok := s.registry.ResolveName(sport, name); ok {
			return code, true
		}
	}
	return "", false
}

func excludeSuffixConflicts(players []player.Player, suffix string) []player.Player {
	out := players[:0:0]
	for _, p := range players {
		if !matching.SuffixConflict(suffix, p.Suffix) {
			out = append(out, p)
		}
	}
	return out
}

func setPlayerSourceID(p *player.Player, source, sourceID string) {
	switch source {
	case sourcerecord.SourceStats:
		p.StatsPlayerID = sourceID
	case sourcerecord.SourceOdds:
		p.OddsPlayerID = sourceID
	case sourcerecord.SourceNews:
		p.NewsPlayerKey = sourceID
	}
}
