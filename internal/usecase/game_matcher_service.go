package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
	"github.com/riskibarqy/sportsync/internal/matching"
	"github.com/riskibarqy/sportsync/internal/platform/cache"
	"github.com/riskibarqy/sportsync/internal/platform/id"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

// Match confidences assigned by pipeline step. Deterministic: the same
// record against the same store always resolves at the same confidence.
const (
	confidenceExactID    = 1.0
	confidenceTimeWindow = 0.95
	confidenceFuzzyTeam  = 0.85
)

// GameMatchConfig tunes the time-window and fuzzy steps.
type GameMatchConfig struct {
	// TimeTolerance bounds the scheduled-time window for same-timezone
	// sources.
	TimeTolerance time.Duration
	// CrossTZTolerance replaces TimeTolerance for sources listed in
	// CrossTZSources, which publish kickoff times in a local timezone.
	CrossTZTolerance time.Duration
	CrossTZSources   map[string]bool
	// FuzzyMaxDistance is the largest Levenshtein distance at which a
	// team name still resolves against the registry.
	FuzzyMaxDistance int
	// ReviewLimit caps the candidates attached to a review item.
	ReviewLimit int
	// CacheTTL bounds how long resolved lookups stay cached.
	CacheTTL time.Duration
}

func (c GameMatchConfig) withDefaults() GameMatchConfig {
	if c.TimeTolerance <= 0 {
		c.TimeTolerance = 2 * time.Hour
	}
	if c.CrossTZTolerance <= 0 {
		c.CrossTZTolerance = 6 * time.Hour
	}
	if c.FuzzyMaxDistance <= 0 {
		c.FuzzyMaxDistance = 2
	}
	if c.ReviewLimit <= 0 {
		c.ReviewLimit = 5
	}
	// A negative TTL leaves the cache in place but expires entries
	// immediately, which disables it.
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Minute
	}
	return c
}

func (c GameMatchConfig) tolerance(source string) time.Duration {
	if c.CrossTZSources[source] {
		return c.CrossTZTolerance
	}
	return c.TimeTolerance
}

// Resolution is the outcome of one resolve call.
type Resolution struct {
	CanonicalID  string
	Confidence   float64
	Status       mapping.Status
	Method       mapping.Method
	Created      bool
	ReviewItemID string
}

// GameMatcherService resolves incoming game records to canonical games
// through a fixed priority pipeline: stored mapping, time-window natural
// key, fuzzy team resolution, then manual review.
type GameMatcherService struct {
	games    game.Repository
	mappings mapping.Repository
	sources  sourcerecord.Repository
	reviews  review.Repository
	registry *teamregistry.Registry
	scorer   matching.Scorer
	audit    *AuditService
	cfg      GameMatchConfig
	idgen    id.Generator
	lookups  *cache.Store[game.Game]
	logger   *logging.Logger
	now      func() time.Time
}

func NewGameMatcherService(
	games game.Repository,
	mappings mapping.Repository,
	sources sourcerecord.Repository,
	reviews review.Repository,
	registry *teamregistry.Registry,
	scorer matching.Scorer,
	auditSvc *AuditService,
	cfg GameMatchConfig,
	idgen id.Generator,
	logger *logging.Logger,
) *GameMatcherService {
	cfg = cfg.withDefaults()
	return &GameMatcherService{
		games:    games,
		mappings: mappings,
		sources:  sources,
		reviews:  reviews,
		registry: registry,
		scorer:   scorer,
		audit:    auditSvc,
		cfg:      cfg,
		idgen:    idgen,
		lookups:  cache.New[game.Game](cfg.CacheTTL),
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve matches one game record. It is idempotent: resubmitting a record
// returns the stored resolution without new writes.
func (s *GameMatcherService) Resolve(ctx context.Context, rec sourcerecord.Record) (Resolution, error) {
	ctx, span := startSpan(ctx, "GameMatcherService.Resolve")
	defer span.End()

	if rec.Kind != sourcerecord.KindGame {
		return Resolution{}, fmt.Errorf("%w: record kind %q is not a game", ErrInvalidInput, rec.Kind)
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

	// Step 1: stored mapping, the exact external id hit.
	m, found, err := s.mappings.Get(ctx, rec.Sport, mapping.KindGame, rec.Source, rec.SourceID)
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
			// Already queued. Re-running would duplicate the item.
			return Resolution{Status: mapping.StatusManualReview, Confidence: m.Confidence}, nil
		}
		// Pending and failed mappings fall through and retry the
		// pipeline.
	}

	homeCode, homeOK := s.resolveTeam(rec.Sport, rec.Source, rec.Game.HomeKey, rec.Game.HomeName)
	awayCode, awayOK := s.resolveTeam(rec.Sport, rec.Source, rec.Game.AwayKey, rec.Game.AwayName)

	// Step 2: both teams known, look inside the time window.
	if homeOK && awayOK {
		return s.resolveByNaturalKey(ctx, rec, homeCode, awayCode, s.cfg.tolerance(rec.Source), true)
	}

	// Step 3: fuzzy team resolution against the registry name index.
	if !homeOK {
		homeCode, homeOK = s.fuzzyTeamCode(rec.Sport, rec.Game.HomeName, rec.Game.HomeKey)
	}
	if !awayOK {
		awayCode, awayOK = s.fuzzyTeamCode(rec.Sport, rec.Game.AwayName, rec.Game.AwayKey)
	}
	if homeOK && awayOK {
		res, err := s.resolveByNaturalKey(ctx, rec, homeCode, awayCode, s.cfg.TimeTolerance, false)
		if err == nil && res.Status == mapping.StatusMatched && !res.Created {
			return res, nil
		}
		if err != nil {
			return Resolution{}, err
		}
		// A fuzzy team resolution is not enough evidence to create a
		// new canonical game; fall through to review.
	}

	// Step 4: manual review.
	return s.enqueueReview(ctx, rec)
}

// resolveByNaturalKey finds a game for the team pair inside the window, or
// creates one when allowCreate is set and no candidate exists.
func (s *GameMatcherService) resolveByNaturalKey(ctx context.Context, rec sourcerecord.Record, homeCode, awayCode string, tolerance time.Duration, allowCreate bool) (Resolution, error) {
	sched := rec.Game.ScheduledAt.UTC()
	candidates, err := s.games.FindByNaturalKey(ctx, rec.Sport, homeCode, awayCode, sched.Add(-tolerance), sched.Add(tolerance))
	if err != nil {
		return Resolution{}, fmt.Errorf("find games by natural key: %w", err)
	}

	if len(candidates) > 0 {
		best := closestGame(candidates, sched)
		confidence := confidenceTimeWindow
		method := mapping.MethodTimeWindow
		if !allowCreate {
			confidence = confidenceFuzzyTeam
			method = mapping.MethodFuzzyTeam
		}
		if err := s.accept(ctx, rec, best, confidence, method); err != nil {
			return Resolution{}, err
		}
		return Resolution{
			CanonicalID: best.ID,
			Confidence:  confidence,
			Status:      mapping.StatusMatched,
			Method:      method,
		}, nil
	}

	if !allowCreate {
		return Resolution{Status: mapping.StatusPending}, nil
	}
	return s.createGame(ctx, rec, homeCode, awayCode)
}

// createGame inserts a new canonical game. A unique violation here is the
// expected race outcome: another writer created the same game first, so the
// loser re-fetches and links to the winner's row.
func (s *GameMatcherService) createGame(ctx context.Context, rec sourcerecord.Record, homeCode, awayCode string) (Resolution, error) {
	gameID, err := s.idgen.NewID()
	if err != nil {
		return Resolution{}, fmt.Errorf("generate game id: %w", err)
	}

	now := s.now().UTC()
	g := game.Game{
		ID:          gameID,
		Sport:       rec.Sport,
		ScheduledAt: rec.Game.ScheduledAt.UTC(),
		HomeCode:    homeCode,
		AwayCode:    awayCode,
		Status:      rec.Game.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	setGameSourceID(&g, rec.Source, rec.SourceID)

	if err := s.games.Create(ctx, g); err != nil {
		if errors.Is(err, game.ErrDuplicate) {
			winner, ferr := s.refetchWinner(ctx, rec, homeCode, awayCode)
			if ferr != nil {
				return Resolution{}, ferr
			}
			if err := s.accept(ctx, rec, winner, confidenceTimeWindow, mapping.MethodTimeWindow); err != nil {
				return Resolution{}, err
			}
			return Resolution{
				CanonicalID: winner.ID,
				Confidence:  confidenceTimeWindow,
				Status:      mapping.StatusMatched,
				Method:      mapping.MethodTimeWindow,
			}, nil
		}
		return Resolution{}, fmt.Errorf("create game: %w", err)
	}

	if err := s.upsertMapping(ctx, rec, g.ID, confidenceExactID, mapping.MethodCreated); err != nil {
		return Resolution{}, err
	}
	if err := s.audit.Record(ctx, "game", g.ID, audit.ActionCreate, nil, g, &MatchDetails{
		Method:     mapping.MethodCreated,
		Confidence: confidenceExactID,
		Source:     rec.Source,
		SourceID:   rec.SourceID,
	}, rec.Source); err != nil {
		return Resolution{}, err
	}

	s.logger.InfoContext(ctx, "canonical game created",
		"gameId", g.ID,
		"sport", g.Sport,
		"home", homeCode,
		"away", awayCode,
		"source", rec.Source,
	)
	return Resolution{
		CanonicalID: g.ID,
		Confidence:  confidenceExactID,
		Status:      mapping.StatusMatched,
		Method:      mapping.MethodCreated,
		Created:     true,
	}, nil
}

func (s *GameMatcherService) refetchWinner(ctx context.Context, rec sourcerecord.Record, homeCode, awayCode string) (game.Game, error) {
	// The natural key buckets by day, which is wider than the tolerance
	// window, so the winning row is searched across the whole day.
	sched := rec.Game.ScheduledAt.UTC()
	dayGames, err := s.games.ListByDay(ctx, rec.Sport, sched)
	if err != nil {
		return game.Game{}, fmt.Errorf("refetch after duplicate: %w", err)
	}
	candidates := dayGames[:0:0]
	for _, g := range dayGames {
		if g.HomeCode == homeCode && g.AwayCode == awayCode {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		// The duplicate came from a per-source id constraint, not the
		// natural key. Resolve through the mapping another writer may
		// have just committed.
		m, found, err := s.mappings.Get(ctx, rec.Sport, mapping.KindGame, rec.Source, rec.SourceID)
		if err == nil && found && m.CanonicalID != "" {
			if g, ok, gerr := s.games.GetByID(ctx, m.CanonicalID); gerr == nil && ok {
				return g, nil
			}
		}
		return game.Game{}, fmt.Errorf("%w: duplicate insert but no winning row found", ErrConflict)
	}
	return closestGame(candidates, sched), nil
}

// accept links the record to an existing canonical game: upserts the
// mapping, fills a missing per-source id, audits both writes.
func (s *GameMatcherService) accept(ctx context.Context, rec sourcerecord.Record, g game.Game, confidence float64, method mapping.Method) error {
	if err := s.upsertMapping(ctx, rec, g.ID, confidence, method); err != nil {
		return err
	}

	if g.SourceID(rec.Source) == "" {
		prev := g
		if err := s.games.SetSourceID(ctx, g.ID, rec.Source, rec.SourceID); err != nil {
			if errors.Is(err, game.ErrDuplicate) {
				// Another record from this source claimed the column
				// first. The mapping table stays authoritative for
				// this source id, so the match still stands.
				s.logger.WarnContext(ctx, "per-source id column already taken",
					"gameId", g.ID,
					"source", rec.Source,
					"sourceId", rec.SourceID,
				)
				return nil
			}
			return fmt.Errorf("set game source id: %w", err)
		}
		setGameSourceID(&g, rec.Source, rec.SourceID)
		if err := s.audit.Record(ctx, "game", g.ID, audit.ActionUpdate, prev, g, &MatchDetails{
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
	return nil
}

func (s *GameMatcherService) upsertMapping(ctx context.Context, rec sourcerecord.Record, canonicalID string, confidence float64, method mapping.Method) error {
	now := s.now().UTC()
	m := mapping.Mapping{
		Sport:       rec.Sport,
		Kind:        mapping.KindGame,
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
		return fmt.Errorf("upsert game mapping: %w", err)
	}
	return s.audit.Record(ctx, "game_mapping", canonicalID, audit.ActionCreate, nil, m, &MatchDetails{
		Method:     method,
		Confidence: confidence,
		Source:     rec.Source,
		SourceID:   rec.SourceID,
	}, rec.Source)
}

// enqueueReview scores same-day games as candidates and files the record
// for a human decision.
func (s *GameMatcherService) enqueueReview(ctx context.Context, rec sourcerecord.Record) (Resolution, error) {
	sched := rec.Game.ScheduledAt.UTC()
	dayGames, err := s.games.ListByDay(ctx, rec.Sport, sched)
	if err != nil {
		return Resolution{}, fmt.Errorf("list games for review candidates: %w", err)
	}

	codeNames := make(map[string]string)
	for _, p := range s.registry.Names(rec.Sport) {
		if _, ok := codeNames[p.Code]; !ok || len(p.Name) > len(codeNames[p.Code]) {
			codeNames[p.Code] = p.Name
		}
	}

	tolerance := s.cfg.tolerance(rec.Source)
	homeName := matching.Normalize(teamKey(rec.Game.HomeName, rec.Game.HomeKey)).Value
	awayName := matching.Normalize(teamKey(rec.Game.AwayName, rec.Game.AwayKey)).Value

	candidates := make([]review.Candidate, 0, len(dayGames))
	for _, g := range dayGames {
		sim := (matching.JaroWinkler(homeName, teamDisplay(codeNames, g.HomeCode)) +
			matching.JaroWinkler(awayName, teamDisplay(codeNames, g.AwayCode))) / 2
		proximity := 1 - math.Min(1, math.Abs(g.ScheduledAt.Sub(sched).Hours())/tolerance.Hours())

		sig := matching.Signals{NameSimilarity: sim, TimeProximity: proximity}
		conf, tier := s.scorer.Score(sig)
		if tier == matching.TierReject {
			continue
		}
		candidates = append(candidates, review.Candidate{
			CanonicalID: g.ID,
			Name:        g.HomeCode + " vs " + g.AwayCode,
			Confidence:  conf,
			Signals:     sig.Map(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Confidence > candidates[j].Confidence })
	if len(candidates) > s.cfg.ReviewLimit {
		candidates = candidates[:s.cfg.ReviewLimit]
	}

	itemID, err := s.idgen.NewID()
	if err != nil {
		return Resolution{}, fmt.Errorf("generate review item id: %w", err)
	}
	item := review.Item{
		ID:         itemID,
		Sport:      rec.Sport,
		Kind:       sourcerecord.KindGame,
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
		Kind:      mapping.KindGame,
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
	s.logger.InfoContext(ctx, "game queued for manual review",
		"reviewItemId", itemID,
		"source", rec.Source,
		"sourceId", rec.SourceID,
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
func (s *GameMatcherService) AcceptManual(ctx context.Context, rec sourcerecord.Record, canonicalID string, confidence float64) error {
	g, ok, err := s.games.GetByID(ctx, canonicalID)
	if err != nil {
		return fmt.Errorf("load game: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: game %s", ErrNotFound, canonicalID)
	}
	return s.accept(ctx, rec, g, confidence, mapping.MethodManual)
}

// Lookup resolves a (source, source id) pair to its canonical game. Results
// are cached briefly; the cache is invalidated when a per-source id is
// written.
func (s *GameMatcherService) Lookup(ctx context.Context, sport, source, sourceID string) (game.Game, mapping.Mapping, error) {
	ctx, span := startSpan(ctx, "GameMatcherService.Lookup")
	defer span.End()

	if sport == "" || source == "" || sourceID == "" {
		return game.Game{}, mapping.Mapping{}, fmt.Errorf("%w: sport, source and source id are required", ErrInvalidInput)
	}

	m, found, err := s.mappings.Get(ctx, sport, mapping.KindGame, source, sourceID)
	if err != nil {
		return game.Game{}, mapping.Mapping{}, fmt.Errorf("lookup mapping: %w", err)
	}
	if !found || m.CanonicalID == "" {
		return game.Game{}, mapping.Mapping{}, fmt.Errorf("%w: no canonical game for %s/%s", ErrNotFound, source, sourceID)
	}

	key := lookupKey(sport, source, sourceID)
	if g, ok := s.lookups.Get(key); ok {
		return g, m, nil
	}
	g, ok, err := s.games.GetByID(ctx, m.CanonicalID)
	if err != nil {
		return game.Game{}, mapping.Mapping{}, fmt.Errorf("load game: %w", err)
	}
	if !ok {
		return game.Game{}, mapping.Mapping{}, fmt.Errorf("%w: mapping points at missing game %s", ErrNotFound, m.CanonicalID)
	}
	s.lookups.Set(key, g)
	return g, m, nil
}

func closestGame(candidates []game.Game, sched time.Time) game.Game {
	best := candidates[0]
	bestDelta := absDuration(best.ScheduledAt.Sub(sched))
	for _, c := range candidates[1:] {
		if d := absDuration(c.ScheduledAt.Sub(sched)); d < bestDelta {
			best, bestDelta = c, d
		}
	}
	return best
}

// resolveTeam tries the source-specific registry key first, then a name
// lookup across all sources of the sport.
func (s *GameMatcherService) resolveTeam(sport, source, key, name string) (string, bool) {
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

// fuzzyTeamCode scans the registry name index for a near match. It refuses
// to pick when two different codes are equally close.
func (s *GameMatcherService) fuzzyTeamCode(sport, name, key string) (string, bool) {
	target := matching.Normalize(teamKey(name, key)).Value
	if target == "" {
		return "", false
	}

	bestCode := ""
	bestDist := s.cfg.FuzzyMaxDistance + 1
	ambiguous := false
	for _, p := range s.registry.Names(sport) {
		d := matching.Levenshtein(target, p.Name)
		switch {
		case d < bestDist:
			bestCode, bestDist, ambiguous = p.Code, d, false
		case d == bestDist && p.Code != bestCode:
			ambiguous = true
		}
	}
	if bestDist > s.cfg.FuzzyMaxDistance || ambiguous {
		return "", false
	}
	return bestCode, true
}

func teamKey(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

func teamDisplay(codeNames map[string]string, code string) string {
	if n, ok := codeNames[code]; ok {
		return n
	}
	return matching.Normalize(code).Value
}

func setGameSourceID(g *game.Game, source, sourceID string) {
	switch source {
	case game.SourceStats:
		g.StatsGameID = sourceID
	case game.SourceOdds:
		g.OddsEventID = sourceID
	case game.SourceNews:
		g.NewsGameKey = sourceID
	}
}

func lookupKey(sport, source, sourceID string) string {
	return sport + "|" + source + "|" + sourceID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
