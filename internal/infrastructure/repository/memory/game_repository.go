package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
)

// GameRepository is the in-memory canonical game store. It enforces the
// same uniqueness rules as the postgres schema: one game per
// (sport, home, away, day) and, within a sport, one owner per non-empty
// per-source id.
type GameRepository struct {
	mu       sync.RWMutex
	games    map[string]game.Game
	mappings *MappingRepository

	// predictions models the consumer-owned FK table the merge path must
	// re-point. externalRefs models FK rows the store cannot re-point;
	// a loser carrying one fails the merge integrity check.
	predictions  map[string][]string
	externalRefs map[string][]string
}

func NewGameRepository(mappings *MappingRepository) *GameRepository {
	return &GameRepository{
		games:        make(map[string]game.Game),
		mappings:     mappings,
		predictions:  make(map[string][]string),
		externalRefs: make(map[string][]string),
	}
}

func (r *GameRepository) GetByID(_ context.Context, id string) (game.Game, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	return g, ok, nil
}

func (r *GameRepository) FindByNaturalKey(_ context.Context, sport, homeCode, awayCode string, from, to time.Time) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []game.Game
	for _, g := range r.games {
		if g.Sport != sport || g.HomeCode != homeCode || g.AwayCode != awayCode {
			continue
		}
		if g.ScheduledAt.Before(from) || g.ScheduledAt.After(to) {
			continue
		}
		out = append(out, g)
	}
	sortGames(out)
	return out, nil
}

func (r *GameRepository) ListByDay(_ context.Context, sport string, t time.Time) ([]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := t.UTC().Truncate(24 * time.Hour)
	var out []game.Game
	for _, g := range r.games {
		if g.Sport == sport && g.ScheduledAt.UTC().Truncate(24*time.Hour).Equal(day) {
			out = append(out, g)
		}
	}
	sortGames(out)
	return out, nil
}

func (r *GameRepository) Create(_ context.Context, g game.Game) error {
	if err := g.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.games[g.ID]; exists {
		return fmt.Errorf("%w: id %s", game.ErrDuplicate, g.ID)
	}
	day := g.ScheduledAt.UTC().Truncate(24 * time.Hour)
	for _, existing := range r.games {
		if existing.Sport == g.Sport &&
			existing.HomeCode == g.HomeCode &&
			existing.AwayCode == g.AwayCode &&
			existing.ScheduledAt.UTC().Truncate(24*time.Hour).Equal(day) {
			return fmt.Errorf("%w: natural key %s %s vs %s on %s", game.ErrDuplicate, g.Sport, g.HomeCode, g.AwayCode, day.Format("2006-01-02"))
		}
		if existing.Sport == g.Sport &&
			(sourceIDConflict(existing.StatsGameID, g.StatsGameID) ||
				sourceIDConflict(existing.OddsEventID, g.OddsEventID) ||
				sourceIDConflict(existing.NewsGameKey, g.NewsGameKey)) {
			return fmt.Errorf("%w: per-source id already owned by %s", game.ErrDuplicate, existing.ID)
		}
	}

	r.games[g.ID] = g
	return nil
}

func (r *GameRepository) SetSourceID(_ context.Context, id, source, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[id]
	if !ok {
		return fmt.Errorf("game %s not found", id)
	}
	if g.SourceID(source) == sourceID {
		return nil
	}
	for _, other := range r.games {
		if other.ID != id && other.Sport == g.Sport && other.SourceID(source) == sourceID && sourceID != "" {
			return fmt.Errorf("%w: %s id %s owned by %s", game.ErrDuplicate, source, sourceID, other.ID)
		}
	}

	switch source {
	case game.SourceStats:
		g.StatsGameID = sourceID
	case game.SourceOdds:
		g.OddsEventID = sourceID
	case game.SourceNews:
		g.NewsGameKey = sourceID
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	g.UpdatedAt = time.Now().UTC()
	r.games[id] = g
	return nil
}

func (r *GameRepository) FindDuplicateGroups(_ context.Context, window time.Duration) ([][]game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byPair := make(map[string][]game.Game)
	for _, g := range r.games {
		key := g.Sport + "|" + g.HomeCode + "|" + g.AwayCode
		byPair[key] = append(byPair[key], g)
	}

	var groups [][]game.Game
	for _, games := range byPair {
		sort.Slice(games, func(i, j int) bool { return games[i].ScheduledAt.Before(games[j].ScheduledAt) })
		start := 0
		for i := 1; i <= len(games); i++ {
			if i < len(games) && games[i].ScheduledAt.Sub(games[i-1].ScheduledAt) <= window {
				continue
			}
			if i-start > 1 {
				group := append([]game.Game(nil), games[start:i]...)
				sortGamesByCreation(group)
				groups = append(groups, group)
			}
			start = i
		}
	}
	return groups, nil
}

// Merge re-points mapping and prediction rows from loser to survivor,
// carries missing per-source ids over, then deletes the loser.
func (r *GameRepository) Merge(ctx context.Context, survivorID, loserID string) (game.MergeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	survivor, ok := r.games[survivorID]
	if !ok {
		return game.MergeStats{}, fmt.Errorf("survivor game %s not found", survivorID)
	}
	loser, ok := r.games[loserID]
	if !ok {
		return game.MergeStats{}, fmt.Errorf("loser game %s not found", loserID)
	}
	if len(r.externalRefs[loserID]) > 0 {
		return game.MergeStats{}, fmt.Errorf("%w: game %s has %d unmanaged references", game.ErrMergeIntegrity, loserID, len(r.externalRefs[loserID]))
	}

	var stats game.MergeStats
	stats.MappingsRepointed = r.mappings.repointCanonical(mapping.KindGame, loserID, survivorID)

	if refs := r.predictions[loserID]; len(refs) > 0 {
		r.predictions[survivorID] = append(r.predictions[survivorID], refs...)
		stats.PredictionsRepointed = len(refs)
		delete(r.predictions, loserID)
	}

	if survivor.StatsGameID == "" {
		survivor.StatsGameID = loser.StatsGameID
	}
	if survivor.OddsEventID == "" {
		survivor.OddsEventID = loser.OddsEventID
	}
	if survivor.NewsGameKey == "" {
		survivor.NewsGameKey = loser.NewsGameKey
	}
	survivor.UpdatedAt = time.Now().UTC()
	r.games[survivorID] = survivor
	delete(r.games, loserID)
	return stats, nil
}

// AddPredictionRef attaches a downstream prediction row to a game.
func (r *GameRepository) AddPredictionRef(gameID, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions[gameID] = append(r.predictions[gameID], refID)
}

// PredictionRefs returns the prediction rows attached to a game.
func (r *GameRepository) PredictionRefs(gameID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.predictions[gameID]...)
}

// AddExternalRef attaches a reference the merge path cannot re-point.
func (r *GameRepository) AddExternalRef(gameID, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externalRefs[gameID] = append(r.externalRefs[gameID], refID)
}

func sourceIDConflict(a, b string) bool {
	return a != "" && a == b
}

func sortGames(games []game.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].ScheduledAt.Equal(games[j].ScheduledAt) {
			return games[i].ScheduledAt.Before(games[j].ScheduledAt)
		}
		return games[i].ID < games[j].ID
	})
}

func sortGamesByCreation(games []game.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.Before(games[j].CreatedAt)
		}
		return games[i].ID < games[j].ID
	})
}
