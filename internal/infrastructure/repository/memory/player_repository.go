package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
)

// PlayerRepository is the in-memory canonical player store with the same
// uniqueness rules as the postgres schema: one player per
// (sport, normalized name, suffix, team) and, within a sport, one owner
// per non-empty per-source id.
type PlayerRepository struct {
	mu       sync.RWMutex
	players  map[string]player.Player
	aliases  map[string][]player.Alias
	mappings *MappingRepository

	statRefs     map[string][]string
	externalRefs map[string][]string
}

func NewPlayerRepository(mappings *MappingRepository) *PlayerRepository {
	return &PlayerRepository{
		players:      make(map[string]player.Player),
		aliases:      make(map[string][]player.Alias),
		mappings:     mappings,
		statRefs:     make(map[string][]string),
		externalRefs: make(map[string][]string),
	}
}

func (r *PlayerRepository) GetByID(_ context.Context, id string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok, nil
}

func (r *PlayerRepository) FindByNormalizedName(_ context.Context, sport, normalized, teamCode string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []player.Player
	for _, p := range r.players {
		if p.Sport != sport || p.NormalizedName != normalized {
			continue
		}
		if teamCode != "" && p.TeamCode != teamCode {
			continue
		}
		out = append(out, p)
	}
	sortPlayers(out)
	return out, nil
}

func (r *PlayerRepository) ListByTeam(_ context.Context, sport, teamCode string) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []player.Player
	for _, p := range r.players {
		if p.Sport == sport && p.TeamCode == teamCode {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out, nil
}

func (r *PlayerRepository) Create(_ context.Context, p player.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[p.ID]; exists {
		return fmt.Errorf("%w: id %s", player.ErrDuplicate, p.ID)
	}
	for _, existing := range r.players {
		if existing.Sport == p.Sport &&
			existing.NormalizedName == p.NormalizedName &&
			existing.Suffix == p.Suffix &&
			existing.TeamCode == p.TeamCode {
			return fmt.Errorf("%w: %s already on %s", player.ErrDuplicate, p.NormalizedName, p.TeamCode)
		}
		if existing.Sport == p.Sport &&
			(sourceIDConflict(existing.StatsPlayerID, p.StatsPlayerID) ||
				sourceIDConflict(existing.OddsPlayerID, p.OddsPlayerID) ||
				sourceIDConflict(existing.NewsPlayerKey, p.NewsPlayerKey)) {
			return fmt.Errorf("%w: per-source id already owned by %s", player.ErrDuplicate, existing.ID)
		}
	}

	r.players[p.ID] = p
	return nil
}

func (r *PlayerRepository) SetSourceID(_ context.Context, id, source, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return fmt.Errorf("player %s not found", id)
	}
	if p.SourceID(source) == sourceID {
		return nil
	}
	for _, other := range r.players {
		if other.ID != id && other.Sport == p.Sport && sourceID != "" && other.SourceID(source) == sourceID {
			return fmt.Errorf("%w: %s id %s owned by %s", player.ErrDuplicate, source, sourceID, other.ID)
		}
	}

	switch source {
	case sourcerecord.SourceStats:
		p.StatsPlayerID = sourceID
	case sourcerecord.SourceOdds:
		p.OddsPlayerID = sourceID
	case sourcerecord.SourceNews:
		p.NewsPlayerKey = sourceID
	default:
		return fmt.Errorf("unknown source %q", source)
	}
	p.UpdatedAt = time.Now().UTC()
	r.players[id] = p
	return nil
}

func (r *PlayerRepository) AddAlias(_ context.Context, a player.Alias) error {
	if err := a.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[a.PlayerID]; !ok {
		return fmt.Errorf("player %s not found", a.PlayerID)
	}
	for _, aliases := range r.aliases {
		for _, existing := range aliases {
			if existing.NormalizedName == a.NormalizedName && existing.Source == a.Source {
				// First binding wins, same as the postgres conflict clause.
				return nil
			}
		}
	}
	r.aliases[a.PlayerID] = append(r.aliases[a.PlayerID], a)
	return nil
}

func (r *PlayerRepository) FindAlias(_ context.Context, sport, normalized, source string) (player.Player, player.Alias, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for playerID, aliases := range r.aliases {
		p, ok := r.players[playerID]
		if !ok || p.Sport != sport {
			continue
		}
		for _, a := range aliases {
			if a.NormalizedName == normalized && (source == "" || a.Source == source) {
				return p, a, true, nil
			}
		}
	}
	return player.Player{}, player.Alias{}, false, nil
}

func (r *PlayerRepository) ListAliases(_ context.Context, playerID string) ([]player.Alias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]player.Alias(nil), r.aliases[playerID]...), nil
}

func (r *PlayerRepository) FindDuplicateGroups(_ context.Context, window time.Duration) ([][]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// The unique constraint already blocks exact key collisions; what
	// leaks through is the same name recorded once with a team and once
	// without, so grouping ignores an empty team code.
	byKey := make(map[string][]player.Player)
	for _, p := range r.players {
		key := p.Sport + "|" + p.NormalizedName + "|" + p.Suffix
		byKey[key] = append(byKey[key], p)
	}

	var groups [][]player.Player
	for _, players := range byKey {
		if len(players) < 2 {
			continue
		}
		teams := make(map[string]bool)
		for _, p := range players {
			if p.TeamCode != "" {
				teams[p.TeamCode] = true
			}
		}
		if len(teams) > 1 {
			// Different teams with the same name are different people.
			continue
		}
		sortPlayersByCreation(players)
		if window > 0 && players[len(players)-1].CreatedAt.Sub(players[0].CreatedAt) > window {
			continue
		}
		groups = append(groups, append([]player.Player(nil), players...))
	}
	return groups, nil
}

func (r *PlayerRepository) Merge(_ context.Context, survivorID, loserID string) (player.MergeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	survivor, ok := r.players[survivorID]
	if !ok {
		return player.MergeStats{}, fmt.Errorf("survivor player %s not found", survivorID)
	}
	loser, ok := r.players[loserID]
	if !ok {
		return player.MergeStats{}, fmt.Errorf("loser player %s not found", loserID)
	}
	if len(r.externalRefs[loserID]) > 0 {
		return player.MergeStats{}, fmt.Errorf("%w: player %s has %d unmanaged references", player.ErrMergeIntegrity, loserID, len(r.externalRefs[loserID]))
	}

	var stats player.MergeStats
	stats.MappingsRepointed = r.mappings.repointCanonical(mapping.KindPlayer, loserID, survivorID)

	if aliases := r.aliases[loserID]; len(aliases) > 0 {
		for i := range aliases {
			aliases[i].PlayerID = survivorID
		}
		r.aliases[survivorID] = append(r.aliases[survivorID], aliases...)
		stats.AliasesRepointed = len(aliases)
		delete(r.aliases, loserID)
	}
	if refs := r.statRefs[loserID]; len(refs) > 0 {
		r.statRefs[survivorID] = append(r.statRefs[survivorID], refs...)
		stats.StatsRepointed = len(refs)
		delete(r.statRefs, loserID)
	}

	if survivor.StatsPlayerID == "" {
		survivor.StatsPlayerID = loser.StatsPlayerID
	}
	if survivor.OddsPlayerID == "" {
		survivor.OddsPlayerID = loser.OddsPlayerID
	}
	if survivor.NewsPlayerKey == "" {
		survivor.NewsPlayerKey = loser.NewsPlayerKey
	}
	survivor.UpdatedAt = time.Now().UTC()
	r.players[survivorID] = survivor
	delete(r.players, loserID)
	return stats, nil
}

// AddStatRef attaches a downstream stat row to a player.
func (r *PlayerRepository) AddStatRef(playerID, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statRefs[playerID] = append(r.statRefs[playerID], refID)
}

// StatRefs returns the stat rows attached to a player.
func (r *PlayerRepository) StatRefs(playerID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.statRefs[playerID]...)
}

// AddExternalRef attaches a reference the merge path cannot re-point.
func (r *PlayerRepository) AddExternalRef(playerID, refID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externalRefs[playerID] = append(r.externalRefs[playerID], refID)
}

func sortPlayers(players []player.Player) {
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
}

func sortPlayersByCreation(players []player.Player) {
	sort.Slice(players, func(i, j int) bool {
		if !players[i].CreatedAt.Equal(players[j].CreatedAt) {
			return players[i].CreatedAt.Before(players[j].CreatedAt)
		}
		return players[i].ID < players[j].ID
	})
}
