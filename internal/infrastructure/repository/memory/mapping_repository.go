package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/sportsync/internal/domain/mapping"
)

type MappingRepository struct {
	mu       sync.RWMutex
	mappings map[string]mapping.Mapping
}

func NewMappingRepository() *MappingRepository {
	return &MappingRepository{mappings: make(map[string]mapping.Mapping)}
}

func mappingKey(sport string, kind mapping.Kind, source, sourceID string) string {
	return sport + "|" + string(kind) + "|" + source + "|" + sourceID
}

func (r *MappingRepository) Get(_ context.Context, sport string, kind mapping.Kind, source, sourceID string) (mapping.Mapping, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[mappingKey(sport, kind, source, sourceID)]
	return m, ok, nil
}

func (r *MappingRepository) Upsert(_ context.Context, m mapping.Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := mappingKey(m.Sport, m.Kind, m.Source, m.SourceID)
	if existing, ok := r.mappings[key]; ok {
		m.CreatedAt = existing.CreatedAt
	}
	r.mappings[key] = m
	return nil
}

func (r *MappingRepository) ListByCanonical(_ context.Context, kind mapping.Kind, canonicalID string) ([]mapping.Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []mapping.Mapping
	for _, m := range r.mappings {
		if m.Kind == kind && m.CanonicalID == canonicalID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out, nil
}

// repointCanonical moves every mapping of kind from one canonical id to
// another. Called under the owning entity repository's merge lock.
func (r *MappingRepository) repointCanonical(kind mapping.Kind, from, to string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for key, m := range r.mappings {
		if m.Kind == kind && m.CanonicalID == from {
			m.CanonicalID = to
			r.mappings[key] = m
			n++
		}
	}
	return n
}
