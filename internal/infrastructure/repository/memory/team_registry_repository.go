package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsync/internal/domain/teamregistry"
)

// TeamRegistryRepository holds the seeded source-key to team-code table.
type TeamRegistryRepository struct {
	mu      sync.RWMutex
	entries []teamregistry.Entry
}

func NewTeamRegistryRepository(entries []teamregistry.Entry) *TeamRegistryRepository {
	return &TeamRegistryRepository{entries: append([]teamregistry.Entry(nil), entries...)}
}

func (r *TeamRegistryRepository) List(_ context.Context) ([]teamregistry.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]teamregistry.Entry(nil), r.entries...), nil
}
