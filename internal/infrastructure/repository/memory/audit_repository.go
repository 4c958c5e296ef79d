package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsync/internal/domain/audit"
)

// AuditRepository is an append-only in-memory log.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextID  int64
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{nextID: 1}
}

func (r *AuditRepository) Append(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextID
	r.nextID++
	r.entries = append(r.entries, e)
	return nil
}

func (r *AuditRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []audit.Entry
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry in append order.
func (r *AuditRepository) All() []audit.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]audit.Entry(nil), r.entries...)
}
