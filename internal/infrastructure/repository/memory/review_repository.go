package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/review"
)

type ReviewRepository struct {
	mu    sync.RWMutex
	items map[string]review.Item
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[string]review.Item)}
}

func (r *ReviewRepository) Create(_ context.Context, item review.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("review item %s already exists", item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *ReviewRepository) Get(_ context.Context, id string) (review.Item, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	return item, ok, nil
}

func (r *ReviewRepository) ListPending(_ context.Context, limit int) ([]review.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []review.Item
	for _, item := range r.items {
		if item.Status == review.StatusPending {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReviewRepository) Resolve(_ context.Context, id string, status review.Status, reviewer string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("review item %s not found", id)
	}
	if item.Status != review.StatusPending {
		return fmt.Errorf("%w: item %s is %s", review.ErrNotPending, id, item.Status)
	}
	item.Status = status
	item.ResolvedBy = reviewer
	item.ResolvedAt = &at
	r.items[id] = item
	return nil
}

func (r *ReviewRepository) Reopen(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("review item %s not found", id)
	}
	item.Status = review.StatusPending
	item.ResolvedBy = ""
	item.ResolvedAt = nil
	r.items[id] = item
	return nil
}
