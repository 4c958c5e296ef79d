package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
)

type SyncJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]syncjob.Job
}

func NewSyncJobRepository() *SyncJobRepository {
	return &SyncJobRepository{jobs: make(map[string]syncjob.Job)}
}

func jobKey(source, dataType string) string {
	return source + "|" + dataType
}

func (r *SyncJobRepository) Get(_ context.Context, source, dataType string) (syncjob.Job, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[jobKey(source, dataType)]
	return j, ok, nil
}

func (r *SyncJobRepository) Upsert(_ context.Context, j syncjob.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[jobKey(j.Source, j.DataType)] = j
	return nil
}

func (r *SyncJobRepository) List(_ context.Context) ([]syncjob.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]syncjob.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].DataType < out[j].DataType
	})
	return out, nil
}
