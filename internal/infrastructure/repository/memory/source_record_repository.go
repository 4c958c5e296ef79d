package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
)

type SourceRecordRepository struct {
	mu      sync.RWMutex
	records map[string]sourcerecord.Record
}

func NewSourceRecordRepository() *SourceRecordRepository {
	return &SourceRecordRepository{records: make(map[string]sourcerecord.Record)}
}

func recordKey(source, sport string, kind sourcerecord.Kind, sourceID string) string {
	return source + "|" + sport + "|" + string(kind) + "|" + sourceID
}

func (r *SourceRecordRepository) Insert(_ context.Context, rec sourcerecord.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(rec.Source, rec.Sport, rec.Kind, rec.SourceID)
	if _, exists := r.records[key]; exists {
		return false, nil
	}
	r.records[key] = rec
	return true, nil
}

func (r *SourceRecordRepository) Get(_ context.Context, source, sport string, kind sourcerecord.Kind, sourceID string) (sourcerecord.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[recordKey(source, sport, kind, sourceID)]
	return rec, ok, nil
}
