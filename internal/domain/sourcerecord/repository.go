package sourcerecord

import "context"

// Repository is an append-only store of raw source payloads.
type Repository interface {
	// Insert stores the record. It returns false without error when a
	// record with the same (source, sport, kind, source id) already
	// exists; stored records are never updated.
	Insert(ctx context.Context, r Record) (bool, error)

	Get(ctx context.Context, source, sport string, kind Kind, sourceID string) (Record, bool, error)
}
