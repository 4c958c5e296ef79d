package mapping

import "context"

type Repository interface {
	Get(ctx context.Context, sport string, kind Kind, source, sourceID string) (Mapping, bool, error)

	// Upsert inserts or replaces the mapping keyed by
	// (sport, kind, source, source id).
	Upsert(ctx context.Context, m Mapping) error

	ListByCanonical(ctx context.Context, kind Kind, canonicalID string) ([]Mapping, error)
}
