package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionMerge   Action = "merge"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Entry is one append-only audit row. PreviousState, NewState and
// MatchDetails hold JSON documents.
type Entry struct {
	ID            int64
	EntityType    string
	EntityID      string
	Action        Action
	PreviousState []byte
	NewState      []byte
	MatchDetails  []byte
	Actor         string
	CreatedAt     time.Time
}

// Repository appends and reads audit entries. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Entry, error)
}
