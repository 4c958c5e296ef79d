package syncjob

import (
	"context"
	"time"
)

// State is the lifecycle of one (source, data type) sync job.
type State string

const (
	StateIdle     State = "idle"
	StateSyncing  State = "syncing"
	StateMatching State = "matching"
	StatePartial  State = "partial"
	StateFailed   State = "failed"
)

// CanTransition reports whether moving from s to next is legal. Partial and
// failed are resting states: a new run may start from either, same as idle.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateIdle, StatePartial, StateFailed:
		return next == StateSyncing
	case StateSyncing:
		return next == StateMatching || next == StateFailed
	case StateMatching:
		return next == StateIdle || next == StatePartial || next == StateFailed
	}
	return false
}

// Running reports whether a run is currently in flight.
func (s State) Running() bool {
	return s == StateSyncing || s == StateMatching
}

// Counts summarizes one run.
type Counts struct {
	Processed int
	Matched   int
	Created   int
	Queued    int
	Failed    int
}

// Job is the persisted status row for one (source, data type) pair.
type Job struct {
	Source    string
	DataType  string
	State     State
	Counts    Counts
	LastError string

	StartedAt  *time.Time
	FinishedAt *time.Time
	DurationMs int64
	UpdatedAt  time.Time
}

type Repository interface {
	Get(ctx context.Context, source, dataType string) (Job, bool, error)
	Upsert(ctx context.Context, j Job) error
	List(ctx context.Context) ([]Job, error)
}
