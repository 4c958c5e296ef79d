package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
)

// Health rolls the individual job states up to one operational signal.
type Health string

const (
	HealthOK       Health = "ok"
	HealthDegraded Health = "degraded"
	HealthFailing  Health = "failing"
)

type SyncStatus struct {
	Health Health
	Jobs   []syncjob.Job
}

// SyncStatusService exposes the sync job table for dashboards and probes.
type SyncStatusService struct {
	jobs syncjob.Repository
}

func NewSyncStatusService(jobs syncjob.Repository) *SyncStatusService {
	return &SyncStatusService{jobs: jobs}
}

// Status lists every job with a worst-state rollup: any failed job marks
// the whole pipeline failing, any partial run marks it degraded.
func (s *SyncStatusService) Status(ctx context.Context) (SyncStatus, error) {
	ctx, span := startSpan(ctx, "SyncStatusService.Status")
	defer span.End()

	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("list sync jobs: %w", err)
	}

	health := HealthOK
	for _, j := range jobs {
		switch j.State {
		case syncjob.StateFailed:
			health = HealthFailing
		case syncjob.StatePartial:
			if health == HealthOK {
				health = HealthDegraded
			}
		}
	}
	return SyncStatus{Health: health, Jobs: jobs}, nil
}

// JobStatus returns one job row.
func (s *SyncStatusService) JobStatus(ctx context.Context, source, dataType string) (syncjob.Job, error) {
	ctx, span := startSpan(ctx, "SyncStatusService.JobStatus")
	defer span.End()

	if source == "" || dataType == "" {
		return syncjob.Job{}, fmt.Errorf("%w: source and data type are required", ErrInvalidInput)
	}
	job, found, err := s.jobs.Get(ctx, source, dataType)
	if err != nil {
		return syncjob.Job{}, fmt.Errorf("load sync job: %w", err)
	}
	if !found {
		return syncjob.Job{}, fmt.Errorf("%w: sync job %s/%s", ErrNotFound, source, dataType)
	}
	return job, nil
}
