package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
)

// SourceAdapter fetches raw records from one upstream provider. Adapters
// mark retryable failures with errors.Mark so the orchestrator can tell a
// flaky upstream from a broken one.
type SourceAdapter interface {
	Source() string
	Fetch(ctx context.Context, sport, dataType string) ([]sourcerecord.Record, error)
}

// ErrTransient marks adapter failures worth retrying.
var ErrTransient = errors.New("transient upstream failure")

// JobSpec schedules one recurring (source, data type) pull.
type JobSpec struct {
	Source   string
	Sport    string
	DataType string
	Interval time.Duration
}

type OrchestratorConfig struct {
	JobTimeout   time.Duration
	MaxWorkers   int
	FetchRetries int
	RetryBackoff time.Duration
	TickInterval time.Duration
	Jobs         []JobSpec
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.JobTimeout <= 0 {
		c.JobTimeout = 5 * time.Minute
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.FetchRetries <= 0 {
		c.FetchRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 30 * time.Second
	}
	return c
}

// JobReport is the outcome of one run.
type JobReport struct {
	Source   string
	DataType string
	State    syncjob.State
	Counts   syncjob.Counts
	Duration time.Duration
}

// SyncOrchestratorService runs the per-source sync jobs. Jobs run on a
// bounded worker pool; a failure in one source never touches another
// source's run.
type SyncOrchestratorService struct {
	adapters map[string]SourceAdapter
	jobs     syncjob.Repository
	games    *GameMatcherService
	players  *PlayerResolverService
	cfg      OrchestratorConfig
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	running map[string]bool
	pool    *ants.Pool
}

func NewSyncOrchestratorService(
	adapters []SourceAdapter,
	jobs syncjob.Repository,
	games *GameMatcherService,
	players *PlayerResolverService,
	cfg OrchestratorConfig,
	logger *logging.Logger,
) *SyncOrchestratorService {
	byName := make(map[string]SourceAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Source()] = a
	}
	return &SyncOrchestratorService{
		adapters: byName,
		jobs:     jobs,
		games:    games,
		players:  players,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
		running:  make(map[string]bool),
	}
}

// Run schedules the configured jobs until ctx is canceled. Each due job is
// submitted to the worker pool; at most MaxWorkers sources sync at once.
func (s *SyncOrchestratorService) Run(ctx context.Context) error {
	pool, err := ants.NewPool(s.cfg.MaxWorkers, ants.WithNonblocking(false))
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	defer pool.Release()

	next := make(map[string]time.Time, len(s.cfg.Jobs))
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sync orchestrator started",
		"jobs", len(s.cfg.Jobs),
		"workers", s.cfg.MaxWorkers,
	)

	var wg sync.WaitGroup
	for {
		now := s.now()
		for _, spec := range s.cfg.Jobs {
			key := spec.Source + "/" + spec.DataType
			if now.Before(next[key]) {
				continue
			}
			next[key] = now.Add(spec.Interval)

			spec := spec
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				if _, err := s.RunJob(ctx, spec.Source, spec.Sport, spec.DataType); err != nil {
					s.logger.ErrorContext(ctx, "sync job failed",
						"source", spec.Source,
						"dataType", spec.DataType,
						"error", err,
					)
				}
			}); err != nil {
				wg.Done()
				s.logger.ErrorContext(ctx, "submit sync job", "source", spec.Source, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("sync orchestrator stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunJob executes one sync run synchronously. A second call for the same
// (source, data type) while a run is in flight returns ErrConflict.
func (s *SyncOrchestratorService) RunJob(ctx context.Context, source, sport, dataType string) (JobReport, error) {
	ctx, span := startSpan(ctx, "SyncOrchestratorService.RunJob")
	defer span.End()

	adapter, ok := s.adapters[source]
	if !ok {
		return JobReport{}, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, source)
	}

	key := source + "/" + dataType
	s.mu.Lock()
	if s.running[key] {
		s.mu.Unlock()
		return JobReport{}, fmt.Errorf("%w: sync job %s is already running", ErrConflict, key)
	}
	s.running[key] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, key)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	started := s.now().UTC()
	job, _, err := s.jobs.Get(ctx, source, dataType)
	if err != nil {
		return JobReport{}, fmt.Errorf("load sync job: %w", err)
	}
	job.Source, job.DataType = source, dataType
	if job.State == "" {
		job.State = syncjob.StateIdle
	}
	if job.State.Running() {
		// A stale row from a crashed run. Treat it as resting; the
		// in-memory guard above already prevents true double runs on
		// this instance.
		job.State = syncjob.StateFailed
	}

	if err := s.transition(ctx, &job, syncjob.StateSyncing, func(j *syncjob.Job) {
		j.StartedAt = &started
		j.FinishedAt = nil
		j.Counts = syncjob.Counts{}
		j.LastError = ""
	}); err != nil {
		return JobReport{}, err
	}

	records, err := s.fetchWithRetry(ctx, adapter, sport, dataType)
	if err != nil {
		s.finish(ctx, &job, syncjob.StateFailed, started, err)
		return JobReport{}, fmt.Errorf("%w: fetch from %s: %v", ErrDependencyUnavailable, source, err)
	}

	if err := s.transition(ctx, &job, syncjob.StateMatching, nil); err != nil {
		return JobReport{}, err
	}

	counts := s.matchRecords(ctx, records)
	job.Counts = counts

	final := syncjob.StateIdle
	if counts.Failed > 0 || counts.Queued > 0 {
		final = syncjob.StatePartial
	}
	s.finish(ctx, &job, final, started, nil)

	report := JobReport{
		Source:   source,
		DataType: dataType,
		State:    final,
		Counts:   counts,
		Duration: s.now().Sub(started),
	}
	s.logger.InfoContext(ctx, "sync job finished",
		"source", source,
		"dataType", dataType,
		"state", string(final),
		"processed", counts.Processed,
		"matched", counts.Matched,
		"created", counts.Created,
		"queued", counts.Queued,
		"failed", counts.Failed,
		"durationMs", report.Duration.Milliseconds(),
	)
	return report, nil
}

func (s *SyncOrchestratorService) matchRecords(ctx context.Context, records []sourcerecord.Record) syncjob.Counts {
	var counts syncjob.Counts
	for _, rec := range records {
		if ctx.Err() != nil {
			counts.Failed += len(records) - counts.Processed
			break
		}
		counts.Processed++

		var res Resolution
		var err error
		switch rec.Kind {
		case sourcerecord.KindGame:
			res, err = s.games.Resolve(ctx, rec)
		case sourcerecord.KindPlayer:
			res, err = s.players.Resolve(ctx, rec)
		default:
			err = fmt.Errorf("%w: record kind %q", ErrInvalidInput, rec.Kind)
		}

		switch {
		case err != nil:
			counts.Failed++
			s.logger.WarnContext(ctx, "record failed to resolve",
				"source", rec.Source,
				"sourceId", rec.SourceID,
				"kind", string(rec.Kind),
				"error", err,
			)
		case res.Created:
			counts.Created++
		case res.Status == mapping.StatusManualReview:
			counts.Queued++
		default:
			counts.Matched++
		}
	}
	return counts
}

func (s *SyncOrchestratorService) fetchWithRetry(ctx context.Context, adapter SourceAdapter, sport, dataType string) ([]sourcerecord.Record, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.FetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
			}
		}
		records, err := adapter.Fetch(ctx, sport, dataType)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTransient) {
			break
		}
		s.logger.WarnContext(ctx, "fetch retry",
			"source", adapter.Source(),
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

func (s *SyncOrchestratorService) transition(ctx context.Context, job *syncjob.Job, to syncjob.State, mutate func(*syncjob.Job)) error {
	if !job.State.CanTransition(to) {
		return fmt.Errorf("%w: sync job %s/%s cannot move from %s to %s", ErrConflict, job.Source, job.DataType, job.State, to)
	}
	job.State = to
	if mutate != nil {
		mutate(job)
	}
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.Upsert(ctx, *job); err != nil {
		return fmt.Errorf("persist sync job state %s: %w", to, err)
	}
	return nil
}

func (s *SyncOrchestratorService) finish(ctx context.Context, job *syncjob.Job, final syncjob.State, started time.Time, runErr error) {
	finished := s.now().UTC()
	err := s.transition(ctx, job, final, func(j *syncjob.Job) {
		j.FinishedAt = &finished
		j.DurationMs = finished.Sub(started).Milliseconds()
		if runErr != nil {
			j.LastError = runErr.Error()
		}
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "persist final sync job state",
			"source", job.Source,
			"dataType", job.DataType,
			"state", string(final),
			"error", err,
		)
	}
}

// ResyncEntity replays matching for one stored record. With DryRun the
// stored record and current mapping are returned untouched, so an operator
// can inspect what a replay would work from.
type ResyncInput struct {
	Sport    string
	Kind     sourcerecord.Kind
	Source   string
	SourceID string
	DryRun   bool
}

type ResyncResult struct {
	Record     sourcerecord.Record
	Resolution Resolution
	DryRun     bool
}

func (s *SyncOrchestratorService) ResyncEntity(ctx context.Context, in ResyncInput) (ResyncResult, error) {
	ctx, span := startSpan(ctx, "SyncOrchestratorService.ResyncEntity")
	defer span.End()

	if in.Sport == "" || in.Source == "" || in.SourceID == "" {
		return ResyncResult{}, fmt.Errorf("%w: sport, source and source id are required", ErrInvalidInput)
	}

	rec, found, err := s.games.sources.Get(ctx, in.Source, in.Sport, in.Kind, in.SourceID)
	if err != nil {
		return ResyncResult{}, fmt.Errorf("load source record: %w", err)
	}
	if !found {
		return ResyncResult{}, fmt.Errorf("%w: no stored record for %s/%s", ErrNotFound, in.Source, in.SourceID)
	}

	if in.DryRun {
		return ResyncResult{Record: rec, DryRun: true}, nil
	}

	var res Resolution
	switch in.Kind {
	case sourcerecord.KindGame:
		res, err = s.games.Resolve(ctx, rec)
	case sourcerecord.KindPlayer:
		res, err = s.players.Resolve(ctx, rec)
	default:
		return ResyncResult{}, fmt.Errorf("%w: kind %q", ErrInvalidInput, in.Kind)
	}
	if err != nil {
		return ResyncResult{}, err
	}
	return ResyncResult{Record: rec, Resolution: res}, nil
}
