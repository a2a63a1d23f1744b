package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
	"github.com/buzzhunt/buzzflow/pkg/ids"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// terminal reports whether a job in this status will never change again.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is a tracked unit of background work, such as a profile analysis run.
type Job struct {
	ID       string
	Kind     string
	Status   Status
	Progress int
	Message  string
	Result   interface{}
	Error    string

	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store tracks analysis jobs through their lifecycle.
type Store interface {
	// Create registers a new pending job of the given kind.
	Create(ctx context.Context, kind string) (*Job, error)

	// Start moves a pending job to running.
	Start(id string) error

	// Progress updates a running job's progress (0 to 100) and message.
	Progress(id string, percent int, message string) error

	// Complete moves a running job to completed with its result.
	Complete(id string, result interface{}) error

	// Fail moves a pending or running job to failed.
	Fail(id string, cause error) error

	// Get returns a snapshot of a job.
	Get(id string) (*Job, error)

	// List returns snapshots of all jobs, newest first.
	List() []*Job

	// Delete removes a job. Returns false if it does not exist.
	Delete(id string) bool

	// PruneExpired removes finished jobs older than the retention TTL.
	// Returns the number of jobs removed.
	PruneExpired() int
}

// Clock provides the current time. It can be mocked for testing retention.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds job store configuration.
type Config struct {
	// TTL is how long finished jobs are retained (default: 1h)
	TTL time.Duration

	// MaxJobs bounds the number of stored jobs (default: 10000)
	MaxJobs int

	// IDLength is the length of minted job IDs (default: ids.DefaultShortLength)
	IDLength int

	// Clock provides the current time. If nil, system time is used.
	Clock Clock

	// Logger receives lifecycle events. If nil, logging is disabled.
	Logger *zap.Logger
}

type store struct {
	ttl      time.Duration
	maxJobs  int
	idLength int
	clock    Clock
	logger   *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// New creates an in-memory job store with default configuration.
func New() Store {
	s, _ := NewWithConfig(Config{})
	return s
}

// NewWithConfig creates an in-memory job store with custom configuration.
func NewWithConfig(cfg Config) (Store, error) {
	if cfg.TTL < 0 {
		return nil, bferrors.NewValidationError("jobs", "ttl", cfg.TTL, "cannot be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	if cfg.MaxJobs < 0 {
		return nil, bferrors.NewValidationError("jobs", "max_jobs", cfg.MaxJobs, "cannot be negative")
	}
	if cfg.MaxJobs == 0 {
		cfg.MaxJobs = 10000
	}
	if cfg.IDLength == 0 {
		cfg.IDLength = ids.DefaultShortLength
	}

	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &store{
		ttl:      cfg.TTL,
		maxJobs:  cfg.MaxJobs,
		idLength: cfg.IDLength,
		clock:    clock,
		logger:   logger,
		jobs:     make(map[string]*Job),
	}, nil
}

func (s *store) Create(ctx context.Context, kind string) (*Job, error) {
	if err := validation.ValidateNotEmpty("jobs", "kind", kind); err != nil {
		return nil, err
	}

	id, err := ids.Mint(ctx, s.idLength, func(ctx context.Context, id string) (bool, error) {
		s.mu.RLock()
		_, taken := s.jobs[id]
		s.mu.RUnlock()
		return taken, nil
	})
	if err != nil {
		return nil, bferrors.NewOperationError("jobs", "Create", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.jobs) >= s.maxJobs {
		return nil, bferrors.NewOperationError("jobs", "Create", bferrors.ErrCapacityExceeded).
			WithContext("prune finished jobs or raise MaxJobs")
	}

	job := &Job{
		ID:        id,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: s.clock.Now(),
	}
	s.jobs[id] = job

	s.logger.Debug("job created",
		zap.String("job_id", id),
		zap.String("kind", kind))

	return snapshot(job), nil
}

func (s *store) Start(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(id)
	if err != nil {
		return err
	}
	if job.Status != StatusPending {
		return transitionError(id, job.Status, StatusRunning)
	}

	job.Status = StatusRunning
	job.StartedAt = s.clock.Now()
	return nil
}

func (s *store) Progress(id string, percent int, message string) error {
	if percent < 0 || percent > 100 {
		return bferrors.NewValidationError("jobs", "percent", percent, "must be between 0 and 100")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(id)
	if err != nil {
		return err
	}
	if job.Status != StatusRunning {
		return transitionError(id, job.Status, StatusRunning)
	}

	job.Progress = percent
	job.Message = message
	return nil
}

func (s *store) Complete(id string, result interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(id)
	if err != nil {
		return err
	}
	if job.Status != StatusRunning {
		return transitionError(id, job.Status, StatusCompleted)
	}

	job.Status = StatusCompleted
	job.Progress = 100
	job.Result = result
	job.FinishedAt = s.clock.Now()

	s.logger.Debug("job completed",
		zap.String("job_id", id),
		zap.String("kind", job.Kind),
		zap.Duration("duration", job.FinishedAt.Sub(job.CreatedAt)))
	return nil
}

func (s *store) Fail(id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.getLocked(id)
	if err != nil {
		return err
	}
	if job.Status.terminal() {
		return transitionError(id, job.Status, StatusFailed)
	}

	job.Status = StatusFailed
	if cause != nil {
		job.Error = cause.Error()
	}
	job.FinishedAt = s.clock.Now()

	s.logger.Warn("job failed",
		zap.String("job_id", id),
		zap.String("kind", job.Kind),
		zap.String("error", job.Error))
	return nil
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return snapshot(job), nil
}

func (s *store) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, snapshot(job))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		delete(s.jobs, id)
		return true
	}
	return false
}

func (s *store) PruneExpired() int {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, job := range s.jobs {
		if job.Status.terminal() && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			pruned++
		}
	}

	if pruned > 0 {
		s.logger.Debug("pruned finished jobs", zap.Int("count", pruned))
	}
	return pruned
}

// getLocked looks a job up under the lock held by the caller.
func (s *store) getLocked(id string) (*Job, error) {
	job, exists := s.jobs[id]
	if !exists {
		return nil, bferrors.NewOperationError("jobs", "Get", bferrors.ErrNotFound).
			WithContext("job " + id)
	}
	return job, nil
}

// snapshot copies a job so callers cannot mutate stored state.
func snapshot(job *Job) *Job {
	copied := *job
	return &copied
}

func transitionError(id string, from, to Status) error {
	return bferrors.NewValidationError("jobs", "status", from, "cannot transition to "+string(to)).
		WithHint("job " + id)
}
