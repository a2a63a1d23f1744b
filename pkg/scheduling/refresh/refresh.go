package refresh

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
)

// Source identifies a tracked profile whose data is refreshed on a schedule.
type Source struct {
	// ID uniquely identifies the source within the scheduler
	ID string

	// Kind names the source type, e.g. "youtube" or "instagram"
	Kind string

	// Handle is the vendor-side identifier, e.g. a channel ID or username
	Handle string
}

// RefreshFunc fetches fresh data for a source. A non-nil error marks the run
// as failed; the source stays scheduled either way.
type RefreshFunc func(ctx context.Context, source Source) error

// Entry describes a scheduled source as reported by List.
type Entry struct {
	Source   Source
	NextRun  time.Time
	Interval time.Duration // Zero for cron-scheduled sources
	CronExpr string
	Added    time.Time
}

// Scheduler periodically refreshes tracked sources.
type Scheduler interface {
	// Add schedules a source for refresh at a fixed interval.
	// The first run happens after one interval.
	Add(source Source, interval time.Duration) error

	// AddCron schedules a source with a cron expression (with seconds field).
	AddCron(source Source, cronExpr string) error

	// Remove unschedules a source. Returns false if it was not scheduled.
	Remove(id string) bool

	// List returns scheduled sources ordered by next run time.
	List() []Entry

	// Refresh runs a scheduled source immediately, outside its schedule.
	Refresh(ctx context.Context, id string) error

	// Start begins the scheduling loop.
	Start() error

	// Stop halts scheduling and waits for in-flight refreshes.
	Stop() <-chan struct{}
}

// Config holds scheduler configuration.
type Config struct {
	// Refresh is called for each due source. Required.
	Refresh RefreshFunc

	// MaxConcurrent bounds simultaneous refreshes (default: 4)
	MaxConcurrent int

	// TickInterval is how often due sources are checked (default: 1s)
	TickInterval time.Duration

	// RefreshTimeout bounds a single refresh run (default: 2m)
	RefreshTimeout time.Duration

	// Jitter adds up to this much random delay to each interval run so
	// many sources added together do not hit a vendor at the same instant
	Jitter time.Duration

	// Location is the timezone for cron scheduling (default: time.Local)
	Location *time.Location

	// Logger receives refresh outcomes. If nil, logging is disabled.
	Logger *zap.Logger

	// OnResult, if set, is called after every refresh run
	OnResult func(source Source, err error, duration time.Duration)
}

type scheduledSource struct {
	source       Source
	nextRun      time.Time
	interval     time.Duration
	cronExpr     string
	cronSchedule cron.Schedule
	added        time.Time
	running      bool
}

type scheduler struct {
	refresh        RefreshFunc
	maxConcurrent  int
	tickInterval   time.Duration
	refreshTimeout time.Duration
	jitter         time.Duration
	location       *time.Location
	logger         *zap.Logger
	onResult       func(Source, error, time.Duration)
	cronParser     cron.Parser

	mu      sync.RWMutex
	sources map[string]*scheduledSource
	running bool
	ticker  *time.Ticker
	done    chan struct{}
	sem     chan struct{}
	wg      sync.WaitGroup
}

// New creates a refresh scheduler.
func New(cfg Config) (Scheduler, error) {
	if cfg.Refresh == nil {
		return nil, bferrors.NewValidationError("refresh", "refresh", nil, "cannot be nil").
			WithHint("provide a RefreshFunc")
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	refreshTimeout := cfg.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = 2 * time.Minute
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &scheduler{
		refresh:        cfg.Refresh,
		maxConcurrent:  maxConcurrent,
		tickInterval:   tickInterval,
		refreshTimeout: refreshTimeout,
		jitter:         cfg.Jitter,
		location:       location,
		logger:         logger,
		onResult:       cfg.OnResult,
		cronParser:     cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		sources:        make(map[string]*scheduledSource),
		done:           make(chan struct{}),
		sem:            make(chan struct{}, maxConcurrent),
	}, nil
}

func (s *scheduler) Add(source Source, interval time.Duration) error {
	if err := validation.ValidateNotEmpty("refresh", "source.id", source.ID); err != nil {
		return err
	}
	if interval <= 0 {
		return bferrors.NewValidationError("refresh", "interval", interval, "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[source.ID]; exists {
		return bferrors.NewValidationError("refresh", "source.id", source.ID, "already scheduled").
			WithHint("remove the existing source first")
	}

	now := time.Now()
	s.sources[source.ID] = &scheduledSource{
		source:   source,
		nextRun:  now.Add(s.withJitter(interval)),
		interval: interval,
		added:    now,
	}
	return nil
}

// withJitter spreads interval runs so sources added together do not all
// come due at the same instant.
func (s *scheduler) withJitter(interval time.Duration) time.Duration {
	if s.jitter <= 0 {
		return interval
	}
	return interval + time.Duration(rand.Int63n(int64(s.jitter)))
}

func (s *scheduler) AddCron(source Source, cronExpr string) error {
	if err := validation.ValidateNotEmpty("refresh", "source.id", source.ID); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("refresh", "cron", cronExpr); err != nil {
		return err
	}

	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return bferrors.NewValidationError("refresh", "cron", cronExpr, err.Error()).
			WithHint("expressions use six fields, seconds first")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[source.ID]; exists {
		return bferrors.NewValidationError("refresh", "source.id", source.ID, "already scheduled").
			WithHint("remove the existing source first")
	}

	now := time.Now()
	s.sources[source.ID] = &scheduledSource{
		source:       source,
		nextRun:      schedule.Next(now.In(s.location)),
		cronExpr:     cronExpr,
		cronSchedule: schedule,
		added:        now,
	}
	return nil
}

func (s *scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sources[id]; exists {
		delete(s.sources, id)
		return true
	}
	return false
}

func (s *scheduler) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.sources))
	for _, src := range s.sources {
		entries = append(entries, Entry{
			Source:   src.source,
			NextRun:  src.nextRun,
			Interval: src.interval,
			CronExpr: src.cronExpr,
			Added:    src.added,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].NextRun.Before(entries[j].NextRun)
	})

	return entries
}

func (s *scheduler) Refresh(ctx context.Context, id string) error {
	s.mu.RLock()
	src, exists := s.sources[id]
	s.mu.RUnlock()

	if !exists {
		return bferrors.NewOperationError("refresh", "Refresh", bferrors.ErrNotFound).
			WithContext("source " + id)
	}

	return s.runOnce(ctx, src.source)
}

func (s *scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return bferrors.NewOperationError("refresh", "Start", bferrors.ErrClosed).
			WithContext("scheduler already running")
	}

	s.running = true
	s.ticker = time.NewTicker(s.tickInterval)

	go s.run()

	s.logger.Info("refresh scheduler started",
		zap.Duration("tick_interval", s.tickInterval),
		zap.Int("max_concurrent", s.maxConcurrent))
	return nil
}

func (s *scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.done)
		if s.ticker != nil {
			s.ticker.Stop()
		}
	}
	s.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.wg.Wait()
		s.logger.Info("refresh scheduler stopped")
	}()
	return stopped
}

func (s *scheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.dispatchDue()
		}
	}
}

// dispatchDue finds due sources, advances their next run, and hands them to
// worker goroutines bounded by the semaphore.
func (s *scheduler) dispatchDue() {
	now := time.Now()

	s.mu.Lock()
	due := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		if src.running || now.Before(src.nextRun) {
			continue
		}
		due = append(due, src.source)
		src.running = true
		if src.cronSchedule != nil {
			src.nextRun = src.cronSchedule.Next(now.In(s.location))
		} else {
			src.nextRun = now.Add(s.withJitter(src.interval))
		}
	}
	s.mu.Unlock()

	for _, source := range due {
		s.wg.Add(1)
		go func(source Source) {
			defer s.wg.Done()

			select {
			case s.sem <- struct{}{}:
			case <-s.done:
				s.clearRunning(source.ID)
				return
			}
			defer func() { <-s.sem }()

			ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
			defer cancel()

			_ = s.runOnce(ctx, source)
			s.clearRunning(source.ID)
		}(source)
	}
}

func (s *scheduler) clearRunning(id string) {
	s.mu.Lock()
	if src, exists := s.sources[id]; exists {
		src.running = false
	}
	s.mu.Unlock()
}

// runOnce executes one refresh and reports the outcome.
func (s *scheduler) runOnce(ctx context.Context, source Source) error {
	start := time.Now()
	err := s.refresh(ctx, source)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("source refresh failed",
			zap.String("source_id", source.ID),
			zap.String("kind", source.Kind),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		s.logger.Debug("source refreshed",
			zap.String("source_id", source.ID),
			zap.String("kind", source.Kind),
			zap.Duration("duration", duration))
	}

	if s.onResult != nil {
		s.onResult(source, err, duration)
	}
	return err
}
