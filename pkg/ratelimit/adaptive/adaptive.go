package adaptive

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	bferrors "github.com/buzzhunt/buzzflow/pkg/common/errors"
)

// outcome is the final result delivered to a waiting caller.
type outcome struct {
	value interface{}
	err   error
}

// entry is a queued task. The result channel is buffered so the dispatch
// loop never blocks on delivery, and a retried task keeps its original
// entry, preserving the caller's pending result across attempts.
type entry struct {
	ctx     context.Context
	task    Task
	retries int
	result  chan outcome
}

// adaptiveLimiter implements Limiter with a single dispatch goroutine that
// drains a FIFO queue. Retried tasks are requeued at the front, ahead of
// tasks that arrived later but were never dispatched. All state mutation
// happens under mu; the mutex is released while a task runs so callers can
// enqueue and read stats concurrently.
type adaptiveLimiter struct {
	config Config
	clock  Clock

	mu                  sync.Mutex
	queue               []*entry
	rate                float64
	lastDispatch        time.Time
	consecutiveFailures int
	openedAt            *time.Time
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	samples             []time.Duration
	sampleIdx           int
	closed              bool

	wake     chan struct{}
	done     chan struct{}
	loopDone chan struct{}
}

// Execute implements Limiter.
func (al *adaptiveLimiter) Execute(ctx context.Context, task Task) (interface{}, error) {
	if task == nil {
		return nil, bferrors.NewValidationError("adaptive", "task", nil, "cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e := &entry{
		ctx:    ctx,
		task:   task,
		result: make(chan outcome, 1),
	}

	al.mu.Lock()
	if al.closed {
		al.mu.Unlock()
		return nil, bferrors.ErrLimiterClosed
	}
	al.queue = append(al.queue, e)
	al.mu.Unlock()
	al.signal()

	select {
	case out := <-e.result:
		return out.value, out.err
	case <-ctx.Done():
		// The caller is released, the entry is discarded on its dispatch
		// turn without running.
		return nil, ctx.Err()
	}
}

// Stats implements Limiter.
func (al *adaptiveLimiter) Stats() Stats {
	al.mu.Lock()
	defer al.mu.Unlock()

	var avg time.Duration
	if len(al.samples) > 0 {
		var sum time.Duration
		for _, d := range al.samples {
			sum += d
		}
		avg = sum / time.Duration(len(al.samples))
	}

	open := al.openedAt != nil &&
		al.clock.Now().Sub(*al.openedAt) < al.config.CircuitBreakerCooldown

	return Stats{
		TotalRequests:       al.totalRequests,
		SuccessfulRequests:  al.successfulRequests,
		FailedRequests:      al.failedRequests,
		CurrentRate:         al.rate,
		AverageResponseTime: avg,
		QueueLength:         len(al.queue),
		CircuitOpen:         open,
	}
}

// Reset implements Limiter.
func (al *adaptiveLimiter) Reset() {
	al.mu.Lock()
	defer al.mu.Unlock()

	al.rejectQueueLocked(bferrors.ErrLimiterReset)
	al.rate = al.config.InitialRate
	al.lastDispatch = time.Time{}
	al.consecutiveFailures = 0
	al.openedAt = nil
	al.totalRequests = 0
	al.successfulRequests = 0
	al.failedRequests = 0
	al.samples = al.samples[:0]
	al.sampleIdx = 0
}

// Close implements Limiter.
func (al *adaptiveLimiter) Close() error {
	al.mu.Lock()
	if al.closed {
		al.mu.Unlock()
		return nil
	}
	al.closed = true
	al.rejectQueueLocked(bferrors.ErrLimiterClosed)
	al.mu.Unlock()

	close(al.done)
	<-al.loopDone
	return nil
}

// loop is the single dispatch goroutine. One task is ever in flight at a
// time; suspension points (pacing delay, breaker cooldown poll, retry
// backoff) all go through the injected clock.
func (al *adaptiveLimiter) loop() {
	defer close(al.loopDone)

	for {
		al.mu.Lock()
		if al.closed {
			al.rejectQueueLocked(bferrors.ErrLimiterClosed)
			al.mu.Unlock()
			return
		}

		if len(al.queue) == 0 {
			al.mu.Unlock()
			select {
			case <-al.wake:
			case <-al.done:
			}
			continue
		}

		now := al.clock.Now()

		// Breaker check is lazy: the first dispatch attempt after the
		// cooldown elapses closes it and clears the failure streak.
		if al.openedAt != nil {
			elapsed := now.Sub(*al.openedAt)
			if elapsed < al.config.CircuitBreakerCooldown {
				wait := al.config.CircuitBreakerCooldown - elapsed
				if wait > al.config.CircuitBreakerPoll {
					wait = al.config.CircuitBreakerPoll
				}
				al.mu.Unlock()
				al.sleep(wait)
				continue
			}
			al.openedAt = nil
			al.consecutiveFailures = 0
		}

		// Pacing: at most one dispatch per 1/rate seconds.
		if !al.lastDispatch.IsZero() {
			interval := time.Duration(float64(time.Second) / al.rate)
			if elapsed := now.Sub(al.lastDispatch); elapsed < interval {
				al.mu.Unlock()
				al.sleep(interval - elapsed)
				continue
			}
		}

		e := al.queue[0]
		al.queue = al.queue[1:]

		if e.ctx.Err() != nil {
			// Caller already gave up; don't burn a dispatch slot.
			e.result <- outcome{err: e.ctx.Err()}
			al.mu.Unlock()
			continue
		}

		al.lastDispatch = now
		al.totalRequests++
		al.mu.Unlock()

		start := al.clock.Now()
		value, err := al.run(e)
		elapsed := al.clock.Now().Sub(start)

		al.mu.Lock()
		al.recordSampleLocked(elapsed)

		if err == nil {
			al.consecutiveFailures = 0
			al.successfulRequests++
			if elapsed < al.config.FastResponse && al.rate < al.config.MaxRate {
				al.rate = math.Min(al.rate*al.config.RecoveryRate, al.config.MaxRate)
			}
			al.mu.Unlock()
			e.result <- outcome{value: value}
			continue
		}

		al.consecutiveFailures++
		al.failedRequests++
		al.rate = math.Max(al.rate/al.config.BackoffMultiplier, al.config.MinRate)
		if al.consecutiveFailures >= al.config.CircuitBreakerThreshold && al.openedAt == nil {
			opened := al.clock.Now()
			al.openedAt = &opened
		}

		if bferrors.IsRetryable(err) && e.retries < al.config.MaxRetries {
			al.mu.Unlock()
			al.sleep(time.Duration(1<<uint(e.retries)) * time.Second)

			al.mu.Lock()
			if al.closed {
				al.mu.Unlock()
				e.result <- outcome{err: bferrors.ErrLimiterClosed}
				continue
			}
			e.retries++
			al.queue = append([]*entry{e}, al.queue...)
			al.mu.Unlock()
			continue
		}

		al.mu.Unlock()
		e.result <- outcome{err: err}
	}
}

// run executes a task, converting panics into errors so a misbehaving task
// cannot kill the dispatch loop.
func (al *adaptiveLimiter) run(e *entry) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()
	return e.task(e.ctx)
}

// recordSampleLocked appends to the bounded response-time ring, dropping the
// oldest sample beyond the window. Every dispatched attempt records a sample
// regardless of outcome.
func (al *adaptiveLimiter) recordSampleLocked(d time.Duration) {
	if len(al.samples) < sampleWindow {
		al.samples = append(al.samples, d)
		return
	}
	al.samples[al.sampleIdx] = d
	al.sampleIdx = (al.sampleIdx + 1) % sampleWindow
}

// rejectQueueLocked fails every queued, not-yet-dispatched task with the
// given error. Result channels are buffered so this never blocks.
func (al *adaptiveLimiter) rejectQueueLocked(err error) {
	for _, e := range al.queue {
		e.result <- outcome{err: err}
	}
	al.queue = nil
}

func (al *adaptiveLimiter) signal() {
	select {
	case al.wake <- struct{}{}:
	default:
	}
}

// sleep waits for d on the limiter's clock, returning early on Close.
func (al *adaptiveLimiter) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-al.clock.After(d):
	case <-al.done:
	}
}
