package adaptive

import (
	"context"
	"time"

	"github.com/buzzhunt/buzzflow/pkg/common/errors"
	"github.com/buzzhunt/buzzflow/pkg/common/validation"
)

// Task is a unit of work executed through the limiter. It returns the value
// to hand back to the caller or an error. Errors classified as retryable
// (errors.IsRetryable) are retried with exponential backoff before being
// surfaced.
type Task func(ctx context.Context) (interface{}, error)

// Limiter serializes and paces calls to an external rate-limited dependency.
// It shrinks the dispatch rate under observed failure, grows it back under
// sustained fast successes, and stops dispatching entirely for a cooldown
// period after repeated consecutive failures.
type Limiter interface {
	// Execute enqueues the task and blocks until the limiter has dispatched
	// it (including any retries) and a final outcome is available. The
	// returned value and error are the task's own outcome; retries are
	// invisible to the caller except as added latency. Execute never
	// panics on task failure; a canceled context releases the caller early
	// with ctx.Err() while the entry is discarded on its dispatch turn.
	Execute(ctx context.Context, task Task) (interface{}, error)

	// Stats returns a read-only snapshot of the limiter state. It has no
	// side effects.
	Stats() Stats

	// Reset returns all state to construction-time defaults: rate restored
	// to InitialRate, stats zeroed, circuit breaker closed. Queued tasks
	// that have not been dispatched are rejected with ErrLimiterReset; a
	// task already in flight completes normally.
	Reset()

	// Close stops the dispatch loop and rejects queued tasks with
	// ErrLimiterClosed. Close is idempotent.
	Close() error
}

// Stats is a point-in-time snapshot of limiter state. Counters are recorded
// per dispatch attempt: a task retried twice before succeeding contributes
// three total requests, two failures, and one success.
type Stats struct {
	TotalRequests       int64
	SuccessfulRequests  int64
	FailedRequests      int64
	CurrentRate         float64
	AverageResponseTime time.Duration
	QueueLength         int
	CircuitOpen         bool
}

// Clock provides the current time and timed waits. It can be mocked for
// deterministic testing of pacing, backoff, and cooldown behavior.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// After waits for the duration to elapse on the system clock.
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Config holds configuration options for creating a new Limiter.
// The zero value of every field selects its default.
type Config struct {
	// InitialRate is the starting dispatch rate in requests per second.
	// Default 1.
	InitialRate float64

	// MinRate is the floor the rate backs off to under failure. Default 0.5.
	MinRate float64

	// MaxRate is the ceiling the rate recovers to under success. Default 10.
	MaxRate float64

	// BackoffMultiplier divides the rate on every failure. Default 2.
	BackoffMultiplier float64

	// RecoveryRate multiplies the rate after a fast success. Default 1.2.
	RecoveryRate float64

	// FastResponse is the response-time threshold below which a success
	// grows the rate. Default 500ms.
	FastResponse time.Duration

	// MaxRetries bounds automatic retries of retryable failures per task.
	// Default 3.
	MaxRetries int

	// CircuitBreakerThreshold is the number of consecutive failures that
	// opens the breaker. Default 5.
	CircuitBreakerThreshold int

	// CircuitBreakerCooldown is how long the breaker stays open before it
	// self-closes on the next dispatch attempt. Default 30s.
	CircuitBreakerCooldown time.Duration

	// CircuitBreakerPoll caps how long the dispatch loop sleeps between
	// cooldown checks while the breaker is open. Default 1s.
	CircuitBreakerPoll time.Duration

	// Clock provides time. If nil, SystemClock is used.
	Clock Clock
}

// sampleWindow is the number of recent response-time samples retained for
// the average reported by Stats.
const sampleWindow = 100

func (c Config) withDefaults() Config {
	if c.InitialRate <= 0 {
		c.InitialRate = 1
	}
	if c.MinRate <= 0 {
		c.MinRate = 0.5
	}
	if c.MaxRate <= 0 {
		c.MaxRate = 10
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2
	}
	if c.RecoveryRate <= 0 {
		c.RecoveryRate = 1.2
	}
	if c.FastResponse <= 0 {
		c.FastResponse = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.CircuitBreakerCooldown <= 0 {
		c.CircuitBreakerCooldown = 30 * time.Second
	}
	if c.CircuitBreakerPoll <= 0 {
		c.CircuitBreakerPoll = time.Second
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}

// New creates an adaptive limiter with default configuration.
func New() Limiter {
	return NewWithConfig(Config{})
}

// NewWithConfig creates an adaptive limiter with the given configuration.
// Zero-valued fields take their defaults.
func NewWithConfig(config Config) Limiter {
	limiter, err := NewSafe(config)
	if err != nil {
		panic(err)
	}
	return limiter
}

// NewSafe creates an adaptive limiter with validation that returns an error
// instead of panicking. This is the recommended way to create limiters for
// production use.
func NewSafe(config Config) (Limiter, error) {
	if err := validation.ValidateNonNegative("adaptive", "initialRate", config.InitialRate); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("adaptive", "minRate", config.MinRate); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegative("adaptive", "maxRate", config.MaxRate); err != nil {
		return nil, err
	}

	config = config.withDefaults()

	if err := validation.ValidateRange("adaptive", "minRate", "maxRate", config.MinRate, config.MaxRate); err != nil {
		return nil, err
	}
	if config.InitialRate < config.MinRate || config.InitialRate > config.MaxRate {
		return nil, errors.NewValidationError("adaptive", "initialRate", config.InitialRate,
			"must lie within [minRate, maxRate]").
			WithHint("adjust initialRate or widen the rate bounds")
	}
	if config.BackoffMultiplier <= 1 {
		return nil, errors.NewValidationError("adaptive", "backoffMultiplier", config.BackoffMultiplier,
			"must be greater than 1").
			WithHint("the rate is divided by this value on failure")
	}
	if config.RecoveryRate <= 1 {
		return nil, errors.NewValidationError("adaptive", "recoveryRate", config.RecoveryRate,
			"must be greater than 1").
			WithHint("the rate is multiplied by this value after a fast success")
	}

	al := &adaptiveLimiter{
		config:   config,
		clock:    config.Clock,
		rate:     config.InitialRate,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go al.loop()
	return al, nil
}
