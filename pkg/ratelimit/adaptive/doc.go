/*
Package adaptive provides an adaptive rate limiter with circuit breaker
semantics for pacing calls to vendor APIs.

Unlike a token bucket, which enforces a fixed configured rate, the adaptive
limiter observes the outcome of every call and adjusts its own dispatch
rate: failures halve the rate (down to MinRate), fast successes grow it back
(up to MaxRate), and a run of consecutive failures opens a circuit breaker
that pauses dispatch entirely for a cooldown period.

Basic usage:

	limiter := adaptive.New()
	defer limiter.Close()

	value, err := limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return client.FetchChannel(ctx, id)
	})

Execution Model:

A single dispatch goroutine drains a FIFO queue, one task in flight at a
time. Concurrent callers contend only on queue insertion order. A task that
fails with a retryable error is requeued at the front of the queue, ahead of
tasks that arrived later, after an exponential backoff of 2^attempt seconds.
Only after retries are exhausted (or the failure is terminal) does the
caller observe the error.

Retry Classification:

Failures are retried when errors.IsRetryable reports true: transient network
errors (timeout, connection reset, connection refused, DNS failure) or an
HTTP 429/503 carried by errors.StatusError. Everything else propagates
immediately without consuming a retry.

Circuit Breaker:

After CircuitBreakerThreshold consecutive failures the breaker opens and no
further tasks are dispatched; queued tasks wait rather than failing. The
breaker self-closes lazily on the first dispatch attempt after
CircuitBreakerCooldown elapses. Tasks already past dispatch when the breaker
opens complete normally.

Configuration:

	limiter := adaptive.NewWithConfig(adaptive.Config{
		InitialRate:             2,    // req/s
		MinRate:                 0.5,
		MaxRate:                 10,
		BackoffMultiplier:       2,
		RecoveryRate:            1.2,
		MaxRetries:              3,
		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  30 * time.Second,
	})

State inspection:

	s := limiter.Stats()
	// s.CurrentRate, s.QueueLength, s.CircuitOpen,
	// s.TotalRequests, s.AverageResponseTime, ...

Stats counters are per attempt: a task retried twice before succeeding
records three total requests, two failures, and one success.

Thread Safety:

All operations are safe for concurrent use. State mutation happens only
inside the dispatch loop and under a single mutex; the Clock is injectable
so pacing, backoff, and cooldown can be tested without real waits.
*/
package adaptive
