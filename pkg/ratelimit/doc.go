/*
Package ratelimit provides rate limiting primitives for the BuzzHunt backend.

This package offers two limiter types:

  - adaptive: Self-tuning limiter with circuit breaker semantics for pacing
    calls to vendor APIs
  - quota: Redis-backed fixed-window accounting for vendor API unit budgets

The adaptive limiter paces a single process's calls and reacts to observed
latency and failures:

	limiter := adaptive.New()
	defer limiter.Close()

	value, err := limiter.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return client.FetchChannel(ctx, id)
	})

The quota limiter coordinates a shared unit budget (such as the YouTube Data
API's daily quota) across application instances:

	q, err := quota.New(quota.Config{Redis: rdb, Key: "quota:youtube", Limit: 10000})
	if q.Allow(ctx, 100) {
		// Spend 100 units on a search call
	}

Both limiters expose statistics snapshots and are safe for concurrent use.
*/
package ratelimit
