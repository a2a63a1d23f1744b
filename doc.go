/*
Package buzzflow provides the data-collection core for social profile
tracking: adaptive rate limiting, vendor quota accounting, scheduled
refreshes, and API clients for the tracked platforms.

Rate Limiting (pkg/ratelimit):
  - adaptive: Self-tuning request pacing with retries and a circuit breaker
  - quota: Redis-backed daily unit budgets shared across instances

Scheduling (pkg/scheduling):
  - refresh: Interval and cron-based profile refresh scheduling

Collection (pkg/fetch):
  - youtube: YouTube Data API v3 channels and uploads
  - instagram: Instagram profile and post scraping
  - assemblyai: Audio transcription

Support:
  - jobs: In-memory analysis job tracking with TTL pruning
  - ids: UUID and short base62 identifier minting
  - metrics: Prometheus instrumentation for every component

Example usage:

	import (
		"github.com/buzzhunt/buzzflow/pkg/fetch/youtube"
		"github.com/buzzhunt/buzzflow/pkg/ratelimit/adaptive"
	)

	limiter := adaptive.New() // 1 RPS initial, self-tuning
	defer limiter.Close()

	yt, _ := youtube.New(youtube.Config{APIKey: key, Limiter: limiter})
	ch, _ := yt.ResolveChannel(ctx, "@mkbhd")
*/
package buzzflow
