// Package metrics provides Prometheus instrumentation for buzzflow components.
//
// This package enables monitoring and observability for buzzflow's adaptive
// rate limiting, vendor quota accounting, job tracking, and fetch components
// through Prometheus metrics.
//
// # Quick Start
//
// Enable metrics by using the metrics-enabled constructors:
//
//	// Adaptive limiter with metrics
//	limiter := adaptive.NewWithMetrics(adaptive.Config{}, "youtube_api")
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	config := metrics.Config{
//		Enabled:  true,
//		Registry: registry,
//	}
//
//	limiter := adaptive.NewWithConfigAndMetrics(
//		adaptive.Config{InitialRate: 2},
//		"instagram_api",
//		config,
//	)
//
// # Available Metrics
//
// ## Adaptive Limiter Metrics
//
//   - buzzflow_limiter_requests_total: Total dispatched request attempts
//   - buzzflow_limiter_successes_total: Total successful request attempts
//   - buzzflow_limiter_failures_total: Total failed request attempts
//   - buzzflow_limiter_retries_total: Total retry attempts after transient failures
//   - buzzflow_limiter_response_duration_seconds: Observed response times
//   - buzzflow_limiter_current_rate: Current adaptive dispatch rate (req/s)
//   - buzzflow_limiter_queue_length: Tasks waiting for dispatch
//   - buzzflow_limiter_circuit_open: Circuit breaker state (1 open, 0 closed)
//
// ## Quota Metrics
//
//   - buzzflow_quota_units_spent_total: Vendor API quota units spent
//   - buzzflow_quota_denied_total: Requests denied by an exhausted window
//   - buzzflow_quota_units_remaining: Units remaining in the current window
//
// ## Job Store Metrics
//
//   - buzzflow_jobs_created_total / completed_total / failed_total / pruned_total
//   - buzzflow_jobs_active: Jobs currently pending or running
//
// ## Refresh and Fetch Metrics
//
//   - buzzflow_refresh_runs_total / failures_total, buzzflow_refresh_sources
//   - buzzflow_fetch_requests_total / errors_total, request_duration_seconds
//
// # Labels
//
//   - limiter_name / quota_name: user-provided instance names
//   - kind / source_kind: job and source kinds ("youtube", "instagram", ...)
//   - vendor, operation: fetch client labels (e.g. "youtube", "videos.list")
package metrics
