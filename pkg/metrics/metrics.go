// Package metrics provides Prometheus instrumentation for buzzflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for buzzflow components.
type Registry struct {
	// Adaptive Rate Limiting Metrics
	LimiterRequests     *prometheus.CounterVec
	LimiterSuccesses    *prometheus.CounterVec
	LimiterFailures     *prometheus.CounterVec
	LimiterRetries      *prometheus.CounterVec
	LimiterResponseTime *prometheus.HistogramVec
	LimiterCurrentRate  *prometheus.GaugeVec
	LimiterQueueLength  *prometheus.GaugeVec
	LimiterCircuitOpen  *prometheus.GaugeVec

	// Vendor Quota Metrics
	QuotaSpent     *prometheus.CounterVec
	QuotaDenied    *prometheus.CounterVec
	QuotaRemaining *prometheus.GaugeVec

	// Job Store Metrics
	JobsCreated   *prometheus.CounterVec
	JobsCompleted *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsActive    *prometheus.GaugeVec
	JobsPruned    *prometheus.CounterVec

	// Source Refresh Metrics
	RefreshRuns     *prometheus.CounterVec
	RefreshFailures *prometheus.CounterVec
	RefreshSources  *prometheus.GaugeVec

	// Vendor Fetch Metrics
	FetchRequests *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

// DefaultRegistry is the default metrics registry used by buzzflow components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Adaptive Rate Limiting Metrics
		LimiterRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "requests_total",
				Help:      "Total number of dispatched request attempts",
			},
			[]string{"limiter_name"},
		),

		LimiterSuccesses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "successes_total",
				Help:      "Total number of successful request attempts",
			},
			[]string{"limiter_name"},
		),

		LimiterFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "failures_total",
				Help:      "Total number of failed request attempts",
			},
			[]string{"limiter_name"},
		),

		LimiterRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "retries_total",
				Help:      "Total number of retry attempts after transient failures",
			},
			[]string{"limiter_name"},
		),

		LimiterResponseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "response_duration_seconds",
				Help:      "Observed response time of dispatched requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"limiter_name"},
		),

		LimiterCurrentRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "current_rate",
				Help:      "Current adaptive dispatch rate in requests per second",
			},
			[]string{"limiter_name"},
		),

		LimiterQueueLength: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "queue_length",
				Help:      "Number of tasks waiting for dispatch",
			},
			[]string{"limiter_name"},
		),

		LimiterCircuitOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "limiter",
				Name:      "circuit_open",
				Help:      "Whether the circuit breaker is currently open (1) or closed (0)",
			},
			[]string{"limiter_name"},
		),

		// Vendor Quota Metrics
		QuotaSpent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "quota",
				Name:      "units_spent_total",
				Help:      "Total vendor API quota units spent",
			},
			[]string{"quota_name"},
		),

		QuotaDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "quota",
				Name:      "denied_total",
				Help:      "Total requests denied because the quota window was spent",
			},
			[]string{"quota_name"},
		),

		QuotaRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "quota",
				Name:      "units_remaining",
				Help:      "Vendor API quota units remaining in the current window",
			},
			[]string{"quota_name"},
		),

		// Job Store Metrics
		JobsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "jobs",
				Name:      "created_total",
				Help:      "Total number of analysis jobs created",
			},
			[]string{"kind"},
		),

		JobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "jobs",
				Name:      "completed_total",
				Help:      "Total number of analysis jobs completed successfully",
			},
			[]string{"kind"},
		),

		JobsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "jobs",
				Name:      "failed_total",
				Help:      "Total number of analysis jobs that failed",
			},
			[]string{"kind"},
		),

		JobsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "jobs",
				Name:      "active",
				Help:      "Number of jobs currently pending or running",
			},
			[]string{"kind"},
		),

		JobsPruned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "jobs",
				Name:      "pruned_total",
				Help:      "Total number of finished jobs removed by TTL pruning",
			},
			[]string{"kind"},
		),

		// Source Refresh Metrics
		RefreshRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "refresh",
				Name:      "runs_total",
				Help:      "Total number of source refresh executions",
			},
			[]string{"source_kind"},
		),

		RefreshFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "refresh",
				Name:      "failures_total",
				Help:      "Total number of failed source refresh executions",
			},
			[]string{"source_kind"},
		),

		RefreshSources: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "buzzflow",
				Subsystem: "refresh",
				Name:      "sources",
				Help:      "Number of sources currently scheduled for refresh",
			},
			[]string{"source_kind"},
		),

		// Vendor Fetch Metrics
		FetchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Total number of vendor API requests",
			},
			[]string{"vendor", "operation"},
		),

		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "buzzflow",
				Subsystem: "fetch",
				Name:      "errors_total",
				Help:      "Total number of vendor API request errors",
			},
			[]string{"vendor", "operation"},
		),

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "buzzflow",
				Subsystem: "fetch",
				Name:      "request_duration_seconds",
				Help:      "Vendor API request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"vendor", "operation"},
		),
	}
}
