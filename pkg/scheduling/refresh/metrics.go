package refresh

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/buzzhunt/buzzflow/pkg/metrics"
)

// MetricsScheduler wraps a Scheduler with Prometheus metrics collection.
type MetricsScheduler struct {
	Scheduler
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a refresh scheduler with metrics collection enabled.
// The scheduler's OnResult hook is chained to record run counts and failures.
func NewWithMetrics(cfg Config) (*MetricsScheduler, error) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	return newMetricsScheduler(cfg, registry)
}

// NewWithConfigAndMetrics creates a refresh scheduler recording into the
// given metrics registry.
func NewWithConfigAndMetrics(cfg Config, registry *metrics.Registry) (*MetricsScheduler, error) {
	return newMetricsScheduler(cfg, registry)
}

func newMetricsScheduler(cfg Config, registry *metrics.Registry) (*MetricsScheduler, error) {
	ms := &MetricsScheduler{
		registry: registry,
		enabled:  true,
	}

	userOnResult := cfg.OnResult
	cfg.OnResult = func(source Source, err error, duration time.Duration) {
		if ms.enabled {
			registry.RefreshRuns.WithLabelValues(source.Kind).Inc()
			if err != nil {
				registry.RefreshFailures.WithLabelValues(source.Kind).Inc()
			}
		}
		if userOnResult != nil {
			userOnResult(source, err, duration)
		}
	}

	inner, err := New(cfg)
	if err != nil {
		return nil, err
	}
	ms.Scheduler = inner
	return ms, nil
}

// Add schedules a source and updates the scheduled-sources gauge.
func (ms *MetricsScheduler) Add(source Source, interval time.Duration) error {
	err := ms.Scheduler.Add(source, interval)
	if err == nil && ms.enabled {
		ms.registry.RefreshSources.WithLabelValues(source.Kind).Inc()
	}
	return err
}

// AddCron schedules a cron source and updates the scheduled-sources gauge.
func (ms *MetricsScheduler) AddCron(source Source, cronExpr string) error {
	err := ms.Scheduler.AddCron(source, cronExpr)
	if err == nil && ms.enabled {
		ms.registry.RefreshSources.WithLabelValues(source.Kind).Inc()
	}
	return err
}

// Remove unschedules a source and updates the scheduled-sources gauge.
func (ms *MetricsScheduler) Remove(id string) bool {
	var kind string
	for _, entry := range ms.Scheduler.List() {
		if entry.Source.ID == id {
			kind = entry.Source.Kind
			break
		}
	}

	removed := ms.Scheduler.Remove(id)
	if removed && ms.enabled {
		ms.registry.RefreshSources.WithLabelValues(kind).Dec()
	}
	return removed
}

// Refresh runs a source immediately; its outcome is recorded via OnResult.
func (ms *MetricsScheduler) Refresh(ctx context.Context, id string) error {
	return ms.Scheduler.Refresh(ctx, id)
}

// EnableMetrics enables metrics collection.
func (ms *MetricsScheduler) EnableMetrics() {
	ms.enabled = true
}

// DisableMetrics disables metrics collection.
func (ms *MetricsScheduler) DisableMetrics() {
	ms.enabled = false
}

// MetricsEnabled returns whether metrics collection is enabled.
func (ms *MetricsScheduler) MetricsEnabled() bool {
	return ms.enabled
}

// Registry returns the metrics registry used by this scheduler.
func (ms *MetricsScheduler) Registry() *metrics.Registry {
	return ms.registry
}
