package jobs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/buzzhunt/buzzflow/pkg/metrics"
)

// MetricsStore wraps a Store with Prometheus metrics collection.
type MetricsStore struct {
	Store
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a job store with metrics collection enabled.
func NewWithMetrics(cfg Config) (*MetricsStore, error) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	return NewWithConfigAndMetrics(cfg, registry)
}

// NewWithConfigAndMetrics creates a job store recording into the given
// metrics registry.
func NewWithConfigAndMetrics(cfg Config, registry *metrics.Registry) (*MetricsStore, error) {
	inner, err := NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &MetricsStore{
		Store:    inner,
		registry: registry,
		enabled:  true,
	}, nil
}

// Create registers a job and updates the created counter and active gauge.
func (ms *MetricsStore) Create(ctx context.Context, kind string) (*Job, error) {
	job, err := ms.Store.Create(ctx, kind)
	if err == nil && ms.enabled {
		ms.registry.JobsCreated.WithLabelValues(kind).Inc()
		ms.registry.JobsActive.WithLabelValues(kind).Inc()
	}
	return job, err
}

// Complete finishes a job and updates the completed counter and active gauge.
func (ms *MetricsStore) Complete(id string, result interface{}) error {
	kind := ms.kindOf(id)
	err := ms.Store.Complete(id, result)
	if err == nil && ms.enabled {
		ms.registry.JobsCompleted.WithLabelValues(kind).Inc()
		ms.registry.JobsActive.WithLabelValues(kind).Dec()
	}
	return err
}

// Fail finishes a job and updates the failed counter and active gauge.
func (ms *MetricsStore) Fail(id string, cause error) error {
	kind := ms.kindOf(id)
	err := ms.Store.Fail(id, cause)
	if err == nil && ms.enabled {
		ms.registry.JobsFailed.WithLabelValues(kind).Inc()
		ms.registry.JobsActive.WithLabelValues(kind).Dec()
	}
	return err
}

// PruneExpired prunes finished jobs and updates the pruned counter.
func (ms *MetricsStore) PruneExpired() int {
	pruned := ms.Store.PruneExpired()
	if pruned > 0 && ms.enabled {
		ms.registry.JobsPruned.WithLabelValues("all").Add(float64(pruned))
	}
	return pruned
}

func (ms *MetricsStore) kindOf(id string) string {
	if job, err := ms.Store.Get(id); err == nil {
		return job.Kind
	}
	return "unknown"
}

// EnableMetrics enables metrics collection.
func (ms *MetricsStore) EnableMetrics() {
	ms.enabled = true
}

// DisableMetrics disables metrics collection.
func (ms *MetricsStore) DisableMetrics() {
	ms.enabled = false
}

// MetricsEnabled returns whether metrics collection is enabled.
func (ms *MetricsStore) MetricsEnabled() bool {
	return ms.enabled
}

// Registry returns the metrics registry used by this store.
func (ms *MetricsStore) Registry() *metrics.Registry {
	return ms.registry
}
