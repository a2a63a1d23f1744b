package adaptive

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/buzzhunt/buzzflow/pkg/metrics"
)

// MetricsLimiter wraps a Limiter with Prometheus metrics collection.
type MetricsLimiter struct {
	limiter  Limiter
	name     string
	registry *metrics.Registry
	enabled  bool
}

// NewWithMetrics creates a new adaptive limiter with metrics enabled.
func NewWithMetrics(config Config, name string) Limiter {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	registry := prometheus.NewRegistry()
	metricsConfig := metrics.Config{
		Enabled:  true,
		Registry: registry,
	}
	return NewWithConfigAndMetrics(config, name, metricsConfig)
}

// NewWithConfigAndMetrics creates a new adaptive limiter with custom config and metrics.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) Limiter {
	baseLimiter := NewWithConfig(config)

	if !metricsConfig.Enabled {
		return baseLimiter
	}

	registry := metrics.DefaultRegistry
	if metricsConfig.Registry != nil {
		registry = metrics.NewRegistry(metricsConfig.Registry)
	}

	return &MetricsLimiter{
		limiter:  baseLimiter,
		name:     name,
		registry: registry,
		enabled:  true,
	}
}

// Execute runs the task through the wrapped limiter, recording the outcome
// and refreshing the rate, queue, and breaker gauges.
func (ml *MetricsLimiter) Execute(ctx context.Context, task Task) (interface{}, error) {
	start := time.Now()

	if ml.enabled {
		ml.registry.LimiterRequests.WithLabelValues(ml.name).Inc()
	}

	value, err := ml.limiter.Execute(ctx, task)

	if ml.enabled {
		duration := time.Since(start)
		ml.registry.LimiterResponseTime.WithLabelValues(ml.name).Observe(duration.Seconds())

		if err == nil {
			ml.registry.LimiterSuccesses.WithLabelValues(ml.name).Inc()
		} else {
			ml.registry.LimiterFailures.WithLabelValues(ml.name).Inc()
		}

		ml.syncGauges()
	}

	return value, err
}

// Stats returns the wrapped limiter's statistics snapshot.
func (ml *MetricsLimiter) Stats() Stats {
	s := ml.limiter.Stats()
	if ml.enabled {
		ml.setGauges(s)
	}
	return s
}

// Reset resets the wrapped limiter.
func (ml *MetricsLimiter) Reset() {
	ml.limiter.Reset()
	if ml.enabled {
		ml.syncGauges()
	}
}

// Close closes the wrapped limiter.
func (ml *MetricsLimiter) Close() error {
	return ml.limiter.Close()
}

func (ml *MetricsLimiter) syncGauges() {
	ml.setGauges(ml.limiter.Stats())
}

func (ml *MetricsLimiter) setGauges(s Stats) {
	ml.registry.LimiterCurrentRate.WithLabelValues(ml.name).Set(s.CurrentRate)
	ml.registry.LimiterQueueLength.WithLabelValues(ml.name).Set(float64(s.QueueLength))
	if s.CircuitOpen {
		ml.registry.LimiterCircuitOpen.WithLabelValues(ml.name).Set(1)
	} else {
		ml.registry.LimiterCircuitOpen.WithLabelValues(ml.name).Set(0)
	}
}

// EnableMetrics enables metrics collection.
func (ml *MetricsLimiter) EnableMetrics(config metrics.Config) error {
	ml.enabled = config.Enabled

	if config.Registry != nil {
		ml.registry = metrics.NewRegistry(config.Registry)
	}

	return nil
}

// DisableMetrics disables metrics collection.
func (ml *MetricsLimiter) DisableMetrics() {
	ml.enabled = false
}

// MetricsEnabled returns true if metrics are currently enabled.
func (ml *MetricsLimiter) MetricsEnabled() bool {
	return ml.enabled
}
