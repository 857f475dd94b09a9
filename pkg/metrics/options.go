package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures NewManager.
type Option func(*Manager)

// WithName overrides the metric name prefix, namespace_subsystem_. Empty
// parts keep their defaults.
func WithName(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the buckets of the millisecond latency histograms.
// The rating value histogram keeps its own buckets.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithConstLabels attaches constant labels to every metric.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.constLabels = labels
		}
	}
}

// WithRegisterer registers metrics somewhere other than the default registerer.
func WithRegisterer(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
