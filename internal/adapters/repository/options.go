package repository

import "time"

const defaultMetricsInterval = 5 * time.Second

type options struct {
	metricsInterval time.Duration
	onPublish       func(rosterID string, players int)
}

// Option configures NewTreapStore.
type Option func(*options)

// WithMetricsInterval sets how often store gauges are refreshed.
func WithMetricsInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.metricsInterval = interval
		}
	}
}

// WithPublishHook registers fn to run after a roster's standings are swapped
// in. players is zero when the roster was removed. fn runs outside the store
// lock.
func WithPublishHook(fn func(rosterID string, players int)) Option {
	return func(o *options) {
		o.onPublish = fn
	}
}
