package queue

type options struct {
	capacity int
}

// Option configures NewInMemoryQueue.
type Option func(*options)

// WithCapacity bounds the number of buffered events. Non-positive values keep
// the default.
func WithCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}
