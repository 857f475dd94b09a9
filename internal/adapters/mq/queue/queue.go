// Package queue buffers accepted stat events between the HTTP layer and the
// worker pool.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// Rejection reasons returned by Enqueue.
var (
	ErrFull   = errors.New("event queue is full")
	ErrClosed = errors.New("event queue is closed")
)

const defaultCapacity = 10_000

// Queue accepts stat events without blocking and hands them to consumers.
type Queue interface {
	Enqueue(ctx context.Context, ev model.StatEvent) error
	Dequeue(ctx context.Context) <-chan model.StatEvent
	Len() int
	Cap() int
	Close() error
}

// InMemoryQueue is a bounded channel of stat events. Enqueue never blocks; a
// full queue is reported as ErrFull so the caller can push back.
type InMemoryQueue struct {
	events chan model.StatEvent

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates an open queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	o := options{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}

	q := &InMemoryQueue{events: make(chan model.StatEvent, o.capacity)}
	metrics.UpdateQueueCapacity(o.capacity)
	q.report()
	return q
}

// Enqueue offers ev to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, ev model.StatEvent) error { //nolint:gocritic // hugeParam: sent by value over the channel
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		reject("context_cancelled")
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		reject("closed")
		return ErrClosed
	}

	select {
	case q.events <- ev:
		metrics.RecordQueueEnqueue()
		q.report()
		return nil
	default:
		reject("queue_full")
		return ErrFull
	}
}

func reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue returns a channel that yields events until the queue is closed and
// drained, or ctx is done. Every call gets its own channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.StatEvent {
	out := make(chan model.StatEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
					metrics.RecordQueueDequeue()
					q.report()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of buffered events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return cap(q.events)
}

func (q *InMemoryQueue) report() {
	depth := len(q.events)
	metrics.UpdateQueueSize(depth)
	metrics.UpdateQueueUtilization(float64(depth) / float64(cap(q.events)))
}

// Close stops intake. Buffered events are still delivered to consumers.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
