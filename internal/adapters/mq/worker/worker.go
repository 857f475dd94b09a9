// Package worker applies queued stat events to the roster book and refreshes
// the affected roster's ratings.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = model.StatEvent

// Applier folds one event into the running tallies.
type Applier interface {
	Apply(ev model.StatEvent) error
}

// Refresher recomputes and publishes the ratings of one roster.
type Refresher interface {
	Refresh(ctx context.Context, rosterID string) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

type activeCounter struct{ n atomic.Int64 }

// InMemoryWorker implements Worker for processing events.
type InMemoryWorker struct {
	queue     Queue
	applier   Applier
	refresher Refresher
	name      string
	active    *activeCounter

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option configures NewInMemoryWorker.
type Option func(*InMemoryWorker)

// WithName names the worker in its log lines.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// withActive makes the worker report into a pool-wide busy counter.
func withActive(c *activeCounter) Option {
	return func(w *InMemoryWorker) {
		w.active = c
	}
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, applier Applier, refresher Refresher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		applier:   applier,
		refresher: refresher,
		name:      "worker",
		active:    &activeCounter{},
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent applies one event and refreshes its roster.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	w.active.n.Add(1)
	start := time.Now()
	defer func() {
		w.active.n.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.applier.Apply(event); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "apply failed for event",
			logger.String("eventID", event.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to apply event %s: %w", event.EventID, err)
	}

	if err := w.refresher.Refresh(ctx, event.RosterID); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "refresh_error")
		w.logger.Error(ctx, "roster refresh failed for event",
			logger.String("eventID", event.EventID),
			logger.String("rosterID", event.RosterID),
			logger.Error(err),
		)
		return fmt.Errorf("refresh roster %s: %w", event.RosterID, err)
	}

	metrics.RecordEventProcessed()
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  *activeCounter

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a new worker pool. A workerCount below one selects a
// multiple of the CPU count.
func NewPool(workerCount int, queue Queue, applier Applier, refresher Refresher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		active:   &activeCounter{},
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			applier,
			refresher,
			WithName("worker-"+strconv.Itoa(i)),
			withActive(pool.active),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns the number of workers currently processing an event.
func (p *Pool) Active() int {
	return int(p.active.n.Load())
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateWorkerActiveCount(p.Active())
		}
	}
}

// Shutdown closes the queue so workers drain what is left, then waits for
// them to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}
	return nil
}
