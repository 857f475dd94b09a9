// Package dedupe defines the interface for idempotency tracking.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen event IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID so that it can be retried. Used when an event
	// was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// slot is one insertion in arrival order. A slot is stale when the id was
// unrecorded or recorded again under a newer sequence.
type slot struct {
	id  string
	seq uint64
}

// inMemoryDeduper keeps ids in a map and, when bounded, an arrival-order log
// used to evict the oldest id first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	order   []slot
	head    int
	seq     uint64
	maxSize int // 0 or negative = unbounded
	size    atomic.Int64
}

const defaultMaxSize = 50_000

// Option configures NewInMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids; the oldest is forgotten
// first. Zero or negative keeps every id.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	d.seq++
	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.order = append(d.order, slot{id: id, seq: d.seq})
		d.compact()
	}
	d.seen[id] = d.seq
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// evictOldest drops the oldest live id. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.order) {
		s := d.order[d.head]
		d.order[d.head] = slot{}
		d.head++
		if cur, ok := d.seen[s.id]; ok && cur == s.seq {
			delete(d.seen, s.id)
			d.size.Add(-1)
			return
		}
	}
}

// compact reclaims consumed and stale slots once they dominate the log.
// Must be called with d.mu held.
func (d *inMemoryDeduper) compact() {
	pending := len(d.order) - d.head
	if d.head < len(d.order)/2 && pending <= 2*d.maxSize {
		return
	}
	live := make([]slot, 0, len(d.seen)+1)
	for _, s := range d.order[d.head:] {
		if cur, ok := d.seen[s.id]; (ok && cur == s.seq) || s.seq == d.seq {
			live = append(live, s)
		}
	}
	d.order = live
	d.head = 0
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
