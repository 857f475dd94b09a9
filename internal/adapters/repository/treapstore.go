package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// Treap-based, in-memory Store implementation. Each roster owns one treap.
//
// Ordering: rating DESC, then playerID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the standings best to worst.

// treap node
type node struct {
	id     string
	rating int
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating int, aID string, bRating int, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// idPriority derives a stable heap priority from the player id. Ratings
// cluster in a narrow band, so priorities must not follow the sort key.
func idPriority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, r int) *node {
	if n == nil {
		return &node{id: id, rating: r, prio: idPriority(id), size: 1}
	}
	if less(r, id, n.rating, n.id) {
		n.left = insert(n.left, id, r)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, r)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byID map[string]Entry, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		if e, ok := byID[n.id]; ok {
			*out = append(*out, e)
		}
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

// standings is the immutable published state of one roster.
type standings struct {
	root *node
	byID map[string]Entry
}

// buildStandings orders entries into a treap and assigns dense ranks.
// A duplicated player id keeps its last entry.
func buildStandings(entries []Entry) *standings {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.PlayerID] = e
	}

	st := &standings{byID: byID}
	for id, e := range byID {
		st.root = insert(st.root, id, e.Rating)
	}

	ordered := make([]Entry, 0, len(byID))
	collectTopN(st.root, len(byID), byID, &ordered)
	assignRanksWithTies(ordered)
	for _, e := range ordered {
		byID[e.PlayerID] = e
	}
	return st
}

type TreapStore struct {
	mu      sync.RWMutex
	rosters map[string]*standings
	players int

	opts options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		rosters:  make(map[string]*standings),
		opts:     options{metricsInterval: defaultMetricsInterval},
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// ReplaceRoster implements Store.ReplaceRoster. The new standings are built
// outside the lock and swapped in atomically, so readers never see a roster
// half refreshed.
func (s *TreapStore) ReplaceRoster(ctx context.Context, rosterID string, entries []Entry) error {
	if rosterID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_roster")
		return ErrInvalidRoster
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var next *standings
	published := 0
	if len(entries) > 0 {
		next = buildStandings(entries)
		published = len(next.byID)
	}

	s.mu.Lock()
	if prev, ok := s.rosters[rosterID]; ok {
		s.players -= len(prev.byID)
	}
	if next == nil {
		delete(s.rosters, rosterID)
	} else {
		s.rosters[rosterID] = next
		s.players += published
	}
	s.mu.Unlock()

	if s.opts.onPublish != nil {
		s.opts.onPublish(rosterID, published)
	}
	return nil
}

// Rank implements Store.Rank in O(1).
func (s *TreapStore) Rank(ctx context.Context, rosterID, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	st, ok := s.rosters[rosterID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("roster %q: %w", rosterID, ErrNotFound)
	}
	e, ok := st.byID[playerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("player %q in roster %q: %w", playerID, rosterID, ErrNotFound)
	}
	return e, nil
}

// TopN implements Store.TopN in O(log n + k).
func (s *TreapStore) TopN(ctx context.Context, rosterID string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	st, ok := s.rosters[rosterID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, fmt.Errorf("roster %q: %w", rosterID, ErrNotFound)
	}

	out := make([]Entry, 0, min(n, len(st.byID)))
	collectTopN(st.root, n, st.byID, &out)
	return out, nil
}

// Count returns the number of rated players across all rosters.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players
}

// Rosters returns roster ids in ascending order.
func (s *TreapStore) Rosters(ctx context.Context) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rosters))
	for id := range s.rosters {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// startMetricsUpdater starts a background goroutine that updates store metrics.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *TreapStore) updateMetrics() {
	s.mu.RLock()
	rosters, players := len(s.rosters), s.players
	s.mu.RUnlock()

	metrics.UpdateRepositoryRosters(rosters)
	metrics.UpdateRepositoryRecordsTotal(players)
}

// assignRanksWithTies assigns dense ranks to entries already in rank order.
// Players with the same rating share a rank and the next rating gets the
// next consecutive rank.
func assignRanksWithTies(entries []Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameRatingCount := 1
		for j := i + 1; j < len(entries) && entries[j].Rating == entries[i].Rating; j++ {
			entries[j].Rank = currentRank
			sameRatingCount++
		}

		currentRank++
		i += sameRatingCount - 1
	}
}
