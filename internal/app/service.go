// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	eventqueue "github.com/artemshundrik/tosho-crm-sub001/internal/adapters/mq/queue"
	workerpool "github.com/artemshundrik/tosho-crm-sub001/internal/adapters/mq/worker"
	repository "github.com/artemshundrik/tosho-crm-sub001/internal/adapters/repository"
	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/dedupe"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/roster"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/types"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// Service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoSource   = errors.New("no roster source configured")
	ErrSyncBusy   = errors.New("sync already running")
)

// Watcher is implemented by sources that can report changes.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Service implements the API dependencies for the rating system.
type Service struct {
	mu sync.RWMutex

	// Core components
	standings  repository.Store
	book       *roster.Book
	deduper    dedupe.Deduper
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	scheduler  *cron.Cron
	source     source.Source

	// refreshLocks serializes Refresh per roster.
	refreshLocks sync.Map
	syncing      atomic.Bool

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	syncSchedule string
	watchSource  bool

	// State
	started  bool
	cancel   context.CancelFunc
	bg       sync.WaitGroup
	syncRuns atomic.Int64
	lastSync atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets the bulk roster source used by Sync.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithSyncSchedule runs Sync on a cron schedule once started.
func WithSyncSchedule(spec string) Option {
	return func(s *Service) {
		s.syncSchedule = spec
	}
}

// WithSourceWatch re-syncs whenever the source reports a change. Sources
// that cannot watch ignore it.
func WithSourceWatch(enabled bool) Option {
	return func(s *Service) {
		s.watchSource = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
		dedupeSize:  100000,
		book:        roster.NewBook(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.standings = repository.NewTreapStore(runCtx,
		repository.WithPublishHook(func(rosterID string, players int) {
			s.logger.Debug(runCtx, "standings published",
				logger.String("rosterID", rosterID),
				logger.Int("players", players),
			)
		}),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.eventQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.book, s)
	s.workerPool.Start(runCtx)

	if err := s.startSync(runCtx); err != nil {
		cancel()
		_ = s.workerPool.Shutdown(ctx)
		return err
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// startSync wires the cron schedule and the source watcher.
func (s *Service) startSync(ctx context.Context) error {
	if s.source == nil {
		return nil
	}

	if s.syncSchedule != "" {
		s.scheduler = cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger.Printf{L: s.logger.Named("cron"), Ctx: ctx})))
		_, err := s.scheduler.AddFunc(s.syncSchedule, func() {
			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrSyncBusy) {
				s.logger.Error(ctx, "scheduled sync failed", logger.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("sync schedule %q: %w", s.syncSchedule, err)
		}
		s.scheduler.Start()
		s.logger.Info(ctx, "sync scheduler started", logger.String("schedule", s.syncSchedule))
	}

	if w, ok := s.source.(Watcher); ok && s.watchSource {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			err := w.Watch(ctx, func() {
				if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrSyncBusy) {
					s.logger.Error(ctx, "sync after source change failed", logger.Error(err))
				}
			})
			if err != nil {
				s.logger.Error(ctx, "source watch stopped", logger.Error(err))
			}
		}()
	}
	return nil
}

// Stop gracefully shuts down the service. Queued events are drained before
// the standings are closed.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service...")

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}

	if s.workerPool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.workerPool.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
		cancel()
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.bg.Wait()

	if closer, ok := s.standings.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits an event for asynchronous processing. It returns false on
// backpressure or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, ev model.StatEvent) bool {
	s.mu.RLock()
	q := s.eventQueue
	running := s.started
	s.mu.RUnlock()
	if !running || q == nil {
		return false
	}

	s.logger.Debug(ctx, "enqueueing stat event",
		logger.String("eventID", ev.EventID),
		logger.String("rosterID", ev.RosterID),
		logger.String("playerID", ev.PlayerID),
		logger.String("kind", string(ev.Kind)),
	)
	if err := q.Enqueue(ctx, ev); err != nil {
		s.logger.Debug(ctx, "stat event rejected",
			logger.String("eventID", ev.EventID),
			logger.Error(err),
		)
		return false
	}
	return true
}

// rosterLock returns the mutex that serializes refreshes of rosterID.
func (s *Service) rosterLock(rosterID string) *sync.Mutex {
	l, _ := s.refreshLocks.LoadOrStore(rosterID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Refresh recomputes a roster's context and every member's rating, then
// publishes the new standings. Refreshes of one roster never interleave, so
// the last published standings always reflect the latest book.
func (s *Service) Refresh(ctx context.Context, rosterID string) error {
	if s.standings == nil {
		return ErrNotStarted
	}
	start := time.Now()
	l := s.rosterLock(rosterID)
	l.Lock()
	defer l.Unlock()

	players := s.book.Players(rosterID)
	stats := make([]rating.PlayerStats, len(players))
	for i := range players {
		stats[i] = players[i].Stats
	}
	rc := rating.ComputeContext(stats)

	entries := make([]repository.Entry, len(players))
	for i := range players {
		res := rating.ComputeRating(stats[i], rc)
		metrics.RecordRatingComputed(res.Value)
		entries[i] = repository.Entry{
			PlayerID:  players[i].PlayerID,
			Rating:    res.Value,
			Breakdown: res.Breakdown,
		}
	}

	if err := s.standings.ReplaceRoster(ctx, rosterID, entries); err != nil {
		metrics.RecordRefreshError()
		return fmt.Errorf("publish roster %s: %w", rosterID, err)
	}

	metrics.RecordRegimeSelection(rc.Regime().String())
	metrics.RecordRefreshLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Sync pulls every roster from the source, replaces the book's copy of each
// roster it returned, and refreshes them. Rosters absent from the source are
// left alone.
func (s *Service) Sync(ctx context.Context) (types.SyncReport, error) {
	if s.source == nil {
		return types.SyncReport{}, ErrNoSource
	}
	if s.standings == nil {
		return types.SyncReport{}, ErrNotStarted
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return types.SyncReport{}, ErrSyncBusy
	}
	defer s.syncing.Store(false)

	start := time.Now()
	name := s.source.Name()
	report := types.SyncReport{Source: name}

	tallies, err := s.source.Fetch(ctx)
	if err != nil {
		metrics.RecordSourceSync(name, "error", float64(time.Since(start).Milliseconds()))
		metrics.RecordErrorByComponent("source", "fetch_error")
		return report, fmt.Errorf("fetch from %s: %w", name, err)
	}

	for rosterID, members := range roster.GroupByRoster(tallies) {
		if err := s.book.Replace(rosterID, members); err != nil {
			metrics.RecordSourceSync(name, "error", float64(time.Since(start).Milliseconds()))
			return report, fmt.Errorf("replace roster %s: %w", rosterID, err)
		}
		if err := s.Refresh(ctx, rosterID); err != nil {
			metrics.RecordSourceSync(name, "error", float64(time.Since(start).Milliseconds()))
			return report, err
		}
		report.Rosters++
		report.Players += len(members)
	}

	took := time.Since(start)
	report.DurationMs = took.Milliseconds()
	s.syncRuns.Add(1)
	s.lastSync.Store(time.Now().UnixMilli())
	metrics.RecordSourceSync(name, "ok", float64(took.Milliseconds()))
	s.logger.Info(ctx, "roster sync complete",
		logger.String("source", name),
		logger.Int("rosters", report.Rosters),
		logger.Int("players", report.Players),
		logger.Duration("took", took),
	)
	return report, nil
}

// Compute rates stats against an explicit context without touching any
// roster state.
func (s *Service) Compute(stats rating.PlayerStats, rc rating.RosterContext) rating.Result {
	res := rating.ComputeRating(stats, rc)
	metrics.RecordRatingComputed(res.Value)
	return res
}

// Context returns the current normalization context of a roster.
func (s *Service) Context(ctx context.Context, rosterID string) (types.RosterContext, error) {
	players := s.book.Players(rosterID)
	if len(players) == 0 {
		return types.RosterContext{}, fmt.Errorf("roster %q: %w", rosterID, roster.ErrUnknownRoster)
	}
	stats := make([]rating.PlayerStats, len(players))
	for i := range players {
		stats[i] = players[i].Stats
	}
	rc := rating.ComputeContext(stats)
	return types.RosterContext{
		RosterID: rosterID,
		Context:  rc,
		Regime:   rc.Regime(),
		Players:  len(players),
	}, nil
}

// TopN returns the top N entries of a roster's standings.
func (s *Service) TopN(ctx context.Context, rosterID string, n int) ([]types.Entry, error) {
	if s.standings == nil {
		return nil, ErrNotStarted
	}
	entries, err := s.standings.TopN(ctx, rosterID, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.Entry, len(entries))
	for i, entry := range entries {
		out[i] = toAPI(entry)
	}
	return out, nil
}

// Rank returns a player's standing within a roster.
func (s *Service) Rank(ctx context.Context, rosterID, playerID string) (types.Entry, error) {
	if s.standings == nil {
		return types.Entry{}, ErrNotStarted
	}
	entry, err := s.standings.Rank(ctx, rosterID, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return toAPI(entry), nil
}

// PlayerStats returns the tallies behind a player's rating.
func (s *Service) PlayerStats(rosterID, playerID string) (rating.PlayerStats, bool) {
	return s.book.Stats(rosterID, playerID)
}

func toAPI(e repository.Entry) types.Entry {
	return types.Entry{
		Rank:      e.Rank,
		PlayerID:  e.PlayerID,
		Rating:    e.Rating,
		Breakdown: e.Breakdown,
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"players":     s.book.PlayerCount(),
		"syncRuns":    s.syncRuns.Load(),
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
	}
	if ms := s.lastSync.Load(); ms > 0 {
		stats["lastSync"] = time.UnixMilli(ms).UTC().Format(time.RFC3339)
	}

	if s.started {
		queueLen := s.eventQueue.Len()
		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.eventQueue.Cap()
		stats["activeWorkers"] = s.workerPool.Active()
		stats["rosters"] = len(s.standings.Rosters(ctx))
		stats["rated"] = s.standings.Count(ctx)
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerPool.Size())
	}

	return stats
}
