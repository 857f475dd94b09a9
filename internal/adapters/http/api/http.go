// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	repository "github.com/artemshundrik/tosho-crm-sub001/internal/adapters/repository"
	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	service "github.com/artemshundrik/tosho-crm-sub001/internal/app"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/dedupe"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/roster"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/types"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes an event for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, e model.StatEvent) bool

	// Read operations expose roster standings.
	TopN(ctx context.Context, rosterID string, n int) ([]Entry, error)
	Rank(ctx context.Context, rosterID, playerID string) (Entry, error)
	PlayerStats(rosterID, playerID string) (rating.PlayerStats, bool)
	Context(ctx context.Context, rosterID string) (types.RosterContext, error)

	// Compute rates stats without touching roster state.
	Compute(stats rating.PlayerStats, rc rating.RosterContext) rating.Result

	// Sync pulls rosters from the configured source.
	Sync(ctx context.Context) (types.SyncReport, error)
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	statusHandler      *StatusHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	contextHandler     *ContextHandler
	computeHandler     *ComputeHandler
	syncHandler        *SyncHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		statusHandler:      NewStatusHandler(statsProvider),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		contextHandler:     NewContextHandler(deps),
		computeHandler:     NewComputeHandler(deps),
		syncHandler:        NewSyncHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", instrument("healthz", s.statusHandler.HandleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", instrument("stats", s.statusHandler.HandleStats))
	mux.HandleFunc("POST /events", instrument("events", s.eventsHandler.HandlePostEvent))
	mux.HandleFunc("GET /rosters/{roster}/ratings", instrument("ratings", s.leaderboardHandler.HandleGetRatings))
	mux.HandleFunc("GET /rosters/{roster}/players/{player}", instrument("player", s.rankHandler.HandleGetPlayer))
	mux.HandleFunc("GET /rosters/{roster}/context", instrument("context", s.contextHandler.HandleGetContext))
	mux.HandleFunc("POST /ratings/compute", instrument("compute", s.computeHandler.HandleCompute))
	mux.HandleFunc("POST /sync", instrument("sync", s.syncHandler.HandleSync))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a downstream error to a status and code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, roster.ErrMissingRoster),
		errors.Is(err, roster.ErrMissingPlayer):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, roster.ErrUnknownRoster):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrNoSource):
		writeError(w, http.StatusConflict, "no_source", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrSyncBusy):
		writeError(w, http.StatusConflict, "sync_busy", WrapKind(op, ErrConflict, err))
	case errors.Is(err, source.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decodeBody reads a JSON body into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
