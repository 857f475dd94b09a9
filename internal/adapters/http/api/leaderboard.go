package api

import (
	"context"
	"net/http"
	"strconv"
)

// defaultLimit applies when GET /rosters/{id}/ratings has no limit.
const defaultLimit = 10

// LeaderboardDependencies defines the interface for roster standings
type LeaderboardDependencies interface {
	TopN(ctx context.Context, rosterID string, n int) ([]Entry, error)
}

// LeaderboardHandler serves a roster's standings
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	if maxLimit < 1 {
		maxLimit = 100
	}
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

type ratingsResponse struct {
	RosterID string  `json:"roster_id"`
	Entries  []Entry `json:"entries"`
}

// HandleGetRatings handles GET /rosters/{roster}/ratings?limit=N requests
func (h *LeaderboardHandler) HandleGetRatings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	rosterID := r.PathValue("roster")

	n := min(defaultLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}

	entries, err := h.deps.TopN(r.Context(), rosterID, n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingsResponse{RosterID: rosterID, Entries: entries})
}
