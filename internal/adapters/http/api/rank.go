package api

import (
	"context"
	"net/http"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
)

// RankDependencies defines the interface for player lookups.
type RankDependencies interface {
	Rank(ctx context.Context, rosterID, playerID string) (Entry, error)
	PlayerStats(rosterID, playerID string) (rating.PlayerStats, bool)
}

// RankHandler handles player requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

type playerResponse struct {
	RosterID string `json:"roster_id"`
	Entry
	Stats *rating.PlayerStats `json:"stats,omitempty"`
}

// HandleGetPlayer handles GET /rosters/{roster}/players/{player} requests.
func (h *RankHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	rosterID, playerID := r.PathValue("roster"), r.PathValue("player")

	entry, err := h.deps.Rank(r.Context(), rosterID, playerID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	resp := playerResponse{RosterID: rosterID, Entry: entry}
	if stats, ok := h.deps.PlayerStats(rosterID, playerID); ok {
		resp.Stats = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}
