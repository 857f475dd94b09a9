package api

import (
	"context"
	"net/http"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/types"
)

// ContextDependencies exposes a roster's normalization context.
type ContextDependencies interface {
	Context(ctx context.Context, rosterID string) (types.RosterContext, error)
}

// ContextHandler serves roster contexts.
type ContextHandler struct {
	deps ContextDependencies
}

// NewContextHandler creates a new context handler.
func NewContextHandler(deps ContextDependencies) *ContextHandler {
	return &ContextHandler{deps: deps}
}

// HandleGetContext handles GET /rosters/{roster}/context requests.
func (h *ContextHandler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	rc, err := h.deps.Context(r.Context(), r.PathValue("roster"))
	if err != nil {
		writeFailure(w, "api.get_context", err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}
