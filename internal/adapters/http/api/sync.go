package api

import (
	"context"
	"net/http"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/types"
)

// SyncDependencies triggers a bulk source sync.
type SyncDependencies interface {
	Sync(ctx context.Context) (types.SyncReport, error)
}

// SyncHandler handles sync requests.
type SyncHandler struct {
	deps SyncDependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps SyncDependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleSync handles POST /sync requests.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Sync(r.Context())
	if err != nil {
		writeFailure(w, "api.sync", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
