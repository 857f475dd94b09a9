package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/dedupe"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// EventDependencies defines the interface for event processing dependencies
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.StatEvent) bool
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest is the body of POST /events.
type eventRequest struct {
	EventID  string `json:"event_id"`
	RosterID string `json:"roster_id"`
	PlayerID string `json:"player_id"`
	Kind     string `json:"kind"`
	Role     string `json:"role"`
	TS       string `json:"ts"`
}

func (e eventRequest) toEvent() (model.StatEvent, error) {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return model.StatEvent{}, errors.New("missing event_id")
	case strings.TrimSpace(e.RosterID) == "":
		return model.StatEvent{}, errors.New("missing roster_id")
	case strings.TrimSpace(e.PlayerID) == "":
		return model.StatEvent{}, errors.New("missing player_id")
	case strings.TrimSpace(e.TS) == "":
		return model.StatEvent{}, errors.New("missing ts")
	}
	kind, err := model.ParseKind(e.Kind)
	if err != nil {
		return model.StatEvent{}, err
	}
	ts, err := time.Parse(time.RFC3339, e.TS)
	if err != nil {
		return model.StatEvent{}, errors.New("invalid ts; must be RFC3339")
	}
	return model.StatEvent{
		EventID:  e.EventID,
		RosterID: e.RosterID,
		PlayerID: e.PlayerID,
		Kind:     kind,
		Role:     rating.ParseRole(strings.ToLower(strings.TrimSpace(e.Role))),
		TS:       ts,
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostEvent handles POST /events requests
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		metrics.RecordEventRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		metrics.RecordEventRejected("invalid")
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), ev.EventID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), ev); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), ev.EventID)
		metrics.RecordEventRejected("backpressure")
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
