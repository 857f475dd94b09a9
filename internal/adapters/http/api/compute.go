package api

import (
	"errors"
	"net/http"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
)

// ComputeDependencies rates stats without roster state.
type ComputeDependencies interface {
	Compute(stats rating.PlayerStats, rc rating.RosterContext) rating.Result
}

// ComputeHandler serves stateless rating requests.
type ComputeHandler struct {
	deps ComputeDependencies
}

// NewComputeHandler creates a new compute handler.
func NewComputeHandler(deps ComputeDependencies) *ComputeHandler {
	return &ComputeHandler{deps: deps}
}

// computeRequest carries the stats to rate and either an explicit context or
// the roster to derive it from.
type computeRequest struct {
	Stats   rating.PlayerStats    `json:"stats"`
	Context *rating.RosterContext `json:"context,omitempty"`
	Roster  []rating.PlayerStats  `json:"roster,omitempty"`
}

type computeResponse struct {
	rating.Result
	Regime  rating.Regime        `json:"regime"`
	Context rating.RosterContext `json:"context"`
}

func validStats(s rating.PlayerStats) bool {
	if s.RawPoints != nil && *s.RawPoints < 0 {
		return false
	}
	return s.Matches >= 0 && s.Goals >= 0 && s.Assists >= 0 && s.YellowCards >= 0 && s.RedCards >= 0
}

func (c computeRequest) resolve() (rating.RosterContext, error) {
	if !validStats(c.Stats) {
		return rating.RosterContext{}, errors.New("stats counts must be non-negative")
	}
	switch {
	case c.Context != nil:
		if c.Context.MaxMatches < 1 || c.Context.MaxRawPoints < 0 {
			return rating.RosterContext{}, errors.New("context needs max_matches >= 1 and max_raw_points >= 0")
		}
		return *c.Context, nil
	case len(c.Roster) > 0:
		for _, s := range c.Roster {
			if !validStats(s) {
				return rating.RosterContext{}, errors.New("roster counts must be non-negative")
			}
		}
		return rating.ComputeContext(c.Roster), nil
	default:
		return rating.RosterContext{}, errors.New("missing context or roster")
	}
}

// HandleCompute handles POST /ratings/compute requests.
func (h *ComputeHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute"
	var req computeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rc, err := req.resolve()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, computeResponse{
		Result:  h.deps.Compute(req.Stats, rc),
		Regime:  rc.Regime(),
		Context: rc,
	})
}
