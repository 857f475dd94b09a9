package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider exposes service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatusHandler serves liveness and service statistics.
type StatusHandler struct {
	started time.Time
	stats   StatsProvider
}

// NewStatusHandler creates a status handler. Uptime counts from this call.
func NewStatusHandler(stats StatsProvider) *StatusHandler {
	return &StatusHandler{started: time.Now(), stats: stats}
}

func (h *StatusHandler) uptime() string {
	return time.Since(h.started).Round(time.Second).String()
}

// HandleHealth handles GET /healthz.
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": h.uptime(),
	})
}

// HandleStats handles GET /stats: the provider's counters plus uptime.
func (h *StatusHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	out := map[string]interface{}{"uptime": h.uptime()}
	if h.stats != nil {
		maps.Copy(out, h.stats.GetStats())
	}
	writeJSON(w, http.StatusOK, out)
}
