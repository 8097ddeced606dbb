package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/goalsensor/internal/domain/poller"
)

// MonitorHandler serves diagnostics and control commands for tracked teams.
type MonitorHandler struct {
	deps Dependencies
}

// NewMonitorHandler creates a new monitor handler.
func NewMonitorHandler(deps Dependencies) *MonitorHandler {
	return &MonitorHandler{deps: deps}
}

type statusList struct {
	Monitors []poller.Diagnostics `json:"monitors"`
}

// HandleList handles GET /status requests.
func (h *MonitorHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusList{Monitors: h.deps.Snapshot()})
}

// HandleGet handles GET /status/{team} requests.
func (h *MonitorHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r)
	if !ok {
		return
	}
	d, err := h.deps.Status(team)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleEnable handles POST /monitors/{team}/enable requests.
func (h *MonitorHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.deps.Enable)
}

// HandleDisable handles POST /monitors/{team}/disable requests.
func (h *MonitorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.deps.Disable)
}

func (h *MonitorHandler) control(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) (poller.Diagnostics, error)) {
	team, ok := teamParam(w, r)
	if !ok {
		return
	}
	d, err := apply(r.Context(), team)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func teamParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	team := strings.TrimSpace(r.PathValue("team"))
	if team == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return "", false
	}
	return team, true
}
