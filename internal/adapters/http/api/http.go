// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	service "github.com/okian/goalsensor/internal/app"
	"github.com/okian/goalsensor/internal/domain/poller"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // shared codec

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Control operations switch monitoring for a team on or off.
	Enable(ctx context.Context, team string) (poller.Diagnostics, error)
	Disable(ctx context.Context, team string) (poller.Diagnostics, error)

	// Read operations expose scheduler diagnostics.
	Status(team string) (poller.Diagnostics, error)
	Snapshot() []poller.Diagnostics
}

// Server wires HTTP routes for the monitor API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	monitorHandler *MonitorHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(deps),
		monitorHandler: NewMonitorHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.monitorHandler.HandleList, "status"))
	mux.HandleFunc("GET /status/{team}", MetricsMiddleware(s.monitorHandler.HandleGet, "status_team"))
	mux.HandleFunc("POST /monitors/{team}/enable", MetricsMiddleware(s.monitorHandler.HandleEnable, "enable"))
	mux.HandleFunc("POST /monitors/{team}/disable", MetricsMiddleware(s.monitorHandler.HandleDisable, "disable"))
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

// writeDomainError maps service errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnknownTeam) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}
