package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/client"
	"statusnet/internal/poller"
	"statusnet/internal/store"
)

// recentLogCount is the number of log entries on the dashboard
const recentLogCount = 5

// DashboardHandler serves the overview page
type DashboardHandler struct {
	system  *poller.System
	devices *poller.Devices
	logs    *poller.Logs
	store   *store.Devices
	client  *client.Client
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(system *poller.System, devices *poller.Devices, logs *poller.Logs, st *store.Devices, c *client.Client) *DashboardHandler {
	return &DashboardHandler{
		system:  system,
		devices: devices,
		logs:    logs,
		store:   st,
		client:  c,
	}
}

// RegisterRoutes registers the dashboard routes
func (h *DashboardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/dashboard", h.getDashboard).Methods("GET")
	r.HandleFunc("/api/stats", h.getStats).Methods("GET")
}

// getDashboard returns the system status, device counters and latest logs
func (h *DashboardHandler) getDashboard(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDashboard").Logger()

	system := h.system.Current()
	state := h.system.Status()

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"online":     system.Online(),
		"system":     system,
		"loading":    state.Loading,
		"error":      state.Error,
		"devices":    h.devices.Summary(),
		"typeCounts": h.devices.TypeCounts(),
		"recentLogs": h.store.LogViews(h.logs.Latest(recentLogCount)),
		"logStats":   h.logs.Stats(),
		"backend":    h.client.BackendStatus(),
		"timestamp":  time.Now(),
	})
}

// getStats returns the backend statistics report
func (h *DashboardHandler) getStats(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getStats").Logger()

	stats, err := h.client.Stats(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve statistics")
		http.Error(w, "Failed to retrieve statistics", errorStatus(err))
		return
	}

	writeJSON(w, logger, http.StatusOK, stats)
}
