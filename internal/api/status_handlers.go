package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/client"
	"statusnet/internal/notify"
	"statusnet/internal/poller"
	"statusnet/internal/reference"
)

// StatusHandler handles system status and backend connection endpoints
type StatusHandler struct {
	system    *poller.System
	client    *client.Client
	notes     *notify.Center
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(system *poller.System, c *client.Client, notes *notify.Center) *StatusHandler {
	return &StatusHandler{
		system:    system,
		client:    c,
		notes:     notes,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", h.getSystemStatus).Methods("GET")
	r.HandleFunc("/api/status/health", h.getHealthCheck).Methods("GET")
	r.HandleFunc("/api/connection", h.getConnection).Methods("GET")
	r.HandleFunc("/api/connection/test", h.testConnection).Methods("POST")
}

// ConnectionView drives the connection banner
type ConnectionView struct {
	client.Status
	Mode    string `json:"mode"` // live, mock, fallback
	APIURL  string `json:"apiUrl"`
	Message string `json:"message,omitempty"`
}

func (h *StatusHandler) connection() ConnectionView {
	st := h.client.BackendStatus()
	v := ConnectionView{
		Status: st,
		Mode:   "live",
		APIURL: h.client.Options().BaseURL,
	}
	switch {
	case h.client.Options().UseMock:
		v.Mode = "mock"
	case h.client.FellBack():
		v.Mode = "fallback"
		v.Message = reference.MsgBackendOffline
	}
	return v
}

// getSystemStatus returns the polled backend status
func (h *StatusHandler) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getSystemStatus").Logger()

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"system":     h.system.Current(),
		"state":      h.system.Status(),
		"connection": h.connection(),
		"uptime":     time.Since(h.startTime).Round(time.Second).String(),
		"startTime":  h.startTime,
		"timestamp":  time.Now(),
	})
}

// getHealthCheck reports the daemon itself is alive
func (h *StatusHandler) getHealthCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHealthCheck").Logger()

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"numGoroutine": runtime.NumGoroutine(),
		"timestamp":    time.Now(),
	})
}

// getConnection returns the backend connection state
func (h *StatusHandler) getConnection(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getConnection").Logger()
	writeJSON(w, logger, http.StatusOK, h.connection())
}

// testConnection checks the backend and refreshes the system status
func (h *StatusHandler) testConnection(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "testConnection").Logger()

	result := h.client.TestConnection(r.Context())
	if result.Success {
		h.notes.Success(fmt.Sprintf("Backend connected (%dms)", result.ResponseTime))
	} else {
		h.notes.Error(fmt.Sprintf("Connection failed: %s", result.Error))
	}

	if err := h.system.Load(r.Context(), true); err != nil {
		logger.Warn().Err(err).Msg("Failed to refresh system status after connection test")
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"result":     result,
		"connection": h.connection(),
		"system":     h.system.Current(),
	})
}
