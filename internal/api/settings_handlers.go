package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/validation"
)

// SettingsStore persists user settings
type SettingsStore interface {
	SaveSettings(s models.Settings) error
	SaveTheme(theme string) error
}

// SettingsHandler owns the current user settings and their endpoints
type SettingsHandler struct {
	store    SettingsStore
	notes    *notify.Center
	defaults models.Settings

	mu      sync.RWMutex
	current models.Settings
	// active is what the running pollers and client were built from
	active models.Settings
}

// NewSettingsHandler creates a settings handler. current is the value the
// daemon started with.
func NewSettingsHandler(store SettingsStore, notes *notify.Center, defaults, current models.Settings) *SettingsHandler {
	return &SettingsHandler{
		store:    store,
		notes:    notes,
		defaults: defaults,
		current:  current,
		active:   current,
	}
}

// RegisterRoutes registers the settings routes
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/settings", h.getSettings).Methods("GET")
	r.HandleFunc("/api/settings", h.saveSettings).Methods("PUT")
	r.HandleFunc("/api/settings/reset", h.resetSettings).Methods("POST")
}

// Current returns the saved settings
func (h *SettingsHandler) Current() models.Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RestartRequired reports whether the saved settings differ from the ones
// the daemon runs with in a field only read at startup
func (h *SettingsHandler) RestartRequired() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return restartRequired(h.active, h.current)
}

func restartRequired(active, saved models.Settings) bool {
	return active.APIURL != saved.APIURL ||
		active.UseMock != saved.UseMock ||
		active.PollInterval != saved.PollInterval ||
		active.AutoRefresh != saved.AutoRefresh
}

type settingsResponse struct {
	Settings        models.Settings `json:"settings"`
	RestartRequired bool            `json:"restartRequired"`
}

func (h *SettingsHandler) response() settingsResponse {
	return settingsResponse{Settings: h.Current(), RestartRequired: h.RestartRequired()}
}

// getSettings returns the saved settings
func (h *SettingsHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getSettings").Logger()
	writeJSON(w, logger, http.StatusOK, h.response())
}

// persist validates s, writes it to the store and makes it current
func (h *SettingsHandler) persist(s models.Settings) (validation.Result, error) {
	if res := validation.ValidateSettings(s); !res.IsValid {
		return res, nil
	}
	if err := h.store.SaveSettings(s); err != nil {
		return validation.Result{IsValid: true}, err
	}
	if err := h.store.SaveTheme(s.Theme); err != nil {
		return validation.Result{IsValid: true}, err
	}

	h.mu.Lock()
	h.current = s
	h.mu.Unlock()
	return validation.Result{IsValid: true}, nil
}

// saveSettings validates and stores the settings. Fields missing from the
// body keep their saved value.
func (h *SettingsHandler) saveSettings(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "saveSettings").Logger()

	s := h.Current()
	if err := decodeBody(r, &s); err != nil {
		logger.Warn().Err(err).Msg("Invalid settings payload")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	s.APIURL = validation.SanitizeInput(s.APIURL)

	res, err := h.persist(s)
	if !res.IsValid {
		writeInvalid(w, logger, res)
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to save settings")
		h.notes.Error("Failed to save settings")
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	resp := h.response()
	if resp.RestartRequired {
		h.notes.Success("Settings saved (restart to apply)")
	} else {
		h.notes.Success("Settings saved successfully")
	}
	logger.Info().Bool("restartRequired", resp.RestartRequired).Msg("Settings saved")
	writeJSON(w, logger, http.StatusOK, resp)
}

// resetSettings stores the default settings
func (h *SettingsHandler) resetSettings(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "resetSettings").Logger()

	if _, err := h.persist(h.defaults); err != nil {
		logger.Error().Err(err).Msg("Failed to reset settings")
		http.Error(w, "Failed to reset settings", http.StatusInternalServerError)
		return
	}

	h.notes.Success("Settings reset to defaults")
	writeJSON(w, logger, http.StatusOK, h.response())
}
