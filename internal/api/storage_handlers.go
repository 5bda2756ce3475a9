package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/client"
	"statusnet/internal/maintenance"
	"statusnet/internal/notify"
	"statusnet/internal/reference"
)

// StorageStore is the local store shown on the storage panel
type StorageStore interface {
	Clear() error
	GetDatabaseStats() (map[string]interface{}, error)
	UpdatedAt(key string) (time.Time, bool, error)
}

// Maintainer runs and reports the maintenance jobs
type Maintainer interface {
	Next() (time.Time, bool)
	Last() (maintenance.Result, bool)
	RunNow() maintenance.Result
}

// DemoSource gives access to the demonstration backend while it serves data
type DemoSource interface {
	UsingMock() bool
	Mock() *client.MockBackend
}

// Reloader reloads a polled resource
type Reloader interface {
	Load(ctx context.Context, silent bool) error
}

// StorageHandler handles the local storage endpoints
type StorageHandler struct {
	store   StorageStore
	maint   Maintainer
	demo    DemoSource
	notes   *notify.Center
	reloads []Reloader
}

// NewStorageHandler creates a storage handler. reloads are refreshed after
// the demonstration data is regenerated.
func NewStorageHandler(store StorageStore, maint Maintainer, demo DemoSource, notes *notify.Center, reloads ...Reloader) *StorageHandler {
	return &StorageHandler{
		store:   store,
		maint:   maint,
		demo:    demo,
		notes:   notes,
		reloads: reloads,
	}
}

// RegisterRoutes registers the storage routes
func (h *StorageHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/storage", h.getStorage).Methods("GET")
	r.HandleFunc("/api/storage", h.clearStorage).Methods("DELETE")
	r.HandleFunc("/api/storage/maintenance", h.runMaintenance).Methods("POST")
}

// MaintenanceView is the schedule part of the storage panel
type MaintenanceView struct {
	Next *time.Time          `json:"next,omitempty"`
	Last *maintenance.Result `json:"last,omitempty"`
}

func (h *StorageHandler) maintenanceView() MaintenanceView {
	var v MaintenanceView
	if h.maint == nil {
		return v
	}
	if next, ok := h.maint.Next(); ok {
		v.Next = &next
	}
	if last, ok := h.maint.Last(); ok {
		v.Last = &last
	}
	return v
}

// getStorage returns the stored keys, when each snapshot was written and the
// maintenance schedule
func (h *StorageHandler) getStorage(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getStorage").Logger()

	stats, err := h.store.GetDatabaseStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read storage stats")
		http.Error(w, "Failed to read local storage", http.StatusInternalServerError)
		return
	}

	written := map[string]time.Time{}
	for name, key := range map[string]string{
		"settings": reference.KeySettings,
		"theme":    reference.KeyTheme,
		"devices":  reference.KeyDevices,
		"logs":     reference.KeyLogs,
	} {
		ts, ok, err := h.store.UpdatedAt(key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to read snapshot time")
			continue
		}
		if ok {
			written[name] = ts
		}
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"database":    stats,
		"updatedAt":   written,
		"maintenance": h.maintenanceView(),
		"demoData":    h.demo != nil && h.demo.UsingMock(),
	})
}

// clearStorage removes every locally stored value. The in-memory settings
// are kept until the next restart. Demonstration data is regenerated, so
// writes made against it are dropped as well.
func (h *StorageHandler) clearStorage(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "clearStorage").Logger()

	if h.demo != nil && h.demo.UsingMock() {
		h.demo.Mock().Reset()
		for _, rl := range h.reloads {
			if err := rl.Load(r.Context(), true); err != nil {
				logger.Warn().Err(err).Msg("Failed to reload after regenerating demonstration data")
			}
		}
	}

	// after the reloads, which cache their result
	if err := h.store.Clear(); err != nil {
		logger.Error().Err(err).Msg("Failed to clear local storage")
		http.Error(w, "Failed to clear local storage", http.StatusInternalServerError)
		return
	}

	h.notes.Success("Local data removed")
	w.WriteHeader(http.StatusNoContent)
}

// runMaintenance runs the maintenance jobs immediately
func (h *StorageHandler) runMaintenance(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "runMaintenance").Logger()

	if h.maint == nil {
		http.Error(w, "Maintenance is not configured", http.StatusServiceUnavailable)
		return
	}

	res := h.maint.RunNow()
	if res.Error != "" {
		h.notes.Error("Maintenance failed")
		writeJSON(w, logger, http.StatusInternalServerError, res)
		return
	}

	h.notes.Success("Maintenance completed")
	writeJSON(w, logger, http.StatusOK, res)
}
