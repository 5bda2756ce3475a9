package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/dashboard"
	"statusnet/internal/models"
	"statusnet/internal/reference"
)

// ReferenceHandler serves the static lookup tables of the pages
type ReferenceHandler struct {
	body map[string]interface{}
}

// NewReferenceHandler creates a new reference handler
func NewReferenceHandler() *ReferenceHandler {
	return &ReferenceHandler{body: map[string]interface{}{
		"deviceTypes":      reference.TypeNames,
		"deviceIcons":      reference.TypeIcons,
		"statusColors":     reference.StatusColors,
		"statuses":         []models.DeviceStatus{models.StatusOnline, models.StatusOffline, models.StatusSlow, models.StatusUnknown},
		"pollingOptions":   reference.PollingOptions(),
		"retentionOptions": reference.RetentionOptions,
		"themes":           reference.Themes,
		"languages":        reference.Languages,
		"dateRanges":       dashboard.DateRanges,
		"defaultSettings":  reference.DefaultSettings(),
		"deviceForm":       models.NewDeviceForm(),
	}}
}

// RegisterRoutes registers the reference route
func (h *ReferenceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/reference", h.getReference).Methods("GET")
}

func (h *ReferenceHandler) getReference(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getReference").Logger()
	writeJSON(w, logger, http.StatusOK, h.body)
}
