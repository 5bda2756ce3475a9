package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/dashboard"
	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/poller"
	"statusnet/internal/reference"
	"statusnet/internal/validation"
)

// deviceLogPreview is the number of log entries returned with a device
const deviceLogPreview = 10

// DeviceHandler handles device-related API endpoints
type DeviceHandler struct {
	devices *poller.Devices
	logs    *poller.Logs
	notes   *notify.Center
	now     func() time.Time
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(devices *poller.Devices, logs *poller.Logs, notes *notify.Center) *DeviceHandler {
	return &DeviceHandler{
		devices: devices,
		logs:    logs,
		notes:   notes,
		now:     time.Now,
	}
}

// RegisterRoutes registers the device routes
func (h *DeviceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/devices", h.getDevices).Methods("GET")
	r.HandleFunc("/api/devices", h.createDevice).Methods("POST")
	r.HandleFunc("/api/devices/refresh", h.refreshAll).Methods("POST")
	r.HandleFunc("/api/devices/{id:[0-9]+}", h.getDevice).Methods("GET")
	r.HandleFunc("/api/devices/{id:[0-9]+}", h.updateDevice).Methods("PUT")
	r.HandleFunc("/api/devices/{id:[0-9]+}", h.deleteDevice).Methods("DELETE")
	r.HandleFunc("/api/devices/{id:[0-9]+}/refresh", h.refreshDevice).Methods("POST")
}

// DeviceView is a device with its display fields
type DeviceView struct {
	models.Device
	TypeName     string                `json:"typeName"`
	Color        reference.StatusColor `json:"color"`
	LastCheckAgo string                `json:"lastCheckAgo"`
}

func (h *DeviceHandler) view(d models.Device) DeviceView {
	v := DeviceView{
		Device:   d,
		TypeName: reference.TypeName(d.Type),
		Color:    reference.ColorFor(d.Status),
	}
	if !d.LastCheck.IsZero() {
		v.LastCheckAgo = dashboard.ShortAgo(d.LastCheck, h.now())
	}
	return v
}

// getDevices returns the filtered device list with the page counters
func (h *DeviceHandler) getDevices(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDevices").Logger()

	q := r.URL.Query()
	filter := dashboard.DeviceFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Type:   q.Get("type"),
	}

	// the poller narrows the select filters, the full filter still runs
	all := h.devices.List()
	if filter.Status != "" && filter.Status != dashboard.All {
		all = h.devices.ByStatus(models.DeviceStatus(filter.Status))
	} else if filter.Type != "" && filter.Type != dashboard.All {
		all = h.devices.ByType(models.DeviceType(filter.Type))
	}
	matched := filter.Apply(all)
	views := make([]DeviceView, 0, len(matched))
	for _, d := range matched {
		views = append(views, h.view(d))
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"devices":    views,
		"total":      len(views),
		"summary":    h.devices.Summary(),
		"typeCounts": h.devices.TypeCounts(),
		"state":      h.devices.Status(),
	})
}

// getDevice returns one device with its latest log entries
func (h *DeviceHandler) getDevice(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDevice").Logger()

	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	d, ok := h.devices.Get(id)
	if !ok {
		http.Error(w, reference.MsgDeviceNotFound, http.StatusNotFound)
		return
	}

	entries := h.logs.ForDevice(id)
	stats := poller.ComputeLogStats(entries)
	if len(entries) > deviceLogPreview {
		entries = entries[:deviceLogPreview]
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"device": h.view(d),
		"logs":   entries,
		"stats":  stats,
	})
}

// readForm decodes, sanitizes and validates a device form. It writes the
// error response itself and reports whether the form can be used.
func (h *DeviceHandler) readForm(w http.ResponseWriter, r *http.Request, base models.DeviceForm) (models.DeviceForm, bool) {
	logger := log.With().Str("handler", "readDeviceForm").Logger()

	form := base
	if err := decodeBody(r, &form); err != nil {
		logger.Warn().Err(err).Msg("Invalid device payload")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return form, false
	}

	form = validation.SanitizeDevice(form)
	if res := validation.ValidateDevice(form); !res.IsValid {
		writeInvalid(w, logger, res)
		return form, false
	}
	return form, true
}

// createDevice validates a device form and creates the device
func (h *DeviceHandler) createDevice(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "createDevice").Logger()

	form, ok := h.readForm(w, r, models.NewDeviceForm())
	if !ok {
		return
	}

	created, err := h.devices.Add(r.Context(), form.ToDevice())
	if err != nil {
		h.notes.Error("Failed to add device")
		http.Error(w, "Failed to add device", errorStatus(err))
		return
	}

	h.notes.Success("Device added successfully")
	writeJSON(w, logger, http.StatusCreated, h.view(created))
}

// updateDevice validates a device form and replaces the device
func (h *DeviceHandler) updateDevice(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "updateDevice").Logger()

	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	current, ok := h.devices.Get(id)
	if !ok {
		http.Error(w, reference.MsgDeviceNotFound, http.StatusNotFound)
		return
	}

	form, ok := h.readForm(w, r, models.FormFromDevice(current))
	if !ok {
		return
	}

	updated, err := h.devices.Update(r.Context(), id, form.ToDevice())
	if err != nil {
		h.notes.Error("Failed to update device")
		http.Error(w, "Failed to update device", errorStatus(err))
		return
	}

	h.notes.Success("Device updated successfully")
	writeJSON(w, logger, http.StatusOK, h.view(updated))
}

// deleteDevice removes a device
func (h *DeviceHandler) deleteDevice(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	if err := h.devices.Delete(r.Context(), id); err != nil {
		h.notes.Error("Failed to delete device")
		http.Error(w, "Failed to delete device", errorStatus(err))
		return
	}

	h.notes.Success("Device deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// refreshDevice checks one device now
func (h *DeviceHandler) refreshDevice(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "refreshDevice").Logger()

	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	check, err := h.devices.RefreshDevice(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to refresh device", errorStatus(err))
		return
	}

	writeJSON(w, logger, http.StatusOK, check)
}

// refreshAll checks every device now
func (h *DeviceHandler) refreshAll(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "refreshAll").Logger()

	checks, err := h.devices.RefreshAll(r.Context())
	if err != nil {
		http.Error(w, "Failed to refresh devices", errorStatus(err))
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"checks":  checks,
		"summary": h.devices.Summary(),
	})
}
