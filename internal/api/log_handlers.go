package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/client"
	"statusnet/internal/dashboard"
	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/poller"
	"statusnet/internal/reference"
	"statusnet/internal/store"
	"statusnet/internal/validation"
)

// Log page defaults
const (
	defaultLogPage      = 50
	defaultHistoryHours = 24
)

// LogHandler handles status log endpoints
type LogHandler struct {
	logs    *poller.Logs
	devices *store.Devices
	demo    DemoSource
	notes   *notify.Center
	now     func() time.Time
}

// NewLogHandler creates a new log handler. demo may be nil.
func NewLogHandler(logs *poller.Logs, devices *store.Devices, demo DemoSource, notes *notify.Center) *LogHandler {
	return &LogHandler{
		logs:    logs,
		devices: devices,
		demo:    demo,
		notes:   notes,
		now:     time.Now,
	}
}

// RegisterRoutes registers the log routes
func (h *LogHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/logs", h.getLogs).Methods("GET")
	r.HandleFunc("/api/logs", h.createLog).Methods("POST")
	r.HandleFunc("/api/logs", h.clearLogs).Methods("DELETE")
	r.HandleFunc("/api/logs/export", h.exportLogs).Methods("GET")
	r.HandleFunc("/api/logs/history", h.getHistory).Methods("GET")
	r.HandleFunc("/api/logs/{id:[0-9]+}", h.getLog).Methods("GET")
}

// LogItem is a log entry with its display fields
type LogItem struct {
	models.LogView
	Time    string `json:"time"`
	TimeAgo string `json:"timeAgo"`
}

func (h *LogHandler) item(v models.LogView, now time.Time) LogItem {
	return LogItem{
		LogView: v,
		Time:    dashboard.FormatDateTime(v.Timestamp.In(now.Location())),
		TimeAgo: dashboard.TimeAgo(v.Timestamp, now),
	}
}

// filterFromQuery reads the log filter. The date range defaults to today.
func filterFromQuery(r *http.Request) dashboard.LogFilter {
	q := r.URL.Query()
	f := dashboard.LogFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Range:  q.Get("range"),
	}
	if f.Range == "" {
		f.Range = dashboard.RangeToday
	}
	if id, err := strconv.ParseInt(q.Get("deviceId"), 10, 64); err == nil {
		f.DeviceID = id
	}
	return f
}

// filtered narrows the kept entries with the poller's status or date range
// selection before the full filter runs
func (h *LogHandler) filtered(r *http.Request, now time.Time) []models.LogView {
	f := filterFromQuery(r)

	var entries []models.StatusLogEntry
	if f.Status != "" && f.Status != dashboard.All {
		entries = h.logs.FilterByStatus(models.DeviceStatus(f.Status))
	} else if start, end, ok := dashboard.RangeBounds(f.Range, now); ok {
		entries = h.logs.FilterByDateRange(start, end)
	} else {
		entries = h.logs.List()
	}
	return f.Apply(h.devices.LogViews(entries), now)
}

// getLogs returns the filtered log page
func (h *LogHandler) getLogs(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLogs").Logger()

	now := h.now()
	views := h.filtered(r, now)
	stats := dashboard.LogPageStats(views, now)

	limit := queryInt(r, "limit", defaultLogPage)
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}

	items := make([]LogItem, 0, len(views))
	for _, v := range views {
		items = append(items, h.item(v, now))
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"logs":      items,
		"total":     stats.TotalLogs,
		"stats":     stats,
		"hasErrors": h.logs.HasErrors(),
		"state":     h.logs.Status(),
	})
}

// createLog records a status log entry
func (h *LogHandler) createLog(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "createLog").Logger()

	var entry models.StatusLogEntry
	if err := decodeBody(r, &entry); err != nil {
		logger.Warn().Err(err).Msg("Invalid log payload")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	entry.Details = validation.SanitizeInput(entry.Details)

	if res := validation.ValidateLog(entry); !res.IsValid {
		writeInvalid(w, logger, res)
		return
	}

	created, err := h.logs.Add(r.Context(), entry)
	if err != nil {
		h.notes.Error("Failed to add log")
		http.Error(w, "Failed to add log", errorStatus(err))
		return
	}

	writeJSON(w, logger, http.StatusCreated, h.devices.LogView(created))
}

// clearLogs drops the kept log entries
func (h *LogHandler) clearLogs(w http.ResponseWriter, r *http.Request) {
	h.logs.Clear()
	h.notes.Success("Logs cleared")
	w.WriteHeader(http.StatusNoContent)
}

// exportLogs downloads the filtered logs as CSV
func (h *LogHandler) exportLogs(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "exportLogs").Logger()

	views := h.filtered(r, h.now())

	var buf bytes.Buffer
	if err := dashboard.WriteCSV(&buf, views); err != nil {
		if errors.Is(err, dashboard.ErrNothingToExport) {
			h.notes.Error("No logs to export")
			http.Error(w, "No logs to export", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to write CSV")
		h.notes.Error("Failed to export logs")
		http.Error(w, "Failed to export logs", http.StatusInternalServerError)
		return
	}

	name := dashboard.ExportFilename(h.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error().Err(err).Msg("Failed to send export")
		return
	}

	logger.Info().Int("rows", len(views)).Str("file", name).Msg("Logs exported")
	h.notes.Success("Logs exported successfully")
}

// getLog returns one kept log entry
func (h *LogHandler) getLog(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLog").Logger()

	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid log ID", http.StatusBadRequest)
		return
	}

	entry, ok := h.logs.Get(id)
	if !ok {
		http.Error(w, "Log not found", http.StatusNotFound)
		return
	}

	writeJSON(w, logger, http.StatusOK, h.item(h.devices.LogView(entry), h.now()))
}

// getHistory returns the hourly availability chart of the kept logs. For a
// single device served from demonstration data the chart covers its generated
// history, with the status samples and uptime.
func (h *LogHandler) getHistory(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHistory").Logger()

	hours := queryInt(r, "hours", defaultHistoryHours)
	if hours <= 0 {
		hours = defaultHistoryHours
	}

	entries := h.logs.List()
	id, err := strconv.ParseInt(r.URL.Query().Get("deviceId"), 10, 64)
	if err == nil {
		if h.demo != nil && h.demo.UsingMock() {
			h.demoHistory(w, r, id, hours)
			return
		}
		entries = h.logs.ForDevice(id)
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"hours":  hours,
		"points": dashboard.HourlyHistory(entries, hours, h.now()),
	})
}

func (h *LogHandler) demoHistory(w http.ResponseWriter, r *http.Request, id int64, hours int) {
	logger := log.With().Str("handler", "getHistory").Int64("deviceId", id).Logger()

	hist, err := h.demo.Mock().DeviceHistory(r.Context(), id, hours)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			http.Error(w, reference.MsgDeviceNotFound, http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("Failed to read demonstration history")
		http.Error(w, "Failed to load history", errorStatus(err))
		return
	}

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"hours":   hours,
		"points":  dashboard.HourlyHistory(hist.Logs, hours, h.now()),
		"samples": hist.Samples,
		"uptime":  hist.Uptime,
	})
}
