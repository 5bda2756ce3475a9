package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"statusnet/internal/notify"
)

const defaultNotificationCount = 20

// NotificationHandler exposes the notification center
type NotificationHandler struct {
	notes *notify.Center
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notes *notify.Center) *NotificationHandler {
	return &NotificationHandler{notes: notes}
}

// RegisterRoutes registers the notification routes
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/notifications", h.getNotifications).Methods("GET")
	r.HandleFunc("/api/notifications/read", h.markRead).Methods("POST")
}

// getNotifications returns the newest notifications first
func (h *NotificationHandler) getNotifications(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getNotifications").Logger()

	writeJSON(w, logger, http.StatusOK, map[string]interface{}{
		"notifications": h.notes.Recent(queryInt(r, "limit", defaultNotificationCount)),
		"unread":        h.notes.Unread(),
	})
}

func (h *NotificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	h.notes.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}
