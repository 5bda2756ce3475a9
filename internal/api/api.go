// Package api exposes the dashboard pages as a JSON API: devices, logs,
// system status, settings, notifications and static reference data.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/client"
	"statusnet/internal/validation"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeInvalid answers a failed validation without reaching the backend
func writeInvalid(w http.ResponseWriter, logger zerolog.Logger, res validation.Result) {
	logger.Debug().Interface("errors", res.Errors).Msg("Validation failed")
	writeJSON(w, logger, http.StatusUnprocessableEntity, res)
}

// parseID reads the {id} route variable
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// errorStatus maps client errors to HTTP statuses
func errorStatus(err error) int {
	var statusErr *client.StatusError
	switch {
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500:
		return statusErr.Code
	default:
		return http.StatusBadGateway
	}
}

// decodeBody decodes a JSON request body into v
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}

// queryInt reads an integer query parameter, returning def when it is
// missing or malformed
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// Middleware wraps the router with panic recovery and request logging
func Middleware(next http.Handler) http.Handler {
	logged := handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Debug().
			Str("component", "http").
			Str("method", p.Request.Method).
			Str("path", p.URL.Path).
			Int("status", p.StatusCode).
			Int("size", p.Size).
			Dur("elapsed", time.Since(p.TimeStamp)).
			Msg("Request served")
	})
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(logged)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Str("component", "http").Interface("panic", v).Msg("Handler panicked")
}
