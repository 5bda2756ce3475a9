// Package client is the access layer to the external monitoring backend.
// Every call goes through a Backend: either the JSON/HTTP backend or the
// in-memory demonstration backend. Client composes the two and falls back
// to demonstration data on read failures.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"statusnet/internal/models"
)

var (
	// ErrNotFound is returned when the backend does not know an identifier
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned when a device check is requested too often
	ErrRateLimited = errors.New("device check rate limited")
)

// StatusError is a non-2xx backend response
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
}

// Is lets a 404 match ErrNotFound
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Backend is the set of operations offered by a monitoring backend
type Backend interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDevice(ctx context.Context, id int64) (models.Device, error)
	CreateDevice(ctx context.Context, d models.Device) (models.Device, error)
	UpdateDevice(ctx context.Context, id int64, d models.Device) (models.Device, error)
	DeleteDevice(ctx context.Context, id int64) error

	// ListLogs returns the logs of one device, or of every device when
	// deviceID is zero.
	ListLogs(ctx context.Context, deviceID int64) ([]models.StatusLogEntry, error)
	CreateLog(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error)

	SystemStatus(ctx context.Context) (models.SystemStatus, error)
	Stats(ctx context.Context) (models.NetworkStats, error)

	CheckDevice(ctx context.Context, id int64) (models.DeviceCheck, error)
	CheckAll(ctx context.Context) ([]models.DeviceCheck, error)
}
