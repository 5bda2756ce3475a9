package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
	"statusnet/internal/reference"
)

const maxErrorBody = 512

// HTTPBackend talks JSON to a monitoring backend over HTTP
type HTTPBackend struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewHTTPBackend creates a backend rooted at baseURL. A zero timeout uses
// the default API request timeout.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = reference.TimeoutAPIRequest
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log.With().Str("component", "backend").Logger(),
	}
}

// BaseURL returns the root URL of the backend
func (b *HTTPBackend) BaseURL() string {
	return b.baseURL
}

// do performs a request and decodes the JSON response into out when non-nil
func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out interface{}) error {
	raw, err := b.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (b *HTTPBackend) doRaw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Debug().Err(err).Str("request_id", requestID).Str("method", method).Str("path", path).Msg("Backend request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, path, err)
	}

	b.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: msg}
	}
	return raw, nil
}

// decodeList accepts either a bare JSON array or an object wrapping the
// array under one of keys or "data"
func decodeList[T any](raw []byte, keys ...string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}

	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	for _, key := range append(keys, "data") {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		out := []T{}
		if err := json.Unmarshal(inner, &out); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("response holds no list")
}

// ListDevices fetches every device
func (b *HTTPBackend) ListDevices(ctx context.Context) ([]models.Device, error) {
	raw, err := b.doRaw(ctx, http.MethodGet, reference.EndpointDevices, nil)
	if err != nil {
		return nil, err
	}
	devices, err := decodeList[models.Device](raw, "devices")
	if err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}
	return devices, nil
}

// GetDevice fetches one device
func (b *HTTPBackend) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	var d models.Device
	err := b.do(ctx, http.MethodGet, reference.Endpoint(reference.EndpointDeviceByID, id), nil, &d)
	return d, err
}

// CreateDevice registers a device and returns the stored copy
func (b *HTTPBackend) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	var created models.Device
	err := b.do(ctx, http.MethodPost, reference.EndpointDevices, d, &created)
	return created, err
}

// UpdateDevice replaces a device and returns the stored copy
func (b *HTTPBackend) UpdateDevice(ctx context.Context, id int64, d models.Device) (models.Device, error) {
	var updated models.Device
	err := b.do(ctx, http.MethodPut, reference.Endpoint(reference.EndpointDeviceByID, id), d, &updated)
	return updated, err
}

// DeleteDevice removes a device
func (b *HTTPBackend) DeleteDevice(ctx context.Context, id int64) error {
	return b.do(ctx, http.MethodDelete, reference.Endpoint(reference.EndpointDeviceByID, id), nil, nil)
}

// ListLogs fetches the logs of a device, or all logs when deviceID is zero
func (b *HTTPBackend) ListLogs(ctx context.Context, deviceID int64) ([]models.StatusLogEntry, error) {
	path := reference.EndpointLogs
	if deviceID > 0 {
		path += "?" + url.Values{"deviceId": {strconv.FormatInt(deviceID, 10)}}.Encode()
	}
	raw, err := b.doRaw(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	logs, err := decodeList[models.StatusLogEntry](raw, "logs")
	if err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	return logs, nil
}

// CreateLog records a log entry
func (b *HTTPBackend) CreateLog(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error) {
	var created models.StatusLogEntry
	err := b.do(ctx, http.MethodPost, reference.EndpointLogs, entry, &created)
	return created, err
}

// SystemStatus fetches the backend health
func (b *HTTPBackend) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	var st models.SystemStatus
	err := b.do(ctx, http.MethodGet, reference.EndpointStatus, nil, &st)
	return st, err
}

// Stats fetches the aggregated network statistics
func (b *HTTPBackend) Stats(ctx context.Context) (models.NetworkStats, error) {
	var st models.NetworkStats
	err := b.do(ctx, http.MethodGet, reference.EndpointStats, nil, &st)
	return st, err
}

// CheckDevice asks the backend to check one device now
func (b *HTTPBackend) CheckDevice(ctx context.Context, id int64) (models.DeviceCheck, error) {
	var check models.DeviceCheck
	err := b.do(ctx, http.MethodGet, reference.Endpoint(reference.EndpointPingDevice, id), nil, &check)
	if err == nil && check.DeviceID == 0 {
		check.DeviceID = id
	}
	return check, err
}

// CheckAll asks the backend to check every device now
func (b *HTTPBackend) CheckAll(ctx context.Context) ([]models.DeviceCheck, error) {
	raw, err := b.doRaw(ctx, http.MethodPost, reference.EndpointCheckAll, struct{}{})
	if err != nil {
		return nil, err
	}
	checks, err := decodeList[models.DeviceCheck](raw, "results", "checks")
	if err != nil {
		return nil, fmt.Errorf("failed to decode check results: %w", err)
	}
	return checks, nil
}
