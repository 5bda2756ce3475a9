package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"statusnet/internal/mockdata"
	"statusnet/internal/models"
	"statusnet/internal/reference"
)

// Options configures a Client
type Options struct {
	BaseURL string
	// UseMock sends every call to the demonstration backend
	UseMock bool
	// FallbackToMock answers failed reads with demonstration data
	FallbackToMock bool
	Timeout        time.Duration
	// CheckRate is the number of on-demand checks allowed per device and
	// second, zero disables limiting
	CheckRate  float64
	CheckBurst int
	// Generator seeds the demonstration backend, nil uses the built-in roster
	Generator *mockdata.Generator
}

// Status describes the reachability of the backend as last observed
type Status struct {
	Online      bool      `json:"online"`
	UsingMock   bool      `json:"usingMock"`
	LastChecked time.Time `json:"lastChecked"`
	LastError   string    `json:"lastError,omitempty"`
}

// Client is the entry point of the access layer
type Client struct {
	opts    Options
	http    *HTTPBackend
	mock    *MockBackend
	limiter *checkLimiter
	logger  zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// New creates a client from opts
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = reference.DefaultSettings().APIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = reference.TimeoutAPIRequest
	}

	c := &Client{
		opts:    opts,
		http:    NewHTTPBackend(opts.BaseURL, opts.Timeout),
		mock:    NewMockBackend(opts.Generator),
		limiter: newCheckLimiter(rate.Limit(opts.CheckRate), opts.CheckBurst),
		logger:  log.With().Str("component", "client").Logger(),
	}
	c.status.UsingMock = opts.UseMock
	return c
}

// Options returns the options the client was built with
func (c *Client) Options() Options {
	return c.opts
}

// Mock returns the demonstration backend
func (c *Client) Mock() *MockBackend {
	return c.mock
}

// BackendStatus returns the last observed backend state
func (c *Client) BackendStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// UsingMock reports whether the last answer came from demonstration data
func (c *Client) UsingMock() bool {
	return c.BackendStatus().UsingMock
}

// FellBack reports whether the last read was answered with demonstration
// data because the backend failed
func (c *Client) FellBack() bool {
	return !c.opts.UseMock && c.BackendStatus().UsingMock
}

func (c *Client) markOnline() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.status.Online && !c.status.LastChecked.IsZero() {
		c.logger.Info().Str("url", c.opts.BaseURL).Msg("Backend reachable again")
	}
	c.status = Status{Online: true, LastChecked: time.Now()}
}

func (c *Client) markOffline(err error, usingMock bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Online || c.status.LastChecked.IsZero() {
		c.logger.Warn().Err(err).Str("url", c.opts.BaseURL).Bool("fallback", usingMock).Msg("Backend unreachable")
	}
	c.status = Status{
		Online:      false,
		UsingMock:   usingMock,
		LastChecked: time.Now(),
		LastError:   err.Error(),
	}
}

// unreachable reports whether err means the backend could not serve the
// call, as opposed to a definitive answer about the resource
func unreachable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, ErrNotFound)
}

// read runs call on the active backend. When the HTTP backend fails and
// fallback is enabled the call is answered by the demonstration backend.
func read[T any](ctx context.Context, c *Client, op string, call func(Backend) (T, error)) (T, error) {
	if c.opts.UseMock {
		return call(c.mock)
	}

	v, err := call(c.http)
	if err == nil {
		c.markOnline()
		return v, nil
	}
	if !unreachable(ctx, err) {
		return v, err
	}

	if !c.opts.FallbackToMock {
		c.markOffline(err, false)
		return v, fmt.Errorf("%s: %w", op, err)
	}

	c.markOffline(err, true)
	c.logger.Debug().Err(err).Str("op", op).Msg("Serving demonstration data")
	return call(c.mock)
}

// write runs call on the active backend. Failures are returned, never
// replaced by demonstration data.
func write[T any](ctx context.Context, c *Client, op string, call func(Backend) (T, error)) (T, error) {
	if c.opts.UseMock {
		return call(c.mock)
	}

	v, err := call(c.http)
	if err == nil {
		c.markOnline()
		return v, nil
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) && ctx.Err() == nil {
		c.markOffline(err, false)
	}
	return v, fmt.Errorf("%s: %w", op, err)
}

// ListDevices fetches every device
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	return read(ctx, c, "list devices", func(b Backend) ([]models.Device, error) {
		return b.ListDevices(ctx)
	})
}

// GetDevice fetches one device
func (c *Client) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	return read(ctx, c, "get device", func(b Backend) (models.Device, error) {
		return b.GetDevice(ctx, id)
	})
}

// CreateDevice registers a device
func (c *Client) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	return write(ctx, c, "create device", func(b Backend) (models.Device, error) {
		return b.CreateDevice(ctx, d)
	})
}

// UpdateDevice replaces a device
func (c *Client) UpdateDevice(ctx context.Context, id int64, d models.Device) (models.Device, error) {
	return write(ctx, c, "update device", func(b Backend) (models.Device, error) {
		return b.UpdateDevice(ctx, id, d)
	})
}

// DeleteDevice removes a device
func (c *Client) DeleteDevice(ctx context.Context, id int64) error {
	_, err := write(ctx, c, "delete device", func(b Backend) (struct{}, error) {
		return struct{}{}, b.DeleteDevice(ctx, id)
	})
	if err == nil {
		c.limiter.forget(id)
	}
	return err
}

// ListLogs fetches the logs of a device, or all logs when deviceID is zero
func (c *Client) ListLogs(ctx context.Context, deviceID int64) ([]models.StatusLogEntry, error) {
	return read(ctx, c, "list logs", func(b Backend) ([]models.StatusLogEntry, error) {
		return b.ListLogs(ctx, deviceID)
	})
}

// CreateLog records a log entry
func (c *Client) CreateLog(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error) {
	return write(ctx, c, "create log", func(b Backend) (models.StatusLogEntry, error) {
		return b.CreateLog(ctx, entry)
	})
}

// SystemStatus fetches the backend health
func (c *Client) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	return read(ctx, c, "system status", func(b Backend) (models.SystemStatus, error) {
		return b.SystemStatus(ctx)
	})
}

// Stats fetches the aggregated network statistics
func (c *Client) Stats(ctx context.Context) (models.NetworkStats, error) {
	return read(ctx, c, "stats", func(b Backend) (models.NetworkStats, error) {
		return b.Stats(ctx)
	})
}

// CheckDevice requests an immediate check of one device
func (c *Client) CheckDevice(ctx context.Context, id int64) (models.DeviceCheck, error) {
	if !c.limiter.allow(id) {
		return models.DeviceCheck{}, ErrRateLimited
	}
	return read(ctx, c, "check device", func(b Backend) (models.DeviceCheck, error) {
		return b.CheckDevice(ctx, id)
	})
}

// CheckAll requests an immediate check of every device
func (c *Client) CheckAll(ctx context.Context) ([]models.DeviceCheck, error) {
	return read(ctx, c, "check all", func(b Backend) ([]models.DeviceCheck, error) {
		return b.CheckAll(ctx)
	})
}

// TestConnection calls the status endpoint of the HTTP backend with the
// short connection test timeout and records the outcome. It ignores mock
// mode so the user can check a backend before switching to it.
func (c *Client) TestConnection(ctx context.Context) models.ConnectionResult {
	ctx, cancel := context.WithTimeout(ctx, reference.TimeoutConnectionTest)
	defer cancel()

	start := time.Now()
	st, err := c.http.SystemStatus(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		c.markOffline(err, c.opts.UseMock || c.opts.FallbackToMock)
		return models.ConnectionResult{
			Success:      false,
			ResponseTime: elapsed,
			Error:        err.Error(),
			Message:      reference.MsgBackendOffline,
		}
	}

	c.markOnline()
	if c.opts.UseMock {
		c.mu.Lock()
		c.status.UsingMock = true
		c.mu.Unlock()
	}

	msg := st.Message
	if msg == "" {
		msg = "Backend connected"
	}
	return models.ConnectionResult{
		Success:      true,
		ResponseTime: elapsed,
		Message:      msg,
		ServerTime:   st.ServerTime,
	}
}
