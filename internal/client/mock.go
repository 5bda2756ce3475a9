package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/mockdata"
	"statusnet/internal/models"
)

// MockBackend serves a generated demonstration dataset from memory. Writes
// are applied to the dataset and visible to later reads.
type MockBackend struct {
	mu      sync.Mutex
	gen     *mockdata.Generator
	ds      mockdata.Dataset
	latency time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewMockBackend creates a mock backend seeded from gen. A nil gen uses the
// built-in roster.
func NewMockBackend(gen *mockdata.Generator) *MockBackend {
	if gen == nil {
		gen = mockdata.Default()
	}
	m := &MockBackend{
		gen:    gen,
		now:    time.Now,
		logger: log.With().Str("component", "mock-backend").Logger(),
	}
	m.ds = gen.Generate(m.now())
	return m
}

// SetLatency makes every call wait d before answering
func (m *MockBackend) SetLatency(d time.Duration) {
	m.mu.Lock()
	m.latency = d
	m.mu.Unlock()
}

// Reset regenerates the dataset, dropping every write
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ds = m.gen.Generate(m.now())
	m.logger.Debug().Int("devices", len(m.ds.Devices)).Msg("Demonstration data regenerated")
}

// wait simulates network latency, honouring ctx
func (m *MockBackend) wait(ctx context.Context) error {
	m.mu.Lock()
	d := m.latency
	m.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockBackend) indexOf(id int64) int {
	for i, d := range m.ds.Devices {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func copyDevice(d models.Device) models.Device {
	d.Tags = append([]string{}, d.Tags...)
	if d.ResponseTime != nil {
		d.ResponseTime = models.IntPtr(*d.ResponseTime)
	}
	return d
}

// ListDevices returns every demonstration device
func (m *MockBackend) ListDevices(ctx context.Context) ([]models.Device, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Device, 0, len(m.ds.Devices))
	for _, d := range m.ds.Devices {
		out = append(out, copyDevice(d))
	}
	return out, nil
}

// GetDevice returns one demonstration device
func (m *MockBackend) GetDevice(ctx context.Context, id int64) (models.Device, error) {
	if err := m.wait(ctx); err != nil {
		return models.Device{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return models.Device{}, ErrNotFound
	}
	return copyDevice(m.ds.Devices[i]), nil
}

// CreateDevice adds a device with the next free id and unknown status
func (m *MockBackend) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	if err := m.wait(ctx); err != nil {
		return models.Device{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var maxID int64
	for _, existing := range m.ds.Devices {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}

	now := m.now()
	d = copyDevice(d)
	d.ID = maxID + 1
	if d.Status == "" {
		d.Status = models.StatusUnknown
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	d.LastCheck = now
	d.CreatedAt = now
	d.UpdatedAt = now

	m.ds.Devices = append(m.ds.Devices, d)
	m.gen.Restat(&m.ds, now)
	return copyDevice(d), nil
}

// UpdateDevice replaces the editable fields of a device. Status, check
// results and the creation time are kept.
func (m *MockBackend) UpdateDevice(ctx context.Context, id int64, d models.Device) (models.Device, error) {
	if err := m.wait(ctx); err != nil {
		return models.Device{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return models.Device{}, ErrNotFound
	}

	current := m.ds.Devices[i]
	updated := copyDevice(d)
	updated.ID = id
	updated.Status = current.Status
	updated.LastCheck = current.LastCheck
	updated.ResponseTime = current.ResponseTime
	updated.Uptime = current.Uptime
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = m.now()
	if updated.Tags == nil {
		updated.Tags = []string{}
	}

	m.ds.Devices[i] = updated
	m.gen.Restat(&m.ds, updated.UpdatedAt)
	return copyDevice(updated), nil
}

// DeleteDevice removes a device and its logs
func (m *MockBackend) DeleteDevice(ctx context.Context, id int64) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.ds.Devices = append(m.ds.Devices[:i], m.ds.Devices[i+1:]...)

	kept := m.ds.Logs[:0]
	for _, l := range m.ds.Logs {
		if l.DeviceID != id {
			kept = append(kept, l)
		}
	}
	m.ds.Logs = kept
	m.gen.Restat(&m.ds, m.now())
	return nil
}

// ListLogs returns the logs of a device, or every log when deviceID is zero
func (m *MockBackend) ListLogs(ctx context.Context, deviceID int64) ([]models.StatusLogEntry, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.StatusLogEntry, 0, len(m.ds.Logs))
	for _, l := range m.ds.Logs {
		if deviceID == 0 || l.DeviceID == deviceID {
			out = append(out, l)
		}
	}
	return out, nil
}

// DeviceHistory is the recent check history of a demonstration device
type DeviceHistory struct {
	Logs    []models.StatusLogEntry `json:"logs"`
	Samples []mockdata.HistoryPoint `json:"samples"`
	Uptime  string                  `json:"uptime"`
}

// DeviceHistory returns the checks of a device over the last hours, newest
// first, with one status sample per check and the uptime over every kept check
func (m *MockBackend) DeviceHistory(ctx context.Context, id int64, hours int) (DeviceHistory, error) {
	if err := m.wait(ctx); err != nil {
		return DeviceHistory{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(id) < 0 {
		return DeviceHistory{}, ErrNotFound
	}

	logs := append([]models.StatusLogEntry{}, m.ds.DeviceLogs(id, hours)...)
	samples := m.ds.StatusHistory(id)
	if len(samples) > len(logs) {
		samples = samples[:len(logs)]
	}
	return DeviceHistory{
		Logs:    logs,
		Samples: append([]mockdata.HistoryPoint{}, samples...),
		Uptime:  m.ds.Uptime(id),
	}, nil
}

// CreateLog prepends a log entry with the next free id
func (m *MockBackend) CreateLog(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error) {
	if err := m.wait(ctx); err != nil {
		return models.StatusLogEntry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = m.nextLogID()
	now := m.now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}
	entry.CreatedAt = now
	m.ds.Logs = append([]models.StatusLogEntry{entry}, m.ds.Logs...)
	return entry, nil
}

func (m *MockBackend) nextLogID() int64 {
	var maxID int64
	for _, l := range m.ds.Logs {
		if l.ID > maxID {
			maxID = l.ID
		}
	}
	return maxID + 1
}

// SystemStatus reports the mock backend as online with the current counts
func (m *MockBackend) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	if err := m.wait(ctx); err != nil {
		return models.SystemStatus{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	st := models.SystemStatus{
		Status:     "online",
		Message:    "Demonstration data",
		ServerTime: m.now(),
	}
	st.Devices.Total = len(m.ds.Devices)
	for _, d := range m.ds.Devices {
		switch d.Status {
		case models.StatusOnline:
			st.Devices.Online++
		case models.StatusOffline:
			st.Devices.Offline++
		case models.StatusSlow:
			st.Devices.Slow++
		}
	}
	return st, nil
}

// Stats returns the statistics of the current dataset
func (m *MockBackend) Stats(ctx context.Context) (models.NetworkStats, error) {
	if err := m.wait(ctx); err != nil {
		return models.NetworkStats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ds.Stats, nil
}

// CheckDevice simulates a check of one device. The device keeps its status,
// except unknown devices which come back online. The check is also recorded
// as a log entry.
func (m *MockBackend) CheckDevice(ctx context.Context, id int64) (models.DeviceCheck, error) {
	if err := m.wait(ctx); err != nil {
		return models.DeviceCheck{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return models.DeviceCheck{}, ErrNotFound
	}
	return m.check(i, m.now()), nil
}

// CheckAll simulates a check of every device
func (m *MockBackend) CheckAll(ctx context.Context) ([]models.DeviceCheck, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	checks := make([]models.DeviceCheck, 0, len(m.ds.Devices))
	for i := range m.ds.Devices {
		checks = append(checks, m.check(i, now))
	}
	m.gen.Restat(&m.ds, now)
	return checks, nil
}

// check must be called with mu held
func (m *MockBackend) check(i int, now time.Time) models.DeviceCheck {
	d := &m.ds.Devices[i]
	status := d.Status
	if status == models.StatusUnknown || status == "" {
		status = models.StatusOnline
	}

	entry := m.gen.Sample(m.nextLogID(), d.ID, status, now)
	m.ds.Logs = append([]models.StatusLogEntry{entry}, m.ds.Logs...)

	d.Status = status
	d.LastCheck = now
	d.ResponseTime = entry.ResponseTime
	d.Uptime = m.ds.Uptime(d.ID)

	return models.DeviceCheck{
		DeviceID:     d.ID,
		Status:       status,
		ResponseTime: entry.ResponseTime,
		Timestamp:    now,
	}
}
