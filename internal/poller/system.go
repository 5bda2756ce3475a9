package poller

import (
	"context"
	"sync"
	"time"

	"statusnet/internal/models"
	"statusnet/internal/reference"
)

// SystemInterval is the refresh interval of the system status
const SystemInterval = 10 * time.Second

// SystemAPI is the part of the backend client used by the system poller
type SystemAPI interface {
	SystemStatus(ctx context.Context) (models.SystemStatus, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	// FellBack reports whether the last answer was demonstration data
	// served in place of a failed backend call
	FellBack() bool
}

// System tracks the backend health and device summary
type System struct {
	res  *Resource[models.SystemStatus]
	api  SystemAPI
	demo models.DeviceSummary

	mu      sync.RWMutex
	lastErr error
}

// NewSystem creates the system status poller. demo is the summary shown
// when nothing can be fetched at all.
func NewSystem(api SystemAPI, demo models.DeviceSummary, opts Options) *System {
	if opts.Name == "" {
		opts.Name = "system"
	}
	if opts.Interval <= 0 {
		opts.Interval = SystemInterval
	}

	s := &System{api: api, demo: demo}
	s.res = NewResource[models.SystemStatus](opts, s.fetch, nil)
	return s
}

// fetch never fails: an unreachable backend is itself a status to report
func (s *System) fetch(ctx context.Context) (models.SystemStatus, error) {
	var (
		wg                   sync.WaitGroup
		status               models.SystemStatus
		devices              []models.Device
		statusErr, deviceErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		status, statusErr = s.api.SystemStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		devices, deviceErr = s.api.ListDevices(ctx)
	}()
	wg.Wait()

	if ctx.Err() != nil {
		return models.SystemStatus{}, ctx.Err()
	}

	err := statusErr
	if err == nil {
		err = deviceErr
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	if err != nil || s.api.FellBack() {
		offline := models.SystemStatus{
			Status:  "offline",
			Message: reference.MsgDemoMode,
			Devices: s.demo,
		}
		if deviceErr == nil && len(devices) > 0 {
			offline.Devices = summarize(devices)
		}
		return offline, nil
	}

	if status.Message == "" {
		status.Message = "System operational"
	}
	if status.Devices.Total == 0 {
		status.Devices = summarize(devices)
	}
	return status, nil
}

func summarize(devices []models.Device) models.DeviceSummary {
	sum := models.DeviceSummary{Total: len(devices)}
	for _, d := range devices {
		switch d.Status {
		case models.StatusOnline:
			sum.Online++
		case models.StatusOffline:
			sum.Offline++
		case models.StatusSlow:
			sum.Slow++
		}
	}
	return sum
}

// Start begins polling
func (s *System) Start(ctx context.Context) { s.res.Start(ctx) }

// Stop ends polling
func (s *System) Stop() { s.res.Stop() }

// Load fetches the status, silently or not
func (s *System) Load(ctx context.Context, silent bool) error {
	return s.res.Load(ctx, silent)
}

// Current returns the last known system status
func (s *System) Current() models.SystemStatus { return s.res.Data() }

// Status returns the loading state, including the last backend error
func (s *System) Status() Status {
	st := s.res.Status()
	s.mu.RLock()
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	s.mu.RUnlock()
	return st
}
