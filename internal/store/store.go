// Package store holds the single in-memory copy of the device inventory.
// Every consumer that needs device fields (the device list, log rendering,
// the dashboard summary) reads them from here by id, so no two views can
// disagree about a device.
package store

import (
	"sync"

	"statusnet/internal/models"
)

// Devices is a concurrency-safe device collection keyed by id
type Devices struct {
	mu      sync.RWMutex
	devices map[int64]models.Device
	order   []int64
}

// NewDevices creates an empty store
func NewDevices() *Devices {
	return &Devices{devices: make(map[int64]models.Device)}
}

// Replace swaps the whole collection, keeping the given order
func (s *Devices) Replace(devices []models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices = make(map[int64]models.Device, len(devices))
	s.order = make([]int64, 0, len(devices))
	for _, d := range devices {
		if _, dup := s.devices[d.ID]; !dup {
			s.order = append(s.order, d.ID)
		}
		s.devices[d.ID] = d
	}
}

// Get returns a device by id
func (s *Devices) Get(id int64) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	return d, ok
}

// List returns a copy of every device in insertion order
func (s *Devices) List() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Device, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.devices[id])
	}
	return out
}

// Len returns the number of stored devices
func (s *Devices) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// CountByStatus returns the number of devices per status
func (s *Devices) CountByStatus() map[models.DeviceStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.DeviceStatus]int)
	for _, d := range s.devices {
		counts[d.Status]++
	}
	return counts
}

// CountByType returns the number of devices per type. Devices without a
// type are counted as "unknown".
func (s *Devices) CountByType() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, d := range s.devices {
		key := string(d.Type)
		if key == "" {
			key = "unknown"
		}
		counts[key]++
	}
	return counts
}

// Summary returns the device counts shown on the dashboard
func (s *Devices) Summary() models.DeviceSummary {
	counts := s.CountByStatus()
	return models.DeviceSummary{
		Total:   s.Len(),
		Online:  counts[models.StatusOnline],
		Offline: counts[models.StatusOffline],
		Slow:    counts[models.StatusSlow],
	}
}

// Filter returns the devices matching keep, in list order
func (s *Devices) Filter(keep func(models.Device) bool) []models.Device {
	var out []models.Device
	for _, d := range s.List() {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// LogView joins a log entry with the current device fields. Entries of
// unknown devices keep empty display fields.
func (s *Devices) LogView(entry models.StatusLogEntry) models.LogView {
	view := models.LogView{StatusLogEntry: entry}
	if d, ok := s.Get(entry.DeviceID); ok {
		view.DeviceName = d.Name
		view.DeviceIP = d.IP
	}
	return view
}

// LogViews joins every entry of logs
func (s *Devices) LogViews(logs []models.StatusLogEntry) []models.LogView {
	out := make([]models.LogView, 0, len(logs))
	for _, l := range logs {
		out = append(out, s.LogView(l))
	}
	return out
}
