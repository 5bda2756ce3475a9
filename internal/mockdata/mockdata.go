// Package mockdata generates the demonstration dataset served when the
// backend is disabled or unreachable: a fixed roster of devices and a
// synthetic history of status checks for each of them.
//
// The roster and the number of checks per device never change between runs.
// Only the numeric noise (response times, random failures) does, unless the
// caller injects a seeded random source.
package mockdata

import (
	"math/rand"
	"sort"
	"time"

	"statusnet/internal/models"
)

// DefaultLogsPerDevice is the number of checks generated for every device
const DefaultLogsPerDevice = 96

// DefaultStep is the simulated time between two checks of a device
const DefaultStep = 30 * time.Minute

// PatternKind selects how a fixture's check statuses are produced
type PatternKind string

const (
	// PatternRandom marks most checks online, with occasional degraded
	// checks that escalate to offline after three in a row.
	PatternRandom PatternKind = "random"
	// PatternOutage starts the history offline, then slow, then online.
	PatternOutage PatternKind = "outage"
	// PatternSlowWindow is online except for a window of slow checks.
	PatternSlowWindow PatternKind = "slow-window"
)

// Pattern scripts the status of each generated check. Indexes count checks
// from the oldest one.
type Pattern struct {
	Kind PatternKind `json:"kind" yaml:"kind"`

	// Outage: checks before OfflineUntil are offline, before SlowUntil slow.
	OfflineUntil int `json:"offlineUntil,omitempty" yaml:"offlineUntil"`
	SlowUntil    int `json:"slowUntil,omitempty" yaml:"slowUntil"`

	// Slow window: checks strictly between From and To are slow.
	From int `json:"from,omitempty" yaml:"from"`
	To   int `json:"to,omitempty" yaml:"to"`

	// Random: probability that a check is degraded.
	FailureRate float64 `json:"failureRate,omitempty" yaml:"failureRate"`
}

// Fixture is one device of the demonstration roster. Times are stored as
// ages relative to the generation instant.
type Fixture struct {
	Device       models.Device
	LastCheckAgo time.Duration
	CreatedAgo   time.Duration
	UpdatedAgo   time.Duration
	Pattern      Pattern
}

// Generator produces datasets from a roster of fixtures
type Generator struct {
	Fixtures      []Fixture
	LogsPerDevice int
	Step          time.Duration
	rnd           *rand.Rand
}

// New creates a generator over the given fixtures. A nil rnd uses a
// time-seeded source.
func New(fixtures []Fixture, rnd *rand.Rand) *Generator {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{
		Fixtures:      fixtures,
		LogsPerDevice: DefaultLogsPerDevice,
		Step:          DefaultStep,
		rnd:           rnd,
	}
}

// Default creates a generator over the built-in roster
func Default() *Generator {
	return New(DefaultFixtures(), nil)
}

// Dataset is one generated snapshot of devices, logs and statistics
type Dataset struct {
	Devices     []models.Device
	Logs        []models.StatusLogEntry
	Stats       models.NetworkStats
	GeneratedAt time.Time
}

// Generate builds a dataset as seen at now
func (g *Generator) Generate(now time.Time) Dataset {
	devices := make([]models.Device, 0, len(g.Fixtures))
	for _, f := range g.Fixtures {
		devices = append(devices, g.device(f, now))
	}

	logs := make([]models.StatusLogEntry, 0, len(g.Fixtures)*g.LogsPerDevice)
	for _, f := range g.Fixtures {
		logs = g.appendLogs(logs, f, now)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})

	ds := Dataset{
		Devices:     devices,
		Logs:        logs,
		GeneratedAt: now,
	}
	ds.Stats = g.stats(ds)
	return ds
}

func (g *Generator) device(f Fixture, now time.Time) models.Device {
	d := f.Device
	d.Tags = append([]string(nil), f.Device.Tags...)
	if f.Device.ResponseTime != nil {
		d.ResponseTime = models.IntPtr(*f.Device.ResponseTime)
	}
	d.LastCheck = now.Add(-f.LastCheckAgo)
	d.CreatedAt = now.Add(-f.CreatedAgo)
	d.UpdatedAt = now.Add(-f.UpdatedAgo)
	return d
}

func (g *Generator) appendLogs(logs []models.StatusLogEntry, f Fixture, now time.Time) []models.StatusLogEntry {
	consecutive := 0
	for i := 0; i < g.LogsPerDevice; i++ {
		ts := now.Add(-time.Duration(g.LogsPerDevice-i) * g.Step)

		var status models.DeviceStatus
		switch f.Pattern.Kind {
		case PatternOutage:
			switch {
			case i < f.Pattern.OfflineUntil:
				status = models.StatusOffline
			case i < f.Pattern.SlowUntil:
				status = models.StatusSlow
			default:
				status = models.StatusOnline
			}
		case PatternSlowWindow:
			if i > f.Pattern.From && i < f.Pattern.To {
				status = models.StatusSlow
			} else {
				status = models.StatusOnline
			}
		default:
			if g.rnd.Float64() < f.Pattern.FailureRate {
				consecutive++
				if consecutive > 3 {
					status = models.StatusOffline
				} else {
					status = models.StatusSlow
				}
			} else {
				consecutive = 0
				status = models.StatusOnline
			}
		}

		logs = append(logs, g.entry(int64(len(logs)+1), f.Device.ID, status, ts))
	}
	return logs
}

func (g *Generator) entry(id, deviceID int64, status models.DeviceStatus, ts time.Time) models.StatusLogEntry {
	e := models.StatusLogEntry{
		ID:         id,
		DeviceID:   deviceID,
		Status:     status,
		PacketLoss: 100,
		Timestamp:  ts,
		CreatedAt:  ts,
	}

	switch status {
	case models.StatusOnline:
		e.ResponseTime = models.IntPtr(g.rnd.Intn(50) + 10)
		e.PingTime = models.IntPtr(g.rnd.Intn(30) + 5)
		e.PacketLoss = 0
		if g.rnd.Float64() < 0.1 {
			e.PacketLoss = g.rnd.Intn(20)
		}
		e.Details = "Stable connection"
	case models.StatusSlow:
		e.ResponseTime = models.IntPtr(g.rnd.Intn(200) + 100)
		e.Details = "High latency detected"
	default:
		e.Details = "Connection timeout"
	}
	return e
}

// DeviceLogs returns the newest checks of a device covering the last hours,
// at two checks per hour
func (ds Dataset) DeviceLogs(deviceID int64, hours int) []models.StatusLogEntry {
	limit := hours * 2
	var out []models.StatusLogEntry
	for _, l := range ds.Logs {
		if len(out) == limit {
			break
		}
		if l.DeviceID == deviceID {
			out = append(out, l)
		}
	}
	return out
}

// HistoryPoint is one status sample in a device's history chart
type HistoryPoint struct {
	Time         time.Time           `json:"time"`
	Status       models.DeviceStatus `json:"status"`
	ResponseTime *int                `json:"responseTime"`
}

// StatusHistory returns every check of a device, newest first
func (ds Dataset) StatusHistory(deviceID int64) []HistoryPoint {
	var out []HistoryPoint
	for _, l := range ds.Logs {
		if l.DeviceID == deviceID {
			out = append(out, HistoryPoint{Time: l.Timestamp, Status: l.Status, ResponseTime: l.ResponseTime})
		}
	}
	return out
}

// Uptime returns the share of online checks of a device, formatted as a
// percentage with one decimal
func (ds Dataset) Uptime(deviceID int64) string {
	var total, online int
	for _, l := range ds.Logs {
		if l.DeviceID != deviceID {
			continue
		}
		total++
		if l.Status == models.StatusOnline {
			online++
		}
	}
	return percent(online, total)
}

// Sample produces a single check of a device in the given status, with the
// same value ranges as generated histories
func (g *Generator) Sample(id, deviceID int64, status models.DeviceStatus, ts time.Time) models.StatusLogEntry {
	return g.entry(id, deviceID, status, ts)
}

// Restat recomputes the statistics of a dataset after its devices or logs
// were changed
func (g *Generator) Restat(ds *Dataset, now time.Time) {
	ds.GeneratedAt = now
	ds.Stats = g.stats(*ds)
}
