package poller

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
)

// DefaultLogLimit is the number of log entries kept by a log poller
const DefaultLogLimit = 100

// LogAPI is the part of the backend client used by the log poller
type LogAPI interface {
	ListLogs(ctx context.Context, deviceID int64) ([]models.StatusLogEntry, error)
	CreateLog(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error)
}

// LogCache persists the last known log list
type LogCache interface {
	SaveLogs(logs []models.StatusLogEntry) error
}

// Logs keeps the newest status log entries, optionally of a single device
type Logs struct {
	res      *Resource[[]models.StatusLogEntry]
	api      LogAPI
	deviceID int64
	limit    int
	cache    LogCache
	logger   zerolog.Logger
}

// NewLogs creates a log poller. A zero deviceID follows every device, a
// non-positive limit uses DefaultLogLimit. cache may be nil.
func NewLogs(api LogAPI, deviceID int64, limit int, cache LogCache, opts Options) *Logs {
	if opts.Name == "" {
		opts.Name = "logs"
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = "Failed to load logs"
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	l := &Logs{
		api:      api,
		deviceID: deviceID,
		limit:    limit,
		cache:    cache,
		logger:   log.With().Str("component", "logs").Logger(),
	}
	l.res = NewResource[[]models.StatusLogEntry](opts, l.fetch, l.persist)
	return l
}

func (l *Logs) fetch(ctx context.Context) ([]models.StatusLogEntry, error) {
	entries, err := l.api.ListLogs(ctx, l.deviceID)
	if err != nil {
		return nil, err
	}

	sorted := append([]models.StatusLogEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > l.limit {
		sorted = sorted[:l.limit]
	}
	return sorted, nil
}

func (l *Logs) persist(entries []models.StatusLogEntry) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveLogs(entries); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to cache logs")
	}
}

// Warm seeds the poller with cached entries before the first load
func (l *Logs) Warm(entries []models.StatusLogEntry) {
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}
	l.res.Seed(entries)
}

// Start begins polling
func (l *Logs) Start(ctx context.Context) { l.res.Start(ctx) }

// Stop ends polling
func (l *Logs) Stop() { l.res.Stop() }

// Load fetches the logs, silently or not
func (l *Logs) Load(ctx context.Context, silent bool) error {
	return l.res.Load(ctx, silent)
}

// Status returns the loading state
func (l *Logs) Status() Status { return l.res.Status() }

// Limit returns the maximum number of kept entries
func (l *Logs) Limit() int { return l.limit }

// List returns the kept entries, newest first
func (l *Logs) List() []models.StatusLogEntry {
	return clone(l.res.Data())
}

// Stats summarises the kept entries
func (l *Logs) Stats() models.LogStats {
	return ComputeLogStats(l.res.Data())
}

// Add records an entry on the backend and prepends it locally
func (l *Logs) Add(ctx context.Context, entry models.StatusLogEntry) (models.StatusLogEntry, error) {
	created, err := l.api.CreateLog(ctx, entry)
	if err != nil {
		l.logger.Error().Err(err).Int64("device_id", entry.DeviceID).Msg("Failed to add log")
		return models.StatusLogEntry{}, err
	}

	l.res.Mutate(func(list []models.StatusLogEntry) []models.StatusLogEntry {
		keep := len(list)
		if keep > l.limit-1 {
			keep = l.limit - 1
		}
		out := make([]models.StatusLogEntry, 0, keep+1)
		out = append(out, created)
		return append(out, list[:keep]...)
	})
	return created, nil
}

// Clear drops every kept entry locally. The backend is not touched.
func (l *Logs) Clear() {
	l.res.Mutate(func([]models.StatusLogEntry) []models.StatusLogEntry {
		return []models.StatusLogEntry{}
	})
	l.logger.Info().Msg("Logs cleared")
}

// FilterByStatus returns the kept entries in status s
func (l *Logs) FilterByStatus(s models.DeviceStatus) []models.StatusLogEntry {
	return l.filter(func(e models.StatusLogEntry) bool { return e.Status == s })
}

// FilterByDateRange returns the kept entries with start <= timestamp <= end.
// A zero end has no upper bound.
func (l *Logs) FilterByDateRange(start, end time.Time) []models.StatusLogEntry {
	return l.filter(func(e models.StatusLogEntry) bool {
		if e.Timestamp.Before(start) {
			return false
		}
		return end.IsZero() || !e.Timestamp.After(end)
	})
}

// ForDevice returns the kept entries of one device
func (l *Logs) ForDevice(deviceID int64) []models.StatusLogEntry {
	return l.filter(func(e models.StatusLogEntry) bool { return e.DeviceID == deviceID })
}

// Latest returns up to n of the newest entries
func (l *Logs) Latest(n int) []models.StatusLogEntry {
	list := l.res.Data()
	if n < 0 {
		n = 0
	}
	if n > len(list) {
		n = len(list)
	}
	return clone(list[:n])
}

// Get returns the entry with the given id
func (l *Logs) Get(id int64) (models.StatusLogEntry, bool) {
	for _, e := range l.res.Data() {
		if e.ID == id {
			return e, true
		}
	}
	return models.StatusLogEntry{}, false
}

// HasErrors reports whether any kept entry is not online
func (l *Logs) HasErrors() bool {
	for _, e := range l.res.Data() {
		if e.Status != models.StatusOnline {
			return true
		}
	}
	return false
}

func (l *Logs) filter(keep func(models.StatusLogEntry) bool) []models.StatusLogEntry {
	out := []models.StatusLogEntry{}
	for _, e := range l.res.Data() {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// ComputeLogStats summarises entries ordered newest first
func ComputeLogStats(entries []models.StatusLogEntry) models.LogStats {
	var st models.LogStats
	if len(entries) == 0 {
		return st
	}

	var sum, samples int
	for _, e := range entries {
		switch e.Status {
		case models.StatusOnline:
			st.Online++
		case models.StatusOffline:
			st.Offline++
		case models.StatusSlow:
			st.Slow++
		}
		if e.ResponseTime != nil {
			sum += *e.ResponseTime
			samples++
		}
	}

	st.Total = len(entries)
	st.OnlinePercentage = float64(st.Online) / float64(st.Total) * 100
	if samples > 0 {
		st.AvgResponse = int(math.Round(float64(sum) / float64(samples)))
	}
	st.LastLog = entries[0].Timestamp
	st.FirstLog = entries[len(entries)-1].Timestamp
	return st
}
