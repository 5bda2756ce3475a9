// Package dashboard holds the presentation rules of the pages: list
// filters, time formatting, page statistics and the CSV export of logs.
package dashboard

import (
	"strings"
	"time"

	"statusnet/internal/models"
)

// All matches every value of a select filter
const All = "all"

// Date ranges of the log filter
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeWeek      = "week"
	RangeMonth     = "month"
	RangeAll       = All
)

// DateRanges lists the accepted date ranges
var DateRanges = []string{RangeToday, RangeYesterday, RangeWeek, RangeMonth, RangeAll}

// DeviceFilter selects devices on the devices page. Empty fields match
// everything.
type DeviceFilter struct {
	Search string
	Status string
	Type   string
}

// Match reports whether d passes the filter. Search is case-insensitive on
// the name and description and matches the IP as typed.
func (f DeviceFilter) Match(d models.Device) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Name), q) &&
			!strings.Contains(d.IP, f.Search) &&
			!strings.Contains(strings.ToLower(d.Description), q) {
			return false
		}
	}
	if !selects(f.Status, string(d.Status)) {
		return false
	}
	return selects(f.Type, string(d.Type))
}

// Apply returns the devices passing the filter, keeping their order
func (f DeviceFilter) Apply(devices []models.Device) []models.Device {
	out := []models.Device{}
	for _, d := range devices {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// LogFilter selects log entries on the logs page. Empty fields match
// everything, including an empty Range.
type LogFilter struct {
	Search   string
	DeviceID int64
	Status   string
	Range    string
}

// Match reports whether v passes the filter at instant now. Calendar days
// are taken in now's location.
func (f LogFilter) Match(v models.LogView, now time.Time) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(v.DeviceName), q) &&
			!strings.Contains(strings.ToLower(v.Details), q) &&
			!strings.Contains(v.DeviceIP, f.Search) {
			return false
		}
	}
	if f.DeviceID != 0 && v.DeviceID != f.DeviceID {
		return false
	}
	if !selects(f.Status, string(v.Status)) {
		return false
	}
	return InRange(f.Range, v.Timestamp, now)
}

// Apply returns the entries passing the filter, keeping their order
func (f LogFilter) Apply(views []models.LogView, now time.Time) []models.LogView {
	out := []models.LogView{}
	for _, v := range views {
		if f.Match(v, now) {
			out = append(out, v)
		}
	}
	return out
}

// InRange reports whether ts falls in the named date range ending at now.
// Unknown ranges match everything.
func InRange(rng string, ts, now time.Time) bool {
	ts = ts.In(now.Location())
	switch rng {
	case RangeToday:
		return sameDay(ts, now)
	case RangeYesterday:
		return sameDay(ts, now.AddDate(0, 0, -1))
	case RangeWeek:
		return !ts.Before(now.AddDate(0, 0, -7))
	case RangeMonth:
		return !ts.Before(now.AddDate(0, -1, 0))
	default:
		return true
	}
}

// RangeBounds returns the instants the named date range covers at now. A
// zero end leaves the range open. ok is false when the range has no bounds.
func RangeBounds(rng string, now time.Time) (start, end time.Time, ok bool) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch rng {
	case RangeToday:
		return midnight, time.Time{}, true
	case RangeYesterday:
		return midnight.AddDate(0, 0, -1), midnight.Add(-time.Nanosecond), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), time.Time{}, true
	case RangeMonth:
		return now.AddDate(0, -1, 0), time.Time{}, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func selects(filter, value string) bool {
	return filter == "" || filter == All || filter == value
}
