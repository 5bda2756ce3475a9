package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"statusnet/internal/models"
)

// PageStats are the counters shown above the log list
type PageStats struct {
	TotalLogs   int       `json:"totalLogs"`
	ErrorLogs   int       `json:"errorLogs"`
	ErrorRate   float64   `json:"errorRate"`   // percent, one decimal
	AvgResponse int       `json:"avgResponse"` // missing response times count as zero
	LastUpdate  time.Time `json:"lastUpdate"`
}

// LogPageStats computes the log page counters at instant now
func LogPageStats(views []models.LogView, now time.Time) PageStats {
	st := PageStats{TotalLogs: len(views), LastUpdate: now}
	if len(views) == 0 {
		return st
	}

	sum := 0
	for _, v := range views {
		if v.Status != models.StatusOnline {
			st.ErrorLogs++
		}
		if v.ResponseTime != nil {
			sum += *v.ResponseTime
		}
	}
	st.ErrorRate = math.Round(float64(st.ErrorLogs)/float64(st.TotalLogs)*1000) / 10
	st.AvgResponse = int(math.Round(float64(sum) / float64(st.TotalLogs)))
	return st
}

// HourlyPoint is one bucket of the status history chart
type HourlyPoint struct {
	Time         string  `json:"time"` // HH:00
	Availability float64 `json:"availability"`
	ResponseTime float64 `json:"responseTime"`
	Count        int     `json:"count"`
}

// HourlyHistory buckets the entries of the last hours by hour of day in
// now's location. Availability is the share of online checks, missing
// response times count as zero.
func HourlyHistory(entries []models.StatusLogEntry, hours int, now time.Time) []HourlyPoint {
	cutoff := now.Add(-time.Duration(hours) * time.Hour)

	type bucket struct {
		start  time.Time
		online int
		rt     int
		count  int
	}
	buckets := map[int64]*bucket{}
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		ts := e.Timestamp.In(now.Location())
		start := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, now.Location())
		b, ok := buckets[start.Unix()]
		if !ok {
			b = &bucket{start: start}
			buckets[start.Unix()] = b
		}
		if e.Status == models.StatusOnline {
			b.online++
		}
		if e.ResponseTime != nil {
			b.rt += *e.ResponseTime
		}
		b.count++
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start.Before(ordered[j].start) })

	out := make([]HourlyPoint, 0, len(ordered))
	for _, b := range ordered {
		out = append(out, HourlyPoint{
			Time:         fmt.Sprintf("%02d:00", b.start.Hour()),
			Availability: float64(b.online) / float64(b.count),
			ResponseTime: float64(b.rt) / float64(b.count),
			Count:        b.count,
		})
	}
	return out
}
