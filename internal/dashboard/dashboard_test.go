package dashboard

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusnet/internal/models"
)

var now = time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)

func view(id, deviceID int64, name, ip string, status models.DeviceStatus, ts time.Time, rt *int, details string) models.LogView {
	return models.LogView{
		StatusLogEntry: models.StatusLogEntry{
			ID:           id,
			DeviceID:     deviceID,
			Status:       status,
			ResponseTime: rt,
			Details:      details,
			Timestamp:    ts,
		},
		DeviceName: name,
		DeviceIP:   ip,
	}
}

func sampleViews() []models.LogView {
	return []models.LogView{
		view(1, 1, "Main Server", "192.168.1.100", models.StatusOnline, now.Add(-10*time.Minute), models.IntPtr(24), "Stable connection"),
		view(2, 3, "Floor 2 Switch", "192.168.1.20", models.StatusOffline, now.Add(-20*time.Hour), nil, "Connection timeout"),
		view(3, 5, "Perimeter Firewall", "192.168.1.254", models.StatusSlow, now.Add(-3*24*time.Hour), models.IntPtr(180), `High "latency" detected`),
		view(4, 7, "", "", models.StatusOffline, now.Add(-20*24*time.Hour), nil, "Connection timeout, retrying"),
		view(5, 1, "Main Server", "192.168.1.100", models.StatusOnline, now.Add(-60*24*time.Hour), models.IntPtr(30), ""),
	}
}

func TestDeviceFilter(t *testing.T) {
	devices := []models.Device{
		{ID: 1, Name: "Main Server", IP: "192.168.1.100", Type: models.TypeServer, Status: models.StatusOnline, Description: "Dell PowerEdge"},
		{ID: 2, Name: "Core Router", IP: "192.168.1.1", Type: models.TypeRouter, Status: models.StatusOnline},
		{ID: 3, Name: "Floor 2 Switch", IP: "192.168.1.20", Type: models.TypeSwitch, Status: models.StatusOffline},
	}

	assert.Len(t, DeviceFilter{}.Apply(devices), 3)
	assert.Len(t, DeviceFilter{Search: "SERVER"}.Apply(devices), 1)
	assert.Len(t, DeviceFilter{Search: "poweredge"}.Apply(devices), 1)
	assert.Len(t, DeviceFilter{Search: "192.168.1.1"}.Apply(devices), 2)
	assert.Len(t, DeviceFilter{Status: "online"}.Apply(devices), 2)
	assert.Len(t, DeviceFilter{Status: All, Type: "switch"}.Apply(devices), 1)
	assert.Empty(t, DeviceFilter{Status: "online", Type: "switch"}.Apply(devices))
}

func TestLogFilterDateRanges(t *testing.T) {
	views := sampleViews()

	cases := map[string]int{
		RangeToday:     1,
		RangeYesterday: 1,
		RangeWeek:      3,
		RangeMonth:     4,
		RangeAll:       5,
		"":             5,
	}
	for rng, want := range cases {
		got := LogFilter{Range: rng}.Apply(views, now)
		assert.Len(t, got, want, "range %q", rng)
	}
}

func TestRangeBoundsMatchInRange(t *testing.T) {
	for _, rng := range []string{RangeToday, RangeYesterday, RangeWeek, RangeMonth} {
		start, end, ok := RangeBounds(rng, now)
		require.True(t, ok, rng)
		for _, v := range sampleViews() {
			ts := v.Timestamp
			within := !ts.Before(start) && (end.IsZero() || !ts.After(end))
			assert.Equal(t, InRange(rng, ts, now), within, "range %q at %s", rng, ts)
		}
	}

	_, _, ok := RangeBounds(RangeAll, now)
	assert.False(t, ok)
	_, _, ok = RangeBounds("", now)
	assert.False(t, ok)

	start, end, _ := RangeBounds(RangeYesterday, now)
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), start)
	assert.True(t, end.Before(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
}

func TestLogFilterFields(t *testing.T) {
	views := sampleViews()

	assert.Len(t, LogFilter{Search: "timeout"}.Apply(views, now), 2)
	assert.Len(t, LogFilter{Search: "main"}.Apply(views, now), 2)
	assert.Len(t, LogFilter{Search: "192.168.1.2"}.Apply(views, now), 2)
	assert.Len(t, LogFilter{DeviceID: 1}.Apply(views, now), 2)
	assert.Len(t, LogFilter{Status: "offline"}.Apply(views, now), 2)
	assert.Len(t, LogFilter{Status: "offline", Range: RangeWeek}.Apply(views, now), 1)
}

func TestTimeFormatting(t *testing.T) {
	assert.Equal(t, "just now", TimeAgo(now.Add(-30*time.Second), now))
	assert.Equal(t, "5 min ago", TimeAgo(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3 h ago", TimeAgo(now.Add(-3*time.Hour-10*time.Minute), now))
	assert.Equal(t, "2 days ago", TimeAgo(now.Add(-50*time.Hour), now))

	assert.Equal(t, "just now", ShortAgo(now, now))
	assert.Equal(t, "12 min", ShortAgo(now.Add(-12*time.Minute), now))
	assert.Equal(t, "30 h", ShortAgo(now.Add(-30*time.Hour), now))

	assert.Equal(t, "10/06/2024 15:30:00", FormatDateTime(now))
	assert.Equal(t, "", FormatDateTime(time.Time{}))
}

func TestCSVRoundTrip(t *testing.T) {
	views := LogFilter{Range: RangeMonth}.Apply(sampleViews(), now)
	require.Len(t, views, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, views))

	// every field is quoted
	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, `"Timestamp","Device","IP","Status","Response Time (ms)","Details"`, firstLine)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(views)+1)
	assert.Equal(t, CSVHeader, records[0])

	assert.Equal(t, []string{now.Add(-10 * time.Minute).Format(time.RFC3339), "Main Server", "192.168.1.100", "online", "24", "Stable connection"}, records[1])
	assert.Equal(t, "", records[2][4])
	assert.Equal(t, `High "latency" detected`, records[3][5])
	assert.Equal(t, "Device 7", records[4][1])
	assert.Equal(t, "N/A", records[4][2])
	assert.Equal(t, "Connection timeout, retrying", records[4][5])
}

func TestCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, nil), ErrNothingToExport)
	assert.Zero(t, buf.Len())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "logs_2024-06-10_15-30.csv", ExportFilename(now))
}

func TestLogPageStats(t *testing.T) {
	st := LogPageStats(sampleViews(), now)
	assert.Equal(t, 5, st.TotalLogs)
	assert.Equal(t, 3, st.ErrorLogs)
	assert.Equal(t, 60.0, st.ErrorRate)
	// (24 + 180 + 30) / 5
	assert.Equal(t, 47, st.AvgResponse)

	empty := LogPageStats(nil, now)
	assert.Equal(t, 0, empty.TotalLogs)
	assert.Equal(t, 0.0, empty.ErrorRate)
}

func TestHourlyHistory(t *testing.T) {
	base := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	entries := []models.StatusLogEntry{
		{Status: models.StatusOnline, ResponseTime: models.IntPtr(20), Timestamp: base.Add(10 * time.Minute)},
		{Status: models.StatusOffline, Timestamp: base.Add(40 * time.Minute)},
		{Status: models.StatusOnline, ResponseTime: models.IntPtr(30), Timestamp: base.Add(-50 * time.Minute)},
		{Status: models.StatusOnline, ResponseTime: models.IntPtr(99), Timestamp: base.Add(-30 * time.Hour)},
	}

	points := HourlyHistory(entries, 6, now)
	require.Len(t, points, 2)

	assert.Equal(t, "13:00", points[0].Time)
	assert.Equal(t, 1, points[0].Count)
	assert.Equal(t, 1.0, points[0].Availability)

	assert.Equal(t, "14:00", points[1].Time)
	assert.Equal(t, 2, points[1].Count)
	assert.Equal(t, 0.5, points[1].Availability)
	assert.Equal(t, 10.0, points[1].ResponseTime)
}
