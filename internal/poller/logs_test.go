package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusnet/internal/models"
)

var logBase = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// fakeLogs serves a fixed, unsorted log list
type fakeLogs struct {
	entries []models.StatusLogEntry
	nextID  int64
	fail    bool
	asked   int64
}

func (f *fakeLogs) ListLogs(_ context.Context, deviceID int64) ([]models.StatusLogEntry, error) {
	f.asked = deviceID
	if f.fail {
		return nil, errors.New("backend down")
	}
	var out []models.StatusLogEntry
	for _, e := range f.entries {
		if deviceID == 0 || e.DeviceID == deviceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLogs) CreateLog(_ context.Context, e models.StatusLogEntry) (models.StatusLogEntry, error) {
	if f.fail {
		return models.StatusLogEntry{}, errors.New("backend down")
	}
	f.nextID++
	e.ID = f.nextID
	return e, nil
}

func entry(id, deviceID int64, status models.DeviceStatus, minutesAgo int, rt *int) models.StatusLogEntry {
	return models.StatusLogEntry{
		ID:           id,
		DeviceID:     deviceID,
		Status:       status,
		ResponseTime: rt,
		Timestamp:    logBase.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func sampleLogs() *fakeLogs {
	return &fakeLogs{
		nextID: 100,
		entries: []models.StatusLogEntry{
			entry(1, 1, models.StatusOnline, 30, models.IntPtr(20)),
			entry(2, 2, models.StatusOffline, 10, nil),
			entry(3, 1, models.StatusSlow, 50, models.IntPtr(150)),
			entry(4, 2, models.StatusOnline, 5, models.IntPtr(10)),
			entry(5, 1, models.StatusOnline, 40, models.IntPtr(30)),
		},
	}
}

func TestLogsSortedAndLimited(t *testing.T) {
	api := sampleLogs()
	cache := &memoryCache{}
	l := NewLogs(api, 0, 3, cache, Options{})

	require.NoError(t, l.Load(context.Background(), false))

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, []int64{4, 2, 1}, []int64{list[0].ID, list[1].ID, list[2].ID})
	assert.Len(t, cache.logs, 3)
}

func TestLogsDeviceFilterAndDefaultLimit(t *testing.T) {
	api := sampleLogs()
	l := NewLogs(api, 1, 0, nil, Options{})
	assert.Equal(t, DefaultLogLimit, l.Limit())

	require.NoError(t, l.Load(context.Background(), true))
	assert.Equal(t, int64(1), api.asked)
	assert.Len(t, l.List(), 3)
	for _, e := range l.List() {
		assert.Equal(t, int64(1), e.DeviceID)
	}
}

func TestLogStats(t *testing.T) {
	l := NewLogs(sampleLogs(), 0, 0, nil, Options{})
	assert.Equal(t, models.LogStats{}, l.Stats())

	require.NoError(t, l.Load(context.Background(), false))
	st := l.Stats()

	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.Online)
	assert.Equal(t, 1, st.Offline)
	assert.Equal(t, 1, st.Slow)
	assert.InDelta(t, 60.0, st.OnlinePercentage, 0.001)
	// (20 + 150 + 10 + 30) / 4
	assert.Equal(t, 53, st.AvgResponse)
	assert.Equal(t, logBase.Add(-5*time.Minute), st.LastLog)
	assert.Equal(t, logBase.Add(-50*time.Minute), st.FirstLog)
}

func TestLogsAddPrependsAndTruncates(t *testing.T) {
	api := sampleLogs()
	l := NewLogs(api, 0, 3, nil, Options{})
	ctx := context.Background()
	require.NoError(t, l.Load(ctx, false))

	created, err := l.Add(ctx, models.StatusLogEntry{DeviceID: 1, Status: models.StatusOffline, Timestamp: logBase})
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.ID)

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, int64(101), list[0].ID)
	assert.Equal(t, int64(4), list[1].ID)

	api.fail = true
	_, err = l.Add(ctx, models.StatusLogEntry{DeviceID: 1})
	assert.Error(t, err)
	assert.Len(t, l.List(), 3)
}

func TestLogsQueries(t *testing.T) {
	l := NewLogs(sampleLogs(), 0, 0, nil, Options{})
	require.NoError(t, l.Load(context.Background(), false))

	assert.Len(t, l.FilterByStatus(models.StatusOnline), 3)
	assert.Empty(t, l.FilterByStatus(models.StatusUnknown))

	ranged := l.FilterByDateRange(logBase.Add(-30*time.Minute), logBase.Add(-10*time.Minute))
	assert.Len(t, ranged, 2)
	assert.Len(t, l.FilterByDateRange(logBase.Add(-35*time.Minute), time.Time{}), 3)

	assert.Len(t, l.ForDevice(2), 2)

	latest := l.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(4), latest[0].ID)
	assert.Len(t, l.Latest(50), 5)

	got, ok := l.Get(3)
	require.True(t, ok)
	assert.Equal(t, models.StatusSlow, got.Status)
	_, ok = l.Get(99)
	assert.False(t, ok)

	assert.True(t, l.HasErrors())

	l.Clear()
	assert.Empty(t, l.List())
	assert.False(t, l.HasErrors())
	assert.Equal(t, 0, l.Stats().Total)
}

func TestLogsLoadFailureKeepsEntries(t *testing.T) {
	rec := &recorder{}
	api := sampleLogs()
	l := NewLogs(api, 0, 0, nil, Options{Notifier: rec})
	require.NoError(t, l.Load(context.Background(), false))

	api.fail = true
	assert.Error(t, l.Load(context.Background(), false))
	assert.Len(t, l.List(), 5)
	assert.Equal(t, "backend down", l.Status().Error)

	_, errs := rec.counts()
	assert.Equal(t, 1, errs)
}
