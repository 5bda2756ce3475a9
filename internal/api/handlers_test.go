package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"statusnet/internal/client"
	"statusnet/internal/database"
	"statusnet/internal/maintenance"
	"statusnet/internal/mockdata"
	"statusnet/internal/models"
	"statusnet/internal/notify"
	"statusnet/internal/poller"
	"statusnet/internal/reference"
	"statusnet/internal/store"
)

// testEnv wires every handler to a mock backed client
type testEnv struct {
	router   http.Handler
	client   *client.Client
	store    *store.Devices
	devices  *poller.Devices
	logs     *poller.Logs
	system   *poller.System
	notes    *notify.Center
	db       *database.DB
	settings *SettingsHandler
	maint    *maintenance.Scheduler
}

// setupTestEnvironment builds the handlers over a freshly loaded state.
// opts.UseMock is forced on unless a BaseURL is given.
func setupTestEnvironment(t *testing.T, opts client.Options) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if opts.Generator == nil {
		opts.Generator = mockdata.New(mockdata.DefaultFixtures(), rand.New(rand.NewSource(7)))
	}
	if opts.BaseURL == "" {
		opts.UseMock = true
	}
	c := client.New(opts)

	st := store.NewDevices()
	notes := notify.NewCenter(50)

	devices := poller.NewDevices(c, st, db, poller.Options{Notifier: notes})
	logs := poller.NewLogs(c, 0, 0, db, poller.Options{Notifier: notes})
	system := poller.NewSystem(c, models.DeviceSummary{Total: 9}, poller.Options{Notifier: notes})

	ctx := context.Background()
	if err := devices.Load(ctx, false); err != nil {
		t.Fatalf("Failed to load devices: %v", err)
	}
	if err := logs.Load(ctx, false); err != nil {
		t.Fatalf("Failed to load logs: %v", err)
	}
	if err := system.Load(ctx, false); err != nil {
		t.Fatalf("Failed to load system status: %v", err)
	}

	defaults := reference.DefaultSettings()
	settings := NewSettingsHandler(db, notes, defaults, defaults)
	maint := maintenance.New(db, func() int { return settings.Current().DataRetention }, maintenance.Options{
		CleanupOldData: true,
		Optimize:       true,
	})

	r := mux.NewRouter()
	NewDeviceHandler(devices, logs, notes).RegisterRoutes(r)
	NewLogHandler(logs, st, c, notes).RegisterRoutes(r)
	NewStatusHandler(system, c, notes).RegisterRoutes(r)
	NewDashboardHandler(system, devices, logs, st, c).RegisterRoutes(r)
	settings.RegisterRoutes(r)
	NewStorageHandler(db, maint, c, notes, devices, logs).RegisterRoutes(r)
	NewNotificationHandler(notes).RegisterRoutes(r)
	NewReferenceHandler().RegisterRoutes(r)

	return &testEnv{
		router:   Middleware(r),
		client:   c,
		store:    st,
		devices:  devices,
		logs:     logs,
		system:   system,
		notes:    notes,
		db:       db,
		settings: settings,
		maint:    maint,
	}
}

// do serves one request through the router
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a recorded JSON response
func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

// hasNotification reports whether msg was raised at level
func hasNotification(notes *notify.Center, level, msg string) bool {
	for _, n := range notes.Recent(0) {
		if n.Level == level && n.Message == msg {
			return true
		}
	}
	return false
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req, _ := http.NewRequest("GET", "/boom", nil)
	rr := httptest.NewRecorder()
	Middleware(r).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 after panic, got %d", rr.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{client.ErrNotFound, http.StatusNotFound},
		{client.ErrRateLimited, http.StatusTooManyRequests},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&client.StatusError{Code: http.StatusConflict}, http.StatusConflict},
		{&client.StatusError{Code: http.StatusInternalServerError}, http.StatusBadGateway},
	}

	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestReference(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	rr := env.do(t, "GET", "/api/reference", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var body struct {
		DeviceTypes    map[string]string  `json:"deviceTypes"`
		PollingOptions []reference.Option `json:"pollingOptions"`
		DateRanges     []string           `json:"dateRanges"`
	}
	decode(t, rr, &body)

	if body.DeviceTypes["nas"] != "NAS Storage" {
		t.Errorf("Expected nas display name, got %q", body.DeviceTypes["nas"])
	}
	if len(body.PollingOptions) != 5 {
		t.Errorf("Expected 5 polling options, got %d", len(body.PollingOptions))
	}
	if len(body.DateRanges) != 5 {
		t.Errorf("Expected 5 date ranges, got %d", len(body.DateRanges))
	}
}

func TestNotifications(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	env.notes.Success("first")
	env.notes.Error("second")

	rr := env.do(t, "GET", "/api/notifications?limit=1", nil)
	var body struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	decode(t, rr, &body)

	if len(body.Notifications) != 1 || body.Notifications[0].Message != "second" {
		t.Errorf("Expected only the newest notification, got %+v", body.Notifications)
	}
	if body.Unread != 2 {
		t.Errorf("Expected 2 unread, got %d", body.Unread)
	}

	if rr := env.do(t, "POST", "/api/notifications/read", nil); rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if env.notes.Unread() != 0 {
		t.Errorf("Expected every notification read, got %d unread", env.notes.Unread())
	}
}
