package api

import (
	"net/http"
	"testing"
	"time"

	"statusnet/internal/client"
	"statusnet/internal/maintenance"
	"statusnet/internal/notify"
	"statusnet/internal/reference"
)

type storageReport struct {
	Database    map[string]interface{} `json:"database"`
	UpdatedAt   map[string]time.Time   `json:"updatedAt"`
	Maintenance MaintenanceView        `json:"maintenance"`
	DemoData    bool                   `json:"demoData"`
}

func TestGetStorage(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	env.do(t, "PUT", "/api/settings", map[string]interface{}{"theme": "dark"})

	rr := env.do(t, "GET", "/api/storage", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var report storageReport
	decode(t, rr, &report)

	for _, key := range []string{"settings", "devices", "logs"} {
		if report.UpdatedAt[key].IsZero() {
			t.Errorf("Expected a write time for %s, got %v", key, report.UpdatedAt)
		}
	}
	if len(report.Database) == 0 {
		t.Errorf("Expected database statistics")
	}
	if !report.DemoData {
		t.Errorf("Expected demonstration data to be reported")
	}
	if report.Maintenance.Next != nil || report.Maintenance.Last != nil {
		t.Errorf("Expected no schedule before any run, got %+v", report.Maintenance)
	}
}

func TestRunMaintenance(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	rr := env.do(t, "POST", "/api/storage/maintenance", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var res maintenance.Result
	decode(t, rr, &res)
	if !res.Optimized {
		t.Errorf("Expected the database to be optimized")
	}
	if !hasNotification(env.notes, notify.LevelSuccess, "Maintenance completed") {
		t.Errorf("Expected a success notification")
	}

	var report storageReport
	decode(t, env.do(t, "GET", "/api/storage", nil), &report)
	if report.Maintenance.Last == nil || !report.Maintenance.Last.Optimized {
		t.Errorf("Expected the last run in the report, got %+v", report.Maintenance)
	}
}

func TestClearStorage(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	env.do(t, "PUT", "/api/settings", map[string]interface{}{"theme": "dark"})

	if rr := env.do(t, "DELETE", "/api/storage", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	if theme, _ := env.db.LoadTheme(); theme != "" {
		t.Errorf("Expected no stored theme, got %q", theme)
	}
	if _, found, _ := env.db.LoadSettings(reference.DefaultSettings()); found {
		t.Errorf("Expected no stored settings")
	}
	if devices, _ := env.db.LoadDevices(); len(devices) != 0 {
		t.Errorf("Expected no cached devices, got %d", len(devices))
	}
	if env.settings.Current().Theme != "dark" {
		t.Errorf("Expected in-memory settings kept until restart")
	}
	if !hasNotification(env.notes, notify.LevelSuccess, "Local data removed") {
		t.Errorf("Expected a success notification")
	}
}

func TestClearStorageRegeneratesDemoData(t *testing.T) {
	env := setupTestEnvironment(t, client.Options{})

	rr := env.do(t, "POST", "/api/devices", map[string]interface{}{
		"name": "Lab Switch",
		"ip":   "10.0.0.2",
		"type": "switch",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, ok := env.store.Get(10); !ok {
		t.Fatalf("Expected the new device in the shared store")
	}

	if rr := env.do(t, "DELETE", "/api/storage", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	if _, ok := env.store.Get(10); ok {
		t.Errorf("Expected the added device to be dropped with the demonstration data")
	}
	if env.store.Len() != 9 {
		t.Errorf("Expected the 9 generated devices, got %d", env.store.Len())
	}
	if len(env.logs.List()) == 0 {
		t.Errorf("Expected the logs to be reloaded")
	}
}
