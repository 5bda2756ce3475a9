package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	configPath := writeFile(t, tempDir, "config.yaml", `
server:
  port: 9090
  host: "127.0.0.1"

backend:
  apiUrl: "http://monitor.lan:3000/api"
  useMock: false
  fallbackToMock: false
  timeout: "5s"
  checkRate: 0.5

polling:
  interval: 10000
  autoRefresh: false

database:
  path: "`+filepath.Join(tempDir, "db", "test.db")+`"
`)

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Backend.APIURL != "http://monitor.lan:3000/api" {
		t.Errorf("Expected apiUrl http://monitor.lan:3000/api, got %s", cfg.Backend.APIURL)
	}

	if cfg.Backend.UseMock || cfg.Backend.FallbackToMock {
		t.Errorf("Expected mock disabled, got useMock=%v fallbackToMock=%v", cfg.Backend.UseMock, cfg.Backend.FallbackToMock)
	}

	if cfg.GetBackendTimeout() != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", cfg.GetBackendTimeout())
	}

	if cfg.Polling.Interval != 10000 {
		t.Errorf("Expected interval 10000, got %d", cfg.Polling.Interval)
	}

	// untouched sections keep their defaults
	if cfg.Polling.LogLimit != 100 {
		t.Errorf("Expected default log limit 100, got %d", cfg.Polling.LogLimit)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "db")); err != nil {
		t.Errorf("Expected database directory to be created: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := New()
	if err := cfg.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for missing file, got nil")
	}
}

func TestLoadConfigRejectedFileNotApplied(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	good := writeFile(t, tempDir, "good.yaml", "server:\n  port: 9090\npolling:\n  interval: 10000\ndatabase:\n  path: "+dbPath+"\n")
	bad := writeFile(t, tempDir, "bad.yaml", "server:\n  port: 7070\npolling:\n  interval: 15000\ndatabase:\n  path: "+dbPath+"\n")

	cfg := New()
	if err := cfg.LoadConfig(good); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if err := cfg.LoadConfig(bad); err == nil {
		t.Fatalf("Expected error for polling interval 15000, got nil")
	}

	if got := cfg.Settings().PollInterval; got != 10000 {
		t.Errorf("Expected poll interval 10000 after a rejected load, got %d", got)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 after a rejected load, got %d", cfg.Server.Port)
	}

	fresh := New()
	if err := fresh.LoadConfig(bad); err == nil {
		t.Fatalf("Expected error for polling interval 15000, got nil")
	}
	if fresh.Polling.Interval != New().Polling.Interval {
		t.Errorf("Expected default poll interval after a rejected load, got %d", fresh.Polling.Interval)
	}
}

func TestReload(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	configPath := writeFile(t, tempDir, "config.yaml", "server:\n  port: 9090\ndatabase:\n  path: "+dbPath+"\n")

	cfg := New()
	if err := cfg.Reload(); err == nil {
		t.Errorf("Expected error reloading an unloaded config, got nil")
	}

	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected initial port 9090, got %d", cfg.Server.Port)
	}

	writeFile(t, tempDir, "config.yaml", "server:\n  port: 8080\ndatabase:\n  path: "+dbPath+"\n")

	if err := cfg.Reload(); err != nil {
		t.Errorf("Reload returned error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected updated port 8080, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := New()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate returned error for default config: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }},
		{"invalid timeout", func(c *Config) { c.Backend.Timeout = "soon" }},
		{"negative check rate", func(c *Config) { c.Backend.CheckRate = -1 }},
		{"polling interval outside the allowed set", func(c *Config) { c.Polling.Interval = 1234 }},
		{"invalid system interval", func(c *Config) { c.Polling.SystemInterval = "often" }},
		{"invalid mock latency", func(c *Config) { c.Mock.Latency = "slow" }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"invalid schedule", func(c *Config) { c.Maintenance.Schedule = "every night" }},
		{"no backend and no mock", func(c *Config) { c.Backend.APIURL = ""; c.Backend.UseMock = false }},
	}

	for _, tc := range cases {
		c := New()
		tc.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("Expected error for %s, got nil", tc.name)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()

	cfg := New()
	cfg.Database.Path = filepath.Join(tempDir, "test.db")
	cfg.Server.Port = 9999
	cfg.Backend.APIURL = "http://10.0.0.5/api"
	cfg.Polling.Interval = 300000

	savePath := filepath.Join(tempDir, "saved-config.yaml")
	if err := cfg.SaveConfig(savePath); err != nil {
		t.Errorf("SaveConfig returned error: %v", err)
	}

	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		t.Errorf("Config file was not created at %s", savePath)
	}

	newCfg := New()
	if err := newCfg.LoadConfig(savePath); err != nil {
		t.Errorf("Failed to load saved config: %v", err)
	}

	if newCfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", newCfg.Server.Port)
	}

	if newCfg.Backend.APIURL != "http://10.0.0.5/api" {
		t.Errorf("Expected apiUrl http://10.0.0.5/api, got %s", newCfg.Backend.APIURL)
	}

	if newCfg.Polling.Interval != 300000 {
		t.Errorf("Expected interval 300000, got %d", newCfg.Polling.Interval)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempDir := t.TempDir()
	envPath := writeFile(t, tempDir, ".env", "STATUSNET_API_URL=http://from-dotenv/api\nSTATUSNET_LOG_LEVEL=debug\n")

	// variables already in the environment win over the .env file
	t.Setenv(EnvUseMock, "false")
	t.Setenv(EnvAPIURL, "")
	os.Unsetenv(EnvAPIURL)
	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv returned error: %v", err)
	}

	cfg := New()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}

	if cfg.Backend.APIURL != "http://from-dotenv/api" {
		t.Errorf("Expected apiUrl from .env, got %s", cfg.Backend.APIURL)
	}

	if cfg.Backend.UseMock {
		t.Errorf("Expected useMock false from environment, got true")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}

	t.Setenv(EnvUseMock, "perhaps")
	if err := New().ApplyEnv(); err == nil {
		t.Errorf("Expected error for invalid %s, got nil", EnvUseMock)
	}
}

func TestApplyEnvRejectedValuesNotApplied(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvUseMock, "false")

	cfg := New()
	cfg.Backend.APIURL = ""
	cfg.Backend.UseMock = true

	// no backend URL and mock disabled
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatalf("Expected error when the environment leaves no backend, got nil")
	}

	if !cfg.Backend.UseMock {
		t.Errorf("Expected useMock to stay true after a rejected override")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level info after a rejected override, got %s", cfg.Logging.Level)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := New()
	cfg.Backend.APIURL = "http://monitor/api"
	cfg.Backend.UseMock = false
	cfg.Polling.Interval = 60000
	cfg.Polling.AutoRefresh = false

	s := cfg.Settings()
	if s.APIURL != "http://monitor/api" || s.UseMock || s.PollInterval != 60000 || s.AutoRefresh {
		t.Errorf("Unexpected settings from config: %+v", s)
	}

	if s.Theme != "light" || s.Language != "pt-BR" {
		t.Errorf("Expected default theme and language, got %s %s", s.Theme, s.Language)
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := New()

	if cfg.GetSystemInterval() != 10*time.Second {
		t.Errorf("Expected system interval 10s, got %v", cfg.GetSystemInterval())
	}

	cfg.Mock.Latency = ""
	if cfg.GetMockLatency() != 0 {
		t.Errorf("Expected zero mock latency, got %v", cfg.GetMockLatency())
	}

	cfg.Backend.Timeout = "bogus"
	if cfg.GetBackendTimeout() != 8*time.Second {
		t.Errorf("Expected fallback timeout 8s, got %v", cfg.GetBackendTimeout())
	}
}
