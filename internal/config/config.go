// Package config manages the StatusNet daemon configuration.
// Values come from a YAML file, then from the environment (optionally fed by a
// .env file), and finally from the settings persisted by the user, which take
// precedence for the fields the settings page edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"statusnet/internal/models"
	"statusnet/internal/reference"
	"statusnet/internal/validation"
)

// Environment variables that override the file
const (
	EnvAPIURL   = "STATUSNET_API_URL"
	EnvUseMock  = "STATUSNET_USE_MOCK"
	EnvLogLevel = "STATUSNET_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		Host            string   `yaml:"host"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		ReadTimeout     int      `yaml:"readTimeout"`
		WriteTimeout    int      `yaml:"writeTimeout"`
		ShutdownTimeout int      `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Backend struct {
		APIURL         string  `yaml:"apiUrl"`
		UseMock        bool    `yaml:"useMock"`
		FallbackToMock bool    `yaml:"fallbackToMock"`
		Timeout        string  `yaml:"timeout"`
		CheckRate      float64 `yaml:"checkRate"` // device checks per second, per device
		CheckBurst     int     `yaml:"checkBurst"`
	} `yaml:"backend"`

	Polling struct {
		Interval       int64  `yaml:"interval"` // milliseconds
		AutoRefresh    bool   `yaml:"autoRefresh"`
		SystemInterval string `yaml:"systemInterval"`
		LogLimit       int    `yaml:"logLimit"`
	} `yaml:"polling"`

	Mock struct {
		Seed    int64  `yaml:"seed"` // 0 seeds from the clock
		Latency string `yaml:"latency"`
	} `yaml:"mock"`

	Database struct {
		Path            string `yaml:"path"`
		MaxConnections  int    `yaml:"maxConnections"`
		JournalMode     string `yaml:"journalMode"`
		SynchronousMode string `yaml:"synchronousMode"`
	} `yaml:"database"`

	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		OutputPath string `yaml:"outputPath"`
		MaxSize    int    `yaml:"maxSize"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAge     int    `yaml:"maxAge"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`

	Maintenance struct {
		Schedule         string `yaml:"schedule"`
		DatabaseOptimize bool   `yaml:"databaseOptimize"`
		CleanupOldData   bool   `yaml:"cleanupOldData"`
	} `yaml:"maintenance"`

	path string
	mu   sync.RWMutex
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New returns a configuration holding the defaults
func New() *Config {
	c := &Config{}
	setDefaults(c)
	return c
}

// LoadConfig loads configuration from a YAML file. The file is parsed over the
// defaults and validated before anything is applied, so a rejected file
// leaves c unchanged.
func (c *Config) LoadConfig(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	next := New()
	if err := yaml.Unmarshal(data, next); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dirs := []string{
		filepath.Dir(next.Database.Path),
		filepath.Dir(next.Logging.OutputPath),
	}
	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	c.assign(next)

	log.Info().Str("path", path).Msg("Configuration loaded successfully")
	return nil
}

// Reload reloads the configuration from the file
func (c *Config) Reload() error {
	if c.path == "" {
		return errors.New("configuration was not loaded from a file")
	}
	return c.LoadConfig(c.path)
}

// SaveConfig saves the current configuration to a file
func (c *Config) SaveConfig(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Environment file loaded")
	return nil
}

// ApplyEnv overrides file values with the STATUSNET_* environment variables.
// The result is validated first; on error c is left unchanged.
func (c *Config) ApplyEnv() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := New()
	next.assign(c)

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		next.Backend.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUseMock)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvUseMock, v)
		}
		next.Backend.UseMock = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		if _, err := zerolog.ParseLevel(v); err != nil {
			return fmt.Errorf("invalid %s: %q", EnvLogLevel, v)
		}
		next.Logging.Level = v
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid configuration after environment overrides: %w", err)
	}

	c.assign(next)
	return nil
}

// assign copies every section of src into c. The caller holds c.mu.
func (c *Config) assign(src *Config) {
	c.Server = src.Server
	c.Server.AllowedOrigins = append([]string(nil), src.Server.AllowedOrigins...)
	c.Backend = src.Backend
	c.Polling = src.Polling
	c.Mock = src.Mock
	c.Database = src.Database
	c.Logging = src.Logging
	c.Maintenance = src.Maintenance
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.APIURL == "" && !c.Backend.UseMock {
		return errors.New("backend apiUrl is required unless useMock is set")
	}
	if c.Backend.Timeout != "" {
		if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
			return fmt.Errorf("invalid backend timeout: %s", c.Backend.Timeout)
		}
	}
	if c.Backend.CheckRate < 0 {
		return fmt.Errorf("invalid check rate: %v", c.Backend.CheckRate)
	}

	if !validation.IsValidPollingInterval(c.Polling.Interval) {
		return fmt.Errorf("invalid polling interval: %d", c.Polling.Interval)
	}
	if c.Polling.SystemInterval != "" {
		if _, err := time.ParseDuration(c.Polling.SystemInterval); err != nil {
			return fmt.Errorf("invalid system polling interval: %s", c.Polling.SystemInterval)
		}
	}
	if c.Polling.LogLimit < 0 {
		return fmt.Errorf("invalid log limit: %d", c.Polling.LogLimit)
	}

	if c.Mock.Latency != "" {
		if _, err := time.ParseDuration(c.Mock.Latency); err != nil {
			return fmt.Errorf("invalid mock latency: %s", c.Mock.Latency)
		}
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Logging.Level != "" {
		if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("invalid log level: %s", c.Logging.Level)
		}
	}

	if c.Maintenance.Schedule != "" {
		if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("invalid maintenance schedule: %s", c.Maintenance.Schedule)
		}
	}

	return nil
}

// GetBackendTimeout returns the per-request backend timeout
func (c *Config) GetBackendTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return parseDurationOr(c.Backend.Timeout, reference.TimeoutAPIRequest)
}

// GetSystemInterval returns the system status polling period
func (c *Config) GetSystemInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return parseDurationOr(c.Polling.SystemInterval, 10*time.Second)
}

// GetLogLevel returns the configured log level name
func (c *Config) GetLogLevel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.Logging.Level
}

// GetMockLatency returns the artificial delay of mock calls
func (c *Config) GetMockLatency() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return parseDurationOr(c.Mock.Latency, 0)
}

// Settings returns the user settings implied by the configuration. Persisted
// settings are layered over this value.
func (c *Config) Settings() models.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := reference.DefaultSettings()
	if c.Backend.APIURL != "" {
		s.APIURL = c.Backend.APIURL
	}
	s.UseMock = c.Backend.UseMock
	s.PollInterval = c.Polling.Interval
	s.AutoRefresh = c.Polling.AutoRefresh
	return s
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// setDefaults initializes the configuration with default values
func setDefaults(c *Config) {
	defaults := reference.DefaultSettings()

	// Server defaults
	c.Server.Port = 8080
	c.Server.Host = "127.0.0.1"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeout = 30
	c.Server.WriteTimeout = 30
	c.Server.ShutdownTimeout = 10

	// Backend defaults
	c.Backend.APIURL = defaults.APIURL
	c.Backend.UseMock = defaults.UseMock
	c.Backend.FallbackToMock = true
	c.Backend.Timeout = "8s"
	c.Backend.CheckRate = 1
	c.Backend.CheckBurst = 3

	// Polling defaults
	c.Polling.Interval = defaults.PollInterval
	c.Polling.AutoRefresh = defaults.AutoRefresh
	c.Polling.SystemInterval = "10s"
	c.Polling.LogLimit = 100

	// Mock defaults
	c.Mock.Seed = 0
	c.Mock.Latency = "300ms"

	// Database defaults
	c.Database.Path = "./data/statusnet.db"
	c.Database.MaxConnections = 4
	c.Database.JournalMode = "WAL"
	c.Database.SynchronousMode = "NORMAL"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.OutputPath = "./data/logs/statusnet.log"
	c.Logging.MaxSize = 10 // 10 MB
	c.Logging.MaxBackups = 5
	c.Logging.MaxAge = 30 // 30 days
	c.Logging.Compress = true

	// Maintenance defaults
	c.Maintenance.Schedule = "0 3 * * *" // 3 AM daily
	c.Maintenance.DatabaseOptimize = true
	c.Maintenance.CleanupOldData = true
}
