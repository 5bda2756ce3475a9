// Package database provides the local store of the StatusNet daemon.
// It keeps user settings and the last device and log snapshots in a SQLite
// key/value table so the dashboard starts with data even when the backend is
// down, and applies the data retention chosen by the user.
package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
	"statusnet/internal/reference"
)

const (
	retryAttempts = 3
	retryDelay    = 50 * time.Millisecond
)

// DB represents the database connection
type DB struct {
	*sql.DB
	Path   string
	logger *zerolog.Logger
	now    func() time.Time
	sync.Mutex
}

// Options tune the SQLite connection
type Options struct {
	JournalMode     string
	SynchronousMode string
	MaxConnections  int
}

// New creates a new database connection with the default options
func New(path string) (*DB, error) {
	return Open(path, Options{})
}

// Open creates a new database connection
func Open(path string, opts Options) (*DB, error) {
	if opts.JournalMode == "" {
		opts.JournalMode = "WAL"
	}
	if opts.SynchronousMode == "" {
		opts.SynchronousMode = "NORMAL"
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 1
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxConnections)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	logger := log.With().Str("component", "database").Logger()

	dbInstance := &DB{
		DB:     db,
		Path:   path,
		logger: &logger,
		now:    time.Now,
	}

	if err := dbInstance.initializeDB(); err != nil {
		db.Close()
		return nil, err
	}

	if err := dbInstance.optimizeDB(opts); err != nil {
		logger.Warn().Err(err).Msg("Failed to set some database optimization parameters")
	}

	return dbInstance, nil
}

func (db *DB) initializeDB() error {
	db.logger.Info().Str("path", db.Path).Msg("Initializing database schema")

	schema := `
	CREATE TABLE IF NOT EXISTS storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_storage_updated_at ON storage(updated_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return nil
}

// optimizeDB sets SQLite pragmas
func (db *DB) optimizeDB(opts Options) error {
	if _, err := db.Exec("PRAGMA journal_mode=" + opts.JournalMode); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous=" + opts.SynchronousMode); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA cache_size=-4000"); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to set cache_size PRAGMA")
	}

	// avoid "database is locked" while the maintenance job runs
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to set busy_timeout PRAGMA")
	}

	return nil
}

// ExecuteWithRetry runs operation, retrying while SQLite reports a busy or
// locked database
func (db *DB) ExecuteWithRetry(maxRetries int, retryDelay time.Duration, operation func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "database is locked") ||
			strings.Contains(err.Error(), "busy") {
			db.logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("maxRetries", maxRetries).
				Msg("Retrying database operation")

			time.Sleep(retryDelay)
			retryDelay = retryDelay * 2
			continue
		}

		break
	}

	return fmt.Errorf("database operation failed after %d attempts: %w", maxRetries, err)
}

// Put stores v as JSON under key, replacing any previous value
func (db *DB) Put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	db.Lock()
	defer db.Unlock()

	return db.ExecuteWithRetry(retryAttempts, retryDelay, func() error {
		return db.upsert(db.DB, key, data)
	})
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (db *DB) upsert(ex execer, key string, data []byte) error {
	_, err := ex.Exec(`
		INSERT INTO storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), db.now().UTC())
	return err
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent.
func (db *DB) Get(key string, v interface{}) (bool, error) {
	var raw string
	err := db.QueryRow("SELECT value FROM storage WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// UpdatedAt returns when key was last written
func (db *DB) UpdatedAt(key string) (time.Time, bool, error) {
	var ts time.Time
	err := db.QueryRow("SELECT updated_at FROM storage WHERE key = ?", key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return ts, true, nil
}

// Clear removes every stored value
func (db *DB) Clear() error {
	db.Lock()
	defer db.Unlock()

	res, err := db.Exec("DELETE FROM storage")
	if err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	n, _ := res.RowsAffected()
	db.logger.Info().Int64("keys", n).Msg("Local storage cleared")
	return nil
}

// SaveSettings persists the user settings
func (db *DB) SaveSettings(s models.Settings) error {
	return db.Put(reference.KeySettings, s)
}

// LoadSettings returns the persisted settings. Fields missing from the stored
// document take their value from defaults.
func (db *DB) LoadSettings(defaults models.Settings) (models.Settings, bool, error) {
	s := defaults
	ok, err := db.Get(reference.KeySettings, &s)
	if err != nil || !ok {
		return defaults, false, err
	}
	return s, true, nil
}

// SaveTheme persists the theme on its own key
func (db *DB) SaveTheme(theme string) error {
	return db.Put(reference.KeyTheme, theme)
}

// LoadTheme returns the persisted theme, or an empty string
func (db *DB) LoadTheme() (string, error) {
	var theme string
	if _, err := db.Get(reference.KeyTheme, &theme); err != nil {
		return "", err
	}
	return theme, nil
}

// SaveDevices stores the last device snapshot
func (db *DB) SaveDevices(devices []models.Device) error {
	return db.Put(reference.KeyDevices, devices)
}

// LoadDevices returns the last device snapshot, or nil
func (db *DB) LoadDevices() ([]models.Device, error) {
	var devices []models.Device
	if _, err := db.Get(reference.KeyDevices, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// SaveLogs stores the last log snapshot
func (db *DB) SaveLogs(entries []models.StatusLogEntry) error {
	return db.Put(reference.KeyLogs, entries)
}

// LoadLogs returns the last log snapshot, or nil
func (db *DB) LoadLogs() ([]models.StatusLogEntry, error) {
	var entries []models.StatusLogEntry
	if _, err := db.Get(reference.KeyLogs, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CleanOldData drops cached log entries older than retentionDays and returns
// how many were removed. A retention of zero keeps everything. The snapshot is
// read and rewritten in one transaction under the write lock, so a concurrent
// SaveLogs lands either before or after the cleanup, never in between.
func (db *DB) CleanOldData(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	db.Lock()
	defer db.Unlock()

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin cleanup: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow("SELECT value FROM storage WHERE key = ?", reference.KeyLogs).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", reference.KeyLogs, err)
	}

	var entries []models.StatusLogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return 0, fmt.Errorf("failed to decode %s: %w", reference.KeyLogs, err)
	}

	cutoff := db.now().AddDate(0, 0, -retentionDays)
	kept := make([]models.StatusLogEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", reference.KeyLogs, err)
	}
	if err := db.upsert(tx, reference.KeyLogs, data); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", reference.KeyLogs, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}

	db.logger.Info().
		Int("removed", removed).
		Int("retentionDays", retentionDays).
		Msg("Cleaned old cached logs")
	return removed, nil
}

// OptimizeDatabase compacts the database file
func (db *DB) OptimizeDatabase() error {
	db.Lock()
	defer db.Unlock()

	db.logger.Info().Msg("Optimizing database")

	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	if _, err := db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	return nil
}

// GetDatabaseStats returns the stored keys with their sizes and the file size
func (db *DB) GetDatabaseStats() (map[string]interface{}, error) {
	rows, err := db.Query("SELECT key, length(value), updated_at FROM storage ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query storage: %w", err)
	}
	defer rows.Close()

	keys := map[string]interface{}{}
	total := 0
	for rows.Next() {
		var key string
		var size int
		var updated time.Time
		if err := rows.Scan(&key, &size, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan storage row: %w", err)
		}
		keys[key] = map[string]interface{}{"bytes": size, "updatedAt": updated}
		total += size
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"keys":       keys,
		"totalBytes": total,
	}
	if info, err := os.Stat(db.Path); err == nil {
		stats["fileBytes"] = info.Size()
	}
	return stats, nil
}
