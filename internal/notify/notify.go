// Package notify keeps the transient user-facing notifications raised by
// the pollers and page handlers, the equivalent of toast messages.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/models"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

const defaultCapacity = 100

// Notifier receives user-facing messages
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Center is a bounded in-memory list of notifications. When full, the
// oldest entry is dropped.
type Center struct {
	mu       sync.RWMutex
	buffer   []models.Notification
	capacity int
	nextID   int64
	logger   zerolog.Logger
}

// NewCenter creates a notification center keeping at most capacity entries
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Center{
		buffer:   make([]models.Notification, 0, capacity),
		capacity: capacity,
		nextID:   1,
		logger:   log.With().Str("component", "notify").Logger(),
	}
}

// Add records a notification at the given level
func (c *Center) Add(level, msg string) models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := models.Notification{
		ID:        c.nextID,
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
	}
	c.nextID++

	if len(c.buffer) >= c.capacity {
		c.buffer = c.buffer[1:]
	}
	c.buffer = append(c.buffer, n)

	c.logger.Debug().Str("level", level).Msg(msg)
	return n
}

// Info records an informational notification
func (c *Center) Info(msg string) { c.Add(LevelInfo, msg) }

// Success records a success notification
func (c *Center) Success(msg string) { c.Add(LevelSuccess, msg) }

// Warning records a warning notification
func (c *Center) Warning(msg string) { c.Add(LevelWarning, msg) }

// Error records an error notification
func (c *Center) Error(msg string) { c.Add(LevelError, msg) }

// Recent returns up to count notifications, newest first. A count of zero
// or less returns all of them.
func (c *Center) Recent(count int) []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if count <= 0 || count > len(c.buffer) {
		count = len(c.buffer)
	}
	out := make([]models.Notification, 0, count)
	for i := len(c.buffer) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, c.buffer[i])
	}
	return out
}

// Unread returns the number of unread notifications
func (c *Center) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, item := range c.buffer {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkAllRead flags every notification as read
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.buffer {
		c.buffer[i].Read = true
	}
}

// Discard is a Notifier that drops every message
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
