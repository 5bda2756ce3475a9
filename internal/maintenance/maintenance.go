// Package maintenance runs the periodic housekeeping of the local store on a
// cron schedule: retention cleanup of cached logs and database compaction.
package maintenance

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store is the part of the local store the jobs work on
type Store interface {
	CleanOldData(retentionDays int) (int, error)
	OptimizeDatabase() error
}

// Options select the jobs to run
type Options struct {
	Schedule       string // standard five field cron expression
	CleanupOldData bool
	Optimize       bool
}

// Result describes one maintenance run
type Result struct {
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	LogsRemoved int           `json:"logsRemoved"`
	Optimized   bool          `json:"optimized"`
	Error       string        `json:"error,omitempty"`
}

// Scheduler runs maintenance on a schedule
type Scheduler struct {
	store     Store
	retention func() int
	opts      Options
	cron      *cron.Cron
	entryID   cron.EntryID
	logger    zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *Result
}

// New creates a scheduler. retention is read at every run so a change of the
// user's data retention applies without a restart.
func New(store Store, retention func() int, opts Options) *Scheduler {
	return &Scheduler{
		store:     store,
		retention: retention,
		opts:      opts,
		cron:      cron.New(),
		logger:    log.With().Str("component", "maintenance").Logger(),
	}
}

// Start registers the job and starts the cron loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.opts.Schedule == "" {
		s.logger.Info().Msg("No maintenance schedule configured")
		return nil
	}

	id, err := s.cron.AddFunc(s.opts.Schedule, func() { s.RunNow() })
	if err != nil {
		return fmt.Errorf("invalid cron expression '%s': %w", s.opts.Schedule, err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", s.opts.Schedule).Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// Next returns the time of the next scheduled run, if any
func (s *Scheduler) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}, false
	}
	next := s.cron.Entry(s.entryID).Next
	return next, !next.IsZero()
}

// Last returns the result of the latest run
func (s *Scheduler) Last() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// RunNow runs the enabled jobs immediately
func (s *Scheduler) RunNow() Result {
	res := Result{StartedAt: time.Now()}

	if s.opts.CleanupOldData && s.retention != nil {
		days := s.retention()
		removed, err := s.store.CleanOldData(days)
		if err != nil {
			s.logger.Error().Err(err).Int("retentionDays", days).Msg("Retention cleanup failed")
			res.Error = err.Error()
		}
		res.LogsRemoved = removed
	}

	if s.opts.Optimize {
		if err := s.store.OptimizeDatabase(); err != nil {
			s.logger.Error().Err(err).Msg("Database optimization failed")
			if res.Error == "" {
				res.Error = err.Error()
			}
		} else {
			res.Optimized = true
		}
	}

	res.Duration = time.Since(res.StartedAt)
	s.logger.Info().
		Int("logsRemoved", res.LogsRemoved).
		Bool("optimized", res.Optimized).
		Dur("duration", res.Duration).
		Msg("Maintenance completed")

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res
}
