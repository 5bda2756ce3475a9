// Package poller keeps backend resources fresh by fetching them on a fixed
// interval. A Resource tracks one fetched value together with its loading
// state, last error and last update time.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"statusnet/internal/notify"
)

// State is the lifecycle state of a resource
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// FetchFunc loads the current value of a resource
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures how a resource is loaded
type Options struct {
	Name string
	// Interval between silent background loads
	Interval    time.Duration
	AutoRefresh bool
	// InitialLoad runs a visible load as soon as the poller starts
	InitialLoad bool
	// ErrorMessage is the notification raised when a visible load fails
	ErrorMessage string
	Notifier     notify.Notifier
}

// Status describes the loading state of a resource
type Status struct {
	State       State     `json:"state"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
}

// Resource is a polled value
type Resource[T any] struct {
	opts   Options
	fetch  FetchFunc[T]
	apply  func(T)
	logger zerolog.Logger

	mu          sync.RWMutex
	data        T
	state       State
	pending     bool // waiting for the first visible load
	inflight    int  // visible loads in progress
	err         error
	lastUpdated time.Time
	epoch       uint64

	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewResource creates a resource loaded by fetch. apply, when non-nil, is
// called with every value stored in the resource.
func NewResource[T any](opts Options, fetch FetchFunc[T], apply func(T)) *Resource[T] {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard{}
	}
	r := &Resource[T]{
		opts:   opts,
		fetch:  fetch,
		apply:  apply,
		logger: log.With().Str("component", "poller").Str("resource", opts.Name).Logger(),
		state:  StateReady,
	}
	if opts.InitialLoad {
		r.state = StateLoading
		r.pending = true
	}
	return r
}

// Load fetches the resource. Silent loads leave the loading flag alone and
// never raise a notification. Overlapping visible loads keep the flag set
// until the last of them completes.
//
// A result is discarded when the resource was stopped or mutated while the
// fetch was in flight.
func (r *Resource[T]) Load(ctx context.Context, silent bool) error {
	r.mu.Lock()
	epoch := r.epoch
	if !silent {
		r.inflight++
	}
	r.mu.Unlock()

	data, err := r.fetch(ctx)

	r.mu.Lock()
	if !silent {
		r.inflight--
		r.pending = false
	}
	if r.stopped || ctx.Err() != nil {
		r.mu.Unlock()
		r.logger.Debug().Msg("Discarding load result after stop")
		return ctx.Err()
	}
	if epoch != r.epoch {
		r.mu.Unlock()
		r.logger.Debug().Msg("Discarding load result older than a local change")
		return nil
	}

	if err != nil {
		r.err = err
		if r.state == StateLoading {
			r.state = StateFailed
		}
		r.mu.Unlock()

		r.logger.Error().Err(err).Bool("silent", silent).Msg("Failed to load")
		if !silent && r.opts.ErrorMessage != "" {
			r.opts.Notifier.Error(r.opts.ErrorMessage)
		}
		return err
	}

	r.data = data
	r.err = nil
	r.state = StateReady
	r.lastUpdated = time.Now()
	if r.apply != nil {
		r.apply(data)
	}
	r.mu.Unlock()

	if !silent {
		r.logger.Debug().Msg("Loaded")
	}
	return nil
}

// Mutate applies a local change to the stored value. Loads that started
// before the change are discarded when they complete.
func (r *Resource[T]) Mutate(fn func(T) T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = fn(r.data)
	r.epoch++
	r.lastUpdated = time.Now()
	if r.apply != nil {
		r.apply(r.data)
	}
}

// Seed stores an initial value, such as one read from a cache, without
// changing the loading state
func (r *Resource[T]) Seed(data T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = data
	if r.apply != nil {
		r.apply(data)
	}
}

// Data returns the stored value
func (r *Resource[T]) Data() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data
}

// Status returns the loading state
func (r *Resource[T]) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Status{
		State:       r.state,
		Loading:     r.pending || r.inflight > 0,
		LastUpdated: r.lastUpdated,
	}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st
}

// Start runs the initial load, when enabled, and then a silent load on
// every tick until Stop is called or ctx is done.
func (r *Resource[T]) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.stopped = false
	done := r.done
	r.mu.Unlock()

	r.logger.Info().
		Bool("autoRefresh", r.opts.AutoRefresh).
		Dur("interval", r.opts.Interval).
		Msg("Starting poller")

	go r.run(pctx, done)
}

func (r *Resource[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if r.opts.InitialLoad {
		r.Load(ctx, false)
	}

	if !r.opts.AutoRefresh || r.opts.Interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Load(ctx, true)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels in-flight loads and waits for the polling loop to exit
func (r *Resource[T]) Stop() {
	r.mu.Lock()
	r.stopped = true
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info().Msg("Poller stopped")
}
