package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects notifications
type recorder struct {
	mu        sync.Mutex
	errors    []string
	successes []string
}

func (r *recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, msg)
}

func (r *recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes), len(r.errors)
}

// gate lets a test hold a fetch in flight
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestResourceInitialState(t *testing.T) {
	fetch := func(context.Context) (int, error) { return 1, nil }

	eager := NewResource[int](Options{InitialLoad: true}, fetch, nil)
	assert.Equal(t, StateLoading, eager.Status().State)
	assert.True(t, eager.Status().Loading)

	lazy := NewResource[int](Options{}, fetch, nil)
	assert.Equal(t, StateReady, lazy.Status().State)
	assert.False(t, lazy.Status().Loading)
	assert.Equal(t, 0, lazy.Data())
}

func TestResourceLoadSuccess(t *testing.T) {
	var applied int
	r := NewResource[int](Options{InitialLoad: true}, func(context.Context) (int, error) {
		return 42, nil
	}, func(v int) { applied = v })

	require.NoError(t, r.Load(context.Background(), false))

	st := r.Status()
	assert.Equal(t, StateReady, st.State)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.False(t, st.LastUpdated.IsZero())
	assert.Equal(t, 42, r.Data())
	assert.Equal(t, 42, applied)
}

func TestResourceFailureNotifiesOnlyWhenVisible(t *testing.T) {
	rec := &recorder{}
	fail := errors.New("backend down")
	r := NewResource[int](Options{InitialLoad: true, ErrorMessage: "Failed to load", Notifier: rec},
		func(context.Context) (int, error) { return 0, fail }, nil)

	assert.ErrorIs(t, r.Load(context.Background(), true), fail)
	_, errs := rec.counts()
	assert.Equal(t, 0, errs)
	assert.Equal(t, StateFailed, r.Status().State)
	assert.Equal(t, "backend down", r.Status().Error)

	assert.ErrorIs(t, r.Load(context.Background(), false), fail)
	_, errs = rec.counts()
	assert.Equal(t, 1, errs)
}

func TestResourceFailureKeepsData(t *testing.T) {
	calls := 0
	r := NewResource[int](Options{}, func(context.Context) (int, error) {
		calls++
		if calls > 1 {
			return 0, errors.New("gone")
		}
		return 7, nil
	}, nil)

	require.NoError(t, r.Load(context.Background(), false))
	require.Error(t, r.Load(context.Background(), true))
	assert.Equal(t, 7, r.Data())
	assert.Equal(t, StateReady, r.Status().State)
}

func TestSilentLoadLeavesLoadingFlag(t *testing.T) {
	g := newGate()
	var calls int32
	r := NewResource[int](Options{}, func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), g.wait(ctx)
	}, nil)

	done := make(chan struct{})
	go func() {
		r.Load(context.Background(), true)
		close(done)
	}()
	<-g.entered
	assert.False(t, r.Status().Loading)
	close(g.release)
	<-done

	// a successful silent load still refreshes the data and the timestamp
	assert.Equal(t, 1, r.Data())
	first := r.Status().LastUpdated
	assert.False(t, first.IsZero())

	time.Sleep(2 * time.Millisecond)
	g = newGate()
	close(g.release)
	go func() { <-g.entered }()
	require.NoError(t, r.Load(context.Background(), true))
	assert.Equal(t, 2, r.Data())
	assert.True(t, r.Status().LastUpdated.After(first))

	g = newGate()
	done = make(chan struct{})
	go func() {
		r.Load(context.Background(), false)
		close(done)
	}()
	<-g.entered
	assert.True(t, r.Status().Loading)
	close(g.release)
	<-done
	assert.False(t, r.Status().Loading)
	assert.Equal(t, 3, r.Data())
}

func TestOverlappingVisibleLoads(t *testing.T) {
	entered := make(chan int, 2)
	releases := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var calls int32
	r := NewResource[int](Options{InitialLoad: true}, func(ctx context.Context) (int, error) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		entered <- n
		<-releases[n]
		return n + 1, nil
	}, nil)

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			r.Load(context.Background(), false)
			done <- struct{}{}
		}()
	}
	<-entered
	<-entered

	close(releases[0])
	<-done
	assert.True(t, r.Status().Loading, "second load is still in flight")

	close(releases[1])
	<-done
	assert.False(t, r.Status().Loading)
	assert.Equal(t, StateReady, r.Status().State)
}

func TestLoadOlderThanMutationIsDiscarded(t *testing.T) {
	g := newGate()
	r := NewResource[[]int](Options{}, func(ctx context.Context) ([]int, error) {
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
		return []int{1, 2, 3}, nil
	}, nil)
	r.Seed([]int{1, 2, 3})

	done := make(chan error)
	go func() { done <- r.Load(context.Background(), true) }()
	<-g.entered

	r.Mutate(func(list []int) []int { return []int{1, 3} })
	close(g.release)
	require.NoError(t, <-done)

	assert.Equal(t, []int{1, 3}, r.Data())
}

func TestStopCancelsInFlightLoad(t *testing.T) {
	g := newGate()
	var calls int32
	r := NewResource[int](Options{InitialLoad: true}, func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		if err := g.wait(ctx); err != nil {
			return 0, err
		}
		return 99, nil
	}, nil)

	r.Start(context.Background())
	<-g.entered
	r.Stop()

	assert.Equal(t, 0, r.Data())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// loads after stop are discarded
	close(g.release)
	go func() { <-g.entered }()
	r.Load(context.Background(), false)
	assert.Equal(t, 0, r.Data())
}

func TestPollingRepeatsSilently(t *testing.T) {
	rec := &recorder{}
	var calls int32
	r := NewResource[int](Options{
		Interval:     10 * time.Millisecond,
		AutoRefresh:  true,
		ErrorMessage: "Failed",
		Notifier:     rec,
	}, func(context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		return int(n), errors.New("still failing")
	}, nil)

	r.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, time.Second, 5*time.Millisecond)
	r.Stop()

	_, errs := rec.counts()
	assert.Equal(t, 0, errs)
}

func TestStartIsIdempotent(t *testing.T) {
	var calls int32
	r := NewResource[int](Options{InitialLoad: true}, func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	}, nil)

	r.Start(context.Background())
	r.Start(context.Background())
	require.Eventually(t, func() bool { return r.Data() == 1 }, time.Second, 5*time.Millisecond)
	r.Stop()
	r.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
