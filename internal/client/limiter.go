package client

import (
	"sync"

	"golang.org/x/time/rate"
)

// checkLimiter keeps one token bucket per device id
type checkLimiter struct {
	limiters map[int64]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

func newCheckLimiter(r rate.Limit, burst int) *checkLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &checkLimiter{
		limiters: make(map[int64]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

func (l *checkLimiter) get(deviceID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.limiters[deviceID]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[deviceID] = limiter
	}
	return limiter
}

// allow reports whether a check of deviceID may run now. A zero rate
// disables limiting.
func (l *checkLimiter) allow(deviceID int64) bool {
	if l == nil || l.rate == 0 {
		return true
	}
	return l.get(deviceID).Allow()
}

func (l *checkLimiter) forget(deviceID int64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.limiters, deviceID)
	l.mu.Unlock()
}
