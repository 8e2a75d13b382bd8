// Package ratelimit provides a minimal client-side call limiter for
// upstream providers with per-minute quotas.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter allows at most burst calls per interval, sliding-window.
// The zero-value Limiter allows everything.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	burst    int
	calls    []time.Time
	now      func() time.Time
}

func New(burst int, interval time.Duration) *Limiter {
	return &Limiter{interval: interval, burst: burst, now: time.Now}
}

// Allow reports whether a call may proceed now and records it if so.
func (l *Limiter) Allow() bool {
	if l == nil || l.burst <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.interval)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept

	if len(l.calls) >= l.burst {
		return false
	}
	l.calls = append(l.calls, now)
	return true
}
