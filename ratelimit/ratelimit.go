// Package ratelimit provides the per-route request limiter. The default
// implementation is an in-memory fixed-window counter; a Redis-backed one
// exists for multi-process deployments. Both are intentionally coarse:
// failure degrades to a reset limiter, never to unsafe access.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether one more request under key is allowed within the
// current window. Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

type fixedWindow struct {
	start time.Time
	count int
}

// MemoryLimiter is a process-local fixed-window counter keyed by caller
// supplied strings (route + client identity, optionally session-scoped).
// Bursts of up to 2x the limit are possible at window boundaries; that
// tradeoff is accepted for abuse prevention.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*fixedWindow
	lastPrune time.Time
	now       func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: map[string]*fixedWindow{},
		now:     time.Now,
	}
}

// Allow starts a new window when none exists or the previous one elapsed,
// otherwise increments and compares against limit.
func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now, window)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= window {
		l.windows[key] = &fixedWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= limit
}

// pruneLocked drops long-dead windows opportunistically so the map does not
// grow without bound between restarts.
func (l *MemoryLimiter) pruneLocked(now time.Time, window time.Duration) {
	if now.Sub(l.lastPrune) < 5*time.Minute {
		return
	}
	l.lastPrune = now
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*window {
			delete(l.windows, key)
		}
	}
}
