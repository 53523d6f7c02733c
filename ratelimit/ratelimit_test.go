package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter()

	for i := 0; i < 60; i++ {
		assert.True(t, l.Allow("get-progress:1.2.3.4", 60, time.Minute), "call %d should be allowed", i+1)
	}
	assert.False(t, l.Allow("get-progress:1.2.3.4", 60, time.Minute), "61st call must be rejected")
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k", 1, time.Minute))
	assert.False(t, l.Allow("k", 1, time.Minute))

	// A new window starts once the old one has elapsed.
	now = now.Add(time.Minute)
	assert.True(t, l.Allow("k", 1, time.Minute))
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	assert.True(t, l.Allow("a", 1, time.Minute))
	assert.False(t, l.Allow("a", 1, time.Minute))
	assert.True(t, l.Allow("b", 1, time.Minute))
}

func TestMemoryLimiterZeroLimitDisables(t *testing.T) {
	l := NewMemoryLimiter()
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k", 0, time.Minute))
	}
}

func TestMemoryLimiterConcurrentCounts(t *testing.T) {
	l := NewMemoryLimiter()
	const calls = 100
	const limit = 40

	allowed := make(chan bool, calls)
	for i := 0; i < calls; i++ {
		go func() {
			allowed <- l.Allow("k", limit, time.Minute)
		}()
	}

	granted := 0
	for i := 0; i < calls; i++ {
		if <-allowed {
			granted++
		}
	}
	assert.Equal(t, limit, granted)
}

func TestMemoryLimiterPrunesDeadWindows(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("key-%d", i), 10, time.Minute)
	}
	assert.Len(t, l.windows, 50)

	now = now.Add(10 * time.Minute)
	l.Allow("fresh", 10, time.Minute)
	assert.Len(t, l.windows, 1)
}
