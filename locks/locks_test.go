package locks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryRegistryAcquireRelease(t *testing.T) {
	r := NewMemoryRegistry()

	assert.True(t, r.Acquire("convert:abc"))
	assert.False(t, r.Acquire("convert:abc"), "second acquire while held must fail")

	// A different key is independent.
	assert.True(t, r.Acquire("archive:abc"))

	r.Release("convert:abc")
	assert.True(t, r.Acquire("convert:abc"), "reacquire after release must succeed")
}

func TestMemoryRegistryReleaseIdempotent(t *testing.T) {
	r := NewMemoryRegistry()
	r.Release("never-held")
	assert.True(t, r.Acquire("never-held"))
	r.Release("never-held")
	r.Release("never-held")
	assert.True(t, r.Acquire("never-held"))
}

func TestMemoryRegistryMutualExclusion(t *testing.T) {
	r := NewMemoryRegistry()

	const attempts = 100
	var granted int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Acquire("k") {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	wg.Wait()

	// Exactly one concurrent acquire wins before any release.
	assert.Equal(t, int32(1), granted)
}

func TestLockKeys(t *testing.T) {
	assert.Equal(t, "convert:s1", ConvertKey("s1"))
	assert.Equal(t, "archive:s1", ArchiveKey("s1"))
	assert.NotEqual(t, ConvertKey("s1"), ArchiveKey("s1"))
}
