// Package locks provides the per-session mutual-exclusion registry that
// guarantees at most one in-flight job of a given kind per session.
package locks

import "sync"

// Registry is a set of currently held operation keys. Acquire returns true
// only for the caller that newly obtained the key; Release is idempotent.
// Callers must release in a deferred block on every path, or the session
// deadlocks permanently.
type Registry interface {
	Acquire(key string) bool
	Release(key string)
}

// MemoryRegistry is the process-local implementation.
type MemoryRegistry struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{held: map[string]struct{}{}}
}

func (r *MemoryRegistry) Acquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[key]; ok {
		return false
	}
	r.held[key] = struct{}{}
	return true
}

func (r *MemoryRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, key)
}

// ConvertKey and ArchiveKey compose the per-session lock keys for the two
// operation kinds that must not overlap themselves.
func ConvertKey(sessionID string) string { return "convert:" + sessionID }
func ArchiveKey(sessionID string) string { return "archive:" + sessionID }
