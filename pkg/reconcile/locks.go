package reconcile

import (
	"path/filepath"
	"sync"
)

// LockRegistry serializes reconciliation work per project path. The
// project path is the unit of exclusion: plans take a shared lock,
// anything that mutates the manifest or managed files takes an exclusive
// one. Different paths are fully independent and reconcile in parallel.
//
// Locks are never held across a network round-trip; the caller's
// think-time between plan and execute happens outside any lock, which is
// why the executor re-validates hashes at apply time.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewLockRegistry creates an empty lock registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[string]*sync.RWMutex)}
}

// lockFor returns the mutex for a path, creating it on first use.
// Paths are cleaned so equivalent spellings share one lock.
func (r *LockRegistry) lockFor(path string) *sync.RWMutex {
	key := filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[key]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[key] = l
	}
	return l
}

// Lock acquires the exclusive lock for a project path, blocking until
// any in-flight reconciliation for the same path finishes. The returned
// function releases the lock and must be called on every exit path.
func (r *LockRegistry) Lock(path string) func() {
	l := r.lockFor(path)
	l.Lock()
	return l.Unlock
}

// RLock acquires a shared lock for read-only operations. Concurrent
// plans for the same path are allowed; slightly stale results are
// tolerated and re-checked at execute time.
func (r *LockRegistry) RLock(path string) func() {
	l := r.lockFor(path)
	l.RLock()
	return l.RUnlock
}
