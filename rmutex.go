package chainmap

import (
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// RMutex is a reentrant mutual-exclusion lock: the goroutine holding it may
// acquire it again without deadlocking. Every Lock must be balanced by an
// Unlock from the same goroutine; the lock is released to other goroutines
// only when the outermost Unlock runs.
//
// Ownership is tracked by goroutine ID using github.com/petermattis/goid.
// The owner word is read by goroutines that do not hold the lock, so it is
// accessed atomically. The depth counter is touched only by the owner.
type RMutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

// Lock acquires the mutex, blocking until it is available unless the calling
// goroutine already owns it, in which case the hold depth is increased.
func (m *RMutex) Lock() {
	gid := goid.Get()
	if m.owner.Load() == gid {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(gid)
	m.depth = 1
}

// Unlock releases one level of ownership. The mutex becomes available to
// other goroutines once the depth of the owning goroutine reaches zero.
func (m *RMutex) Unlock() {
	if m.owner.Load() != goid.Get() {
		panic("chainmap: RMutex unlocked by non-owner goroutine")
	}
	m.depth--
	if m.depth == 0 {
		m.owner.Store(0)
		m.mu.Unlock()
	}
}
