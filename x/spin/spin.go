// Package spin provides the busy-wait lock used for critical sections shared
// between interrupt handlers and the kernel loop.
package spin

import (
	"runtime"
	"sync/atomic"
)

// attemptsBeforeYielding bounds the tight CAS loop before yieldFn is called.
const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked after attemptsBeforeYielding failed attempts. There
	// is no scheduler to yield to on bare metal, so the host build defers to
	// the Go scheduler.
	yieldFn = runtime.Gosched
)

// Lock implements a lock where each context trying to acquire it busy-waits
// till the lock becomes available. The zero value is an unlocked lock.
//
// Critical sections guarded by a Lock must be O(1): an interrupt handler may
// spin on it while the interrupted context holds it.
type Lock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired. Any attempt to re-acquire a
// lock already held by the current context will deadlock.
func (l *Lock) Acquire() {
	for {
		for i := 0; i < attemptsBeforeYielding; i++ {
			if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
				return
			}
		}
		yieldFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Lock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release relinquishes a held lock allowing other contexts to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Lock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// Lock and Unlock make *Lock a sync.Locker.
func (l *Lock) Lock()   { l.Acquire() }
func (l *Lock) Unlock() { l.Release() }
