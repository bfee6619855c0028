// Package ringq implements the fixed-capacity event ring shared between
// interrupt handlers (producers) and the kernel loop (consumer).
package ringq

import (
	"runtime"
	"sync/atomic"

	"eventkernel/x/spin"
)

// spinYield runs between empty polls in Pop.
var spinYield = runtime.Gosched

// Ring is a circular buffer of capacity N. Pushing into a full ring
// overwrites the oldest unread item, so producers never block and never
// fail; under sustained overflow the ring holds the most recent N items.
//
// All storage is allocated by New. Push, Poll and Pop only move indices
// and copy one item under an O(1) spinlock critical section, which makes
// Push safe to call from interrupt context.
type Ring[T any] struct {
	lock  spin.Lock
	buf   []T
	start int // read position
	count int // unread items

	overwritten atomic.Uint64
}

// New returns a ring holding at most capacity items.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		panic("ringq: capacity must be >= 1")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// ---- Producer side ----

// Push appends item. If the ring is full the oldest unread item is
// discarded and the read cursor advances past it.
func (r *Ring[T]) Push(item T) {
	r.lock.Acquire()
	idx := r.wrap(r.start + r.count)
	r.buf[idx] = item
	if r.count == len(r.buf) {
		r.start = r.wrap(r.start + 1)
		r.overwritten.Add(1)
	} else {
		r.count++
	}
	r.lock.Release()
}

// ---- Consumer side ----

// Poll returns the oldest unread item, or false if the ring is empty.
// It never blocks.
func (r *Ring[T]) Poll() (T, bool) {
	var zero T
	r.lock.Acquire()
	if r.count == 0 {
		r.lock.Release()
		return zero, false
	}
	item := r.buf[r.start]
	r.buf[r.start] = zero // drop the ring's reference to the payload
	r.start = r.wrap(r.start + 1)
	r.count--
	r.lock.Release()
	return item, true
}

// Pop spins on Poll until an item is available. Never call it from an
// interrupt handler: the producer it waits for may be the code it interrupted.
func (r *Ring[T]) Pop() T {
	for {
		if item, ok := r.Poll(); ok {
			return item
		}
		spinYield()
	}
}

// ---- Introspection ----

func (r *Ring[T]) Cap() int { return len(r.buf) }

func (r *Ring[T]) Len() int {
	r.lock.Acquire()
	n := r.count
	r.lock.Release()
	return n
}

// Overwritten reports how many unread items were discarded by Push.
func (r *Ring[T]) Overwritten() uint64 { return r.overwritten.Load() }

func (r *Ring[T]) wrap(i int) int { return i % len(r.buf) }
