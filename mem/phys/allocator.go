// Package phys is the physical memory allocator: a fixed array of heap
// slots, each bound to one usable region from the boot memory map, served
// first-fit in slot order.
//
// Freed memory is never reclaimed. Deallocate halts the kernel.
package phys

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"eventkernel/errcode"
	"eventkernel/kernel/halt"
	"eventkernel/mem/bootinfo"
	"eventkernel/types"
)

// HeapSlots is the number of regions the allocator can manage. Regions
// reported beyond this are dropped.
const HeapSlots = 50

type Allocator struct {
	mu     sync.Mutex
	heaps  [HeapSlots]Heap
	log    *zap.Logger
	halter *halt.Halter
}

// New returns an allocator with every slot empty.
func New(log *zap.Logger, h *halt.Halter) *Allocator {
	if log == nil {
		log = zap.NewNop()
	}
	if h == nil {
		h = halt.New(log, nil)
	}
	return &Allocator{log: log.Named("phys"), halter: h}
}

// AddHeap binds the first empty slot to [start, start+length). When every
// slot is taken the region is dropped with a warning and NoHeapSlot is
// returned; the platform simply has less memory.
func (a *Allocator) AddHeap(start, length uint64) error {
	const op = "phys.add_heap"
	if length == 0 {
		return errcode.New(errcode.InvalidParams, op, "zero length region")
	}
	if start+length < start {
		return errcode.New(errcode.InvalidParams, op, "region wraps the address space")
	}
	seg := bootinfo.Segment{Start: start, Length: length}

	a.mu.Lock()
	defer a.mu.Unlock()

	free := -1
	for i := range a.heaps {
		h := &a.heaps[i]
		if h.Empty() {
			if free < 0 {
				free = i
			}
			continue
		}
		if seg.Overlaps(bootinfo.Segment{Start: h.Bottom(), Length: h.Size()}) {
			a.log.Warn("region overlaps a registered heap",
				zap.Stringer("region", seg), zap.Int("slot", i))
			return errcode.New(errcode.RegionOverlap, op, seg.String())
		}
	}
	if free < 0 {
		a.log.Warn("frame allocator has no open slots", zap.Stringer("region", seg))
		return errcode.New(errcode.NoHeapSlot, op, seg.String())
	}
	a.heaps[free] = newHeap(start, length)
	a.log.Debug("heap added", zap.Int("slot", free), zap.Stringer("region", seg))
	return nil
}

// AddMap adds every segment of m and returns how many were bound.
func (a *Allocator) AddMap(m bootinfo.Map) int {
	n := 0
	m.Visit(func(s bootinfo.Segment) bool {
		if a.AddHeap(s.Start, s.Length) == nil {
			n++
		}
		return true
	})
	return n
}

// Allocate returns the address of size bytes aligned to align, taken from
// the first heap in slot order that can satisfy the request.
func (a *Allocator) Allocate(size, align uint64) (uint64, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.heaps {
		h := &a.heaps[i]
		if h.Empty() {
			continue
		}
		if addr, ok := h.allocateFirstFit(l); ok {
			a.log.Debug("allocated", zap.Uint64("size", size), zap.String("addr", fmt.Sprintf("%08x", addr)))
			return addr, nil
		}
	}
	a.log.Error("failed to allocate memory", zap.Uint64("size", size), zap.Uint64("align", l.align()))
	return 0, errcode.New(errcode.OutOfMemory, "phys.allocate", fmt.Sprintf("%d bytes align %d", size, l.align()))
}

// MustAllocate is Allocate for callers with no way to degrade: running out
// of memory halts the kernel.
func (a *Allocator) MustAllocate(size, align uint64) uint64 {
	addr, err := a.Allocate(size, align)
	if err != nil {
		a.halter.Fatalf("phys", "%v", err)
	}
	return addr
}

// Deallocate is not implemented; calling it halts the kernel.
func (a *Allocator) Deallocate(addr uint64, l Layout) {
	a.halter.Fatalf("phys", "deallocate %#x (%d bytes): %s", addr, l.Size, errcode.NotImplemented)
}

// Slots returns the number of bound heap slots.
func (a *Allocator) Slots() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for i := range a.heaps {
		if !a.heaps[i].Empty() {
			n++
		}
	}
	return n
}

// Stats reports every bound heap.
func (a *Allocator) Stats() types.MemoryInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	var mi types.MemoryInfo
	for i := range a.heaps {
		h := &a.heaps[i]
		if h.Empty() {
			continue
		}
		mi.Heaps = append(mi.Heaps, types.HeapInfo{Slot: i, Bottom: h.Bottom(), Size: h.Size(), Used: h.Used()})
		mi.Total += h.Size()
		mi.Free += h.Free()
	}
	return mi
}
