package phys

import (
	"eventkernel/errcode"
)

// Layout is the size and alignment of an allocation request.
type Layout struct {
	Size  uint64
	Align uint64
}

// Validate checks that Size is non-zero and Align a power of two. A zero
// Align is treated as 1.
func (l Layout) Validate() error {
	if l.Size == 0 {
		return errcode.New(errcode.InvalidParams, "phys.layout", "zero size")
	}
	if l.Align != 0 && l.Align&(l.Align-1) != 0 {
		return errcode.New(errcode.InvalidParams, "phys.layout", "alignment not a power of two")
	}
	return nil
}

func (l Layout) align() uint64 {
	if l.Align == 0 {
		return 1
	}
	return l.Align
}

type hole struct {
	addr, size uint64
}

func (h hole) end() uint64 { return h.addr + h.size }

// Heap manages one contiguous region with a first-fit hole list kept in
// address order. The zero Heap is empty: it has size 0 and satisfies no
// request.
type Heap struct {
	bottom uint64
	size   uint64
	holes  []hole
}

func newHeap(bottom, size uint64) Heap {
	return Heap{bottom: bottom, size: size, holes: []hole{{addr: bottom, size: size}}}
}

func (h *Heap) Bottom() uint64 { return h.bottom }
func (h *Heap) Top() uint64    { return h.bottom + h.size }
func (h *Heap) Size() uint64   { return h.size }
func (h *Heap) Empty() bool    { return h.size == 0 }

// Free is the number of bytes in holes, including alignment padding left
// behind by earlier allocations.
func (h *Heap) Free() uint64 {
	var n uint64
	for _, ho := range h.holes {
		n += ho.size
	}
	return n
}

func (h *Heap) Used() uint64 { return h.size - h.Free() }

// allocateFirstFit carves l out of the first hole that can hold it. Padding
// in front of the aligned address stays a hole.
func (h *Heap) allocateFirstFit(l Layout) (uint64, bool) {
	align := l.align()
	for i, ho := range h.holes {
		addr := alignUp(ho.addr, align)
		if addr < ho.addr || addr+l.Size < addr || addr+l.Size > ho.end() {
			continue
		}
		var repl []hole
		if front := addr - ho.addr; front > 0 {
			repl = append(repl, hole{addr: ho.addr, size: front})
		}
		if back := ho.end() - (addr + l.Size); back > 0 {
			repl = append(repl, hole{addr: addr + l.Size, size: back})
		}
		h.holes = append(h.holes[:i], append(repl, h.holes[i+1:]...)...)
		return addr, true
	}
	return 0, false
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
