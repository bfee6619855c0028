// Package bootinfo describes the usable physical memory reported by firmware.
package bootinfo

import (
	"fmt"
	"sort"
)

// Segment is a usable physical address range [Start, Start+Length).
type Segment struct {
	Start  uint64 `yaml:"start"`
	Length uint64 `yaml:"length"`
}

func (s Segment) End() uint64 { return s.Start + s.Length }

func (s Segment) Overlaps(o Segment) bool {
	return s.Start < o.End() && o.Start < s.End()
}

func (s Segment) String() string {
	return fmt.Sprintf("%#016x - %#016x (%d KiB)", s.Start, s.End(), s.Length/1024)
}

// Map is the boot memory map in the order firmware reported it.
type Map []Segment

// Total is the sum of all segment lengths.
func (m Map) Total() uint64 {
	var n uint64
	for _, s := range m {
		n += s.Length
	}
	return n
}

// TotalMiB is Total in whole mebibytes.
func (m Map) TotalMiB() uint64 { return m.Total() >> 20 }

// Visit calls fn for every segment until fn returns false.
func (m Map) Visit(fn func(Segment) bool) {
	for _, s := range m {
		if !fn(s) {
			return
		}
	}
}

// Sorted returns a copy of m ordered by start address.
func (m Map) Sorted() Map {
	out := append(Map(nil), m...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
