package bootinfo

import "testing"

func TestMapTotals(t *testing.T) {
	m := Map{
		{Start: 0x100000, Length: 3 << 20},
		{Start: 0x0, Length: 0x9f000},
		{Start: 0x10000000, Length: 1 << 20},
	}
	if got, want := m.Total(), uint64(4<<20+0x9f000); got != want {
		t.Fatalf("Total = %#x, want %#x", got, want)
	}
	if got := m.TotalMiB(); got != 4 {
		t.Fatalf("TotalMiB = %d, want 4", got)
	}

	sorted := m.Sorted()
	if sorted[0].Start != 0 || sorted[2].Start != 0x10000000 {
		t.Fatalf("unexpected order: %v", sorted)
	}
	if m[0].Start != 0x100000 {
		t.Fatal("Sorted modified the receiver")
	}

	var visited int
	m.Visit(func(Segment) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Fatalf("Visit did not stop early; visited %d", visited)
	}
}

func TestSegmentOverlaps(t *testing.T) {
	specs := []struct {
		a, b Segment
		exp  bool
	}{
		{Segment{0, 100}, Segment{100, 10}, false},
		{Segment{0, 100}, Segment{99, 10}, true},
		{Segment{50, 10}, Segment{0, 100}, true},
		{Segment{0, 0}, Segment{0, 100}, false},
	}
	for i, spec := range specs {
		if got := spec.a.Overlaps(spec.b); got != spec.exp {
			t.Errorf("[spec %d] Overlaps = %t, want %t", i, got, spec.exp)
		}
	}
}

func TestSegmentString(t *testing.T) {
	s := Segment{Start: 0x1000, Length: 8192}
	if got, want := s.String(), "0x0000000000001000 - 0x0000000000003000 (8 KiB)"; got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}
