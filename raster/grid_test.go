package raster

import "testing"

func TestOffsetRowMajor(t *testing.T) {
	g := New(3, 5)
	if got := g.Offset(2, 4); got != 14 {
		t.Errorf("Offset(2,4) = %d, want 14", got)
	}
	g.Set(1, 2, 7)
	if g.Cells()[7] != 7 {
		t.Errorf("Set(1,2) wrote to wrong cell: %v", g.Cells())
	}
}

func TestBoundsAndInterior(t *testing.T) {
	g := New(4, 4)
	tests := []struct {
		name     string
		r, c     int
		inBounds bool
		interior bool
	}{
		{"origin", 0, 0, true, false},
		{"inner", 1, 2, true, true},
		{"last inner", 2, 2, true, true},
		{"right edge", 2, 3, true, false},
		{"negative", -1, 2, false, false},
		{"past end", 4, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.InBounds(tt.r, tt.c); got != tt.inBounds {
				t.Errorf("InBounds(%d,%d) = %v, want %v", tt.r, tt.c, got, tt.inBounds)
			}
			if got := g.Interior(tt.r, tt.c); got != tt.interior {
				t.Errorf("Interior(%d,%d) = %v, want %v", tt.r, tt.c, got, tt.interior)
			}
		})
	}
}

func TestFromSliceRejectsBadLength(t *testing.T) {
	if _, err := FromSlice(2, 2, make([]uint8, 3)); err == nil {
		t.Error("expected error for short buffer")
	}
	g, err := FromSlice(2, 2, []uint8{1, 0, 0, 4})
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	if g.At(1, 1) != 4 {
		t.Errorf("At(1,1) = %d, want 4", g.At(1, 1))
	}
}

func TestCounts(t *testing.T) {
	g := FromRows([][]uint8{
		{0, 1, 100},
		{3, 0, 120},
	})
	if got := g.CountNonZero(); got != 4 {
		t.Errorf("CountNonZero = %d, want 4", got)
	}
	if got := g.CountAtLeast(100); got != 2 {
		t.Errorf("CountAtLeast(100) = %d, want 2", got)
	}
	pts := g.PointsAtLeast(3)
	want := []Point{{0, 2}, {1, 0}, {1, 2}}
	if len(pts) != len(want) {
		t.Fatalf("PointsAtLeast len = %d, want %d", len(pts), len(want))
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("PointsAtLeast[%d] = %v, want %v", i, pts[i], want[i])
		}
	}
}

func TestCountNeighborsAbove(t *testing.T) {
	g := FromRows([][]uint8{
		{1, 1, 0},
		{0, 5, 1},
		{0, 0, 1},
	})
	if got := g.CountNeighborsAbove(1, 1, 0); got != 4 {
		t.Errorf("center neighbours = %d, want 4", got)
	}
	// corner only sees in-image neighbours
	if got := g.CountNeighborsAbove(0, 0, 0); got != 2 {
		t.Errorf("corner neighbours = %d, want 2", got)
	}
}

func TestRingNeighborWraps(t *testing.T) {
	r0, c0 := RingNeighbor(5, 5, 0)
	r8, c8 := RingNeighbor(5, 5, 8)
	if r0 != r8 || c0 != c8 {
		t.Errorf("ring index 8 should wrap to 0: got (%d,%d) vs (%d,%d)", r8, c8, r0, c0)
	}
	seen := map[Point]bool{}
	for k := 0; k < 8; k++ {
		r, c := RingNeighbor(0, 0, k)
		seen[Point{r, c}] = true
	}
	if len(seen) != 8 {
		t.Errorf("ring should visit 8 distinct neighbours, got %d", len(seen))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New(2, 2)
	g.Set(0, 0, 9)
	c := g.Clone()
	c.Set(0, 0, 1)
	if g.At(0, 0) != 9 {
		t.Error("mutating clone changed original")
	}
	c.Clear()
	if c.CountNonZero() != 0 {
		t.Error("Clear left non-zero cells")
	}
}
