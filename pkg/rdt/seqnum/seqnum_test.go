package seqnum

import "testing"

func TestIncrWraps(t *testing.T) {
	s := New(3) // M = 6
	cases := []struct{ in, want uint16 }{
		{0, 1}, {4, 5}, {5, 0},
	}
	for _, c := range cases {
		if got := s.Incr(c.in); got != c.want {
			t.Errorf("Incr(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDiffClockwiseDistance(t *testing.T) {
	s := New(3) // M = 6
	cases := []struct {
		x, y, want uint16
	}{
		{3, 0, 3},
		{0, 3, 3},
		{1, 5, 2},
		{5, 1, 4},
		{2, 2, 0},
	}
	for _, c := range cases {
		if got := s.Diff(c.x, c.y); got != c.want {
			t.Errorf("Diff(%d, %d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestWSizeClampedToMax(t *testing.T) {
	s := New(MaxWSize + 1000)
	if s.WSize != MaxWSize {
		t.Errorf("WSize = %d, want clamp to %d", s.WSize, MaxWSize)
	}
}

func TestValidRange(t *testing.T) {
	s := New(4) // M = 8
	if !s.Valid(7) {
		t.Error("Valid(7) = false, want true for M=8")
	}
	if s.Valid(8) {
		t.Error("Valid(8) = true, want false for M=8")
	}
}

func TestNewerWrapAround(t *testing.T) {
	if !Newer(1, 0) {
		t.Error("Newer(1, 0) = false, want true")
	}
	if Newer(0, 1) {
		t.Error("Newer(0, 1) = true, want false")
	}
	if !Newer(0, 65535) {
		t.Error("Newer(0, 65535) = false, want true across the uint16 wrap")
	}
}
