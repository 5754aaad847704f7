package stats

import "testing"

// TestSeriesRingOverflow mirrors scenario S4: maxIntervals=3, ADD
// samples (0,5), (1,7), (2,3), (3,2) land at firstInterval=1,
// lastInterval=3, window=[7,3,2]; a stale sample (0,99) and a
// too-far-ahead sample (5,1) are both no-ops.
func TestSeriesRingOverflow(t *testing.T) {
	s := NewSeries(3)
	s.UpdateAdd(0, 5)
	s.UpdateAdd(1, 7)
	s.UpdateAdd(2, 3)
	s.UpdateAdd(3, 2)

	if s.FirstInterval() != 1 {
		t.Fatalf("firstInterval = %d, want 1", s.FirstInterval())
	}
	if s.LastInterval() != 3 {
		t.Fatalf("lastInterval = %d, want 3", s.LastInterval())
	}
	want := []float64{7, 3, 2}
	got := s.Values()
	if len(got) != len(want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}

	s.UpdateAdd(0, 99)
	if got := s.Values(); got[0] != 7 || got[1] != 3 || got[2] != 2 {
		t.Fatalf("stale sample mutated series: %v", got)
	}

	s.UpdateAdd(5, 1)
	if s.FirstInterval() != 1 || s.LastInterval() != 3 {
		t.Fatalf("too-far-ahead sample advanced window: first=%d last=%d", s.FirstInterval(), s.LastInterval())
	}
	if got := s.Values(); got[0] != 7 || got[1] != 3 || got[2] != 2 {
		t.Fatalf("too-far-ahead sample mutated series: %v", got)
	}
}

func TestSeriesAverageModeDividesByReporters(t *testing.T) {
	s := NewSeries(2)
	s.UpdateAvg(0, 10)
	s.UpdateAvg(0, 20)
	s.UpdateAvg(1, 5)

	got := s.Values()
	if len(got) != 2 {
		t.Fatalf("values = %v, want len 2", got)
	}
	if got[0] != 15 {
		t.Fatalf("average slot 0 = %v, want 15", got[0])
	}
	if got[1] != 5 {
		t.Fatalf("average slot 1 = %v, want 5", got[1])
	}
}
