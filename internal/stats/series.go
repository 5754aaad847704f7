// Package stats implements the stat listener and real-time stat
// aggregation handler (C6): register-stat/report-stat bookkeeping per
// job and a bounded ring of per-interval samples per (job, stat) pair
// (spec §3 "Real-time stat store", §4.6).
package stats

// aggMode selects how repeated updates to the same interval slot
// combine (spec §3: "a flag selecting sum or average aggregation, set
// by the first update and thereafter stable").
type aggMode int

const (
	modeUnset aggMode = iota
	modeSum
	modeAverage
)

// slot is one interval's accumulator and reporter count.
type slot struct {
	sum       float64
	reporters int
}

// Series is a bounded ring of maxIntervals interval slots for one
// (job-ID, stat-name) pair (spec §3 "StatSeries", §8 invariant 6).
type Series struct {
	maxIntervals int
	mode         aggMode
	refCount     int

	// window holds slots for [firstInterval, lastInterval], oldest
	// first; len(window) <= maxIntervals.
	window        []slot
	firstInterval int64
	lastInterval  int64
	hasData       bool
}

// NewSeries constructs an empty series bounded to maxIntervals slots.
func NewSeries(maxIntervals int) *Series {
	if maxIntervals <= 0 {
		maxIntervals = 1
	}
	return &Series{maxIntervals: maxIntervals}
}

// advance implements the §3 ring invariant: an interval less than
// firstInterval is discarded; greater than lastInterval+1 is
// discarded; equal to lastInterval+1 advances the window, shifting the
// oldest slot out once full; otherwise it lands within the existing
// window. Returns the slot index to update, or -1 if the sample must
// be dropped.
func (s *Series) advance(interval int64) int {
	if !s.hasData {
		s.hasData = true
		s.firstInterval = interval
		s.lastInterval = interval
		s.window = append(s.window, slot{})
		return 0
	}

	if interval < s.firstInterval {
		return -1
	}
	if interval > s.lastInterval+1 {
		return -1
	}
	if interval == s.lastInterval+1 {
		s.lastInterval = interval
		s.window = append(s.window, slot{})
		if len(s.window) > s.maxIntervals {
			s.window = s.window[1:]
			s.firstInterval++
		}
	}
	return int(interval - s.firstInterval)
}

// UpdateAdd applies an ADD sample: fixes the series to sum mode and
// adds value into the slot for interval (spec §4.6 update_add).
func (s *Series) UpdateAdd(interval int64, value float64) {
	if s.mode == modeUnset {
		s.mode = modeSum
	}
	idx := s.advance(interval)
	if idx < 0 {
		return
	}
	s.window[idx].sum += value
	s.window[idx].reporters++
}

// UpdateAvg applies an AVERAGE sample: fixes the series to average
// mode and accumulates value and a reporter count for later division
// (spec §4.6 update_avg).
func (s *Series) UpdateAvg(interval int64, value float64) {
	if s.mode == modeUnset {
		s.mode = modeAverage
	}
	idx := s.advance(interval)
	if idx < 0 {
		return
	}
	s.window[idx].sum += value
	s.window[idx].reporters++
}

// FirstInterval returns the interval number of the oldest slot
// currently held.
func (s *Series) FirstInterval() int64 { return s.firstInterval }

// LastInterval returns the interval number of the newest slot
// currently held.
func (s *Series) LastInterval() int64 { return s.lastInterval }

// Values returns a copy of the currently-held window, oldest first,
// dividing by each slot's reporter count when the series is in
// average mode (spec §4.6 "values... returning a copy (divided by
// reporter count if average-mode)").
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.window))
	for i, sl := range s.window {
		if s.mode == modeAverage && sl.reporters > 0 {
			out[i] = sl.sum / float64(sl.reporters)
		} else {
			out[i] = sl.sum
		}
	}
	return out
}
