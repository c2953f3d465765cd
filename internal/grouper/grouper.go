// Package grouper partitions a chronologically ordered detection stream
// into same-scan groups by a time-gap threshold.
package grouper

import "github.com/yeltrix/radartrack/internal/model"

// DefaultMaxTimeDiff is the default scan window in seconds.
const DefaultMaxTimeDiff = 0.050

// Accumulator groups detections incrementally as they arrive, which is
// what a live (streaming) source needs -- Group, below, is the same
// algorithm applied to a whole slice at once.
type Accumulator struct {
	maxTimeDiff float64
	baseT       float64
	cur         []model.Detection
	started     bool
}

// NewAccumulator creates an Accumulator with the given scan window.
func NewAccumulator(maxTimeDiff float64) *Accumulator {
	return &Accumulator{maxTimeDiff: maxTimeDiff}
}

// Add appends d to the group currently being accumulated. If d falls
// outside the window measured from the group's first timestamp, the
// current group is closed and returned (ok=true) and a new group is
// started with d.
func (a *Accumulator) Add(d model.Detection) (closed []model.Detection, ok bool) {
	if !a.started {
		a.started = true
		a.baseT = d.T
		a.cur = []model.Detection{d}
		return nil, false
	}

	if d.T-a.baseT <= a.maxTimeDiff {
		a.cur = append(a.cur, d)
		return nil, false
	}

	closed = a.cur
	a.baseT = d.T
	a.cur = []model.Detection{d}
	return closed, true
}

// Flush returns any partial group still being accumulated (e.g. at end
// of stream) and resets the accumulator. It returns nil if there is
// nothing pending.
func (a *Accumulator) Flush() []model.Detection {
	if !a.started || len(a.cur) == 0 {
		return nil
	}
	g := a.cur
	a.cur = nil
	a.started = false
	return g
}

// Group partitions a full, chronologically sorted detection slice into
// scan groups using the same time-gap rule as Accumulator. An empty
// input yields a nil (empty) output, not an error.
func Group(detections []model.Detection, maxTimeDiff float64) [][]model.Detection {
	if len(detections) == 0 {
		return nil
	}

	acc := NewAccumulator(maxTimeDiff)
	var groups [][]model.Detection
	for _, d := range detections {
		if g, ok := acc.Add(d); ok {
			groups = append(groups, g)
		}
	}
	if g := acc.Flush(); g != nil {
		groups = append(groups, g)
	}
	return groups
}
