// Package replaysource implements a DetectionSource backed by an
// in-memory slice, used for tests and for replaying a previously
// recorded or synthetically constructed scenario.
package replaysource

import "github.com/yeltrix/radartrack/internal/model"

// Source replays a fixed slice of detections in order.
type Source struct {
	detections []model.Detection
	pos        int
}

// New returns a Source that replays detections in the given order.
// The caller is responsible for ensuring it is sorted non-decreasing
// by timestamp, per the core's input contract.
func New(detections []model.Detection) *Source {
	return &Source{detections: detections}
}

// Next returns the next detection, or ok=false once exhausted.
func (s *Source) Next() (model.Detection, bool, error) {
	if s.pos >= len(s.detections) {
		return model.Detection{}, false, nil
	}
	d := s.detections[s.pos]
	s.pos++
	return d, true, nil
}

// Remaining reports how many detections are left unread.
func (s *Source) Remaining() int {
	return len(s.detections) - s.pos
}
