// Package sink defines the output side of the core: a Sink consumes
// emitted filtered records, with a stdout implementation for quick
// inspection and trackstore.Store satisfying the same interface for
// persistence.
package sink

import (
	"fmt"
	"io"
	"math"

	"github.com/yeltrix/radartrack/internal/model"
	"github.com/yeltrix/radartrack/internal/units"
)

// Sink consumes one filtered output record at a time.
type Sink interface {
	Write(rec model.OutputRecord) error
}

// Multi fans a record out to every sink in order, returning the first
// error encountered (subsequent sinks are still attempted).
type Multi []Sink

func (m Multi) Write(rec model.OutputRecord) error {
	var firstErr error
	for _, s := range m {
		if err := s.Write(rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stdout writes one line per record in a fixed, human-readable
// format. SpeedUnit controls how the track's scalar speed is
// displayed; it defaults to units.MPS when left unset.
type Stdout struct {
	w         io.Writer
	SpeedUnit string
}

// NewStdout wraps w (typically os.Stdout) as a Sink, displaying speed
// in meters per second.
func NewStdout(w io.Writer) *Stdout {
	return &Stdout{w: w, SpeedUnit: units.MPS}
}

func (s *Stdout) Write(rec model.OutputRecord) error {
	vx, vy, vz := rec.State[3], rec.State[4], rec.State[5]
	speedMPS := math.Sqrt(vx*vx + vy*vy + vz*vz)
	speed, err := units.ConvertSpeed(speedMPS, s.SpeedUnit)
	if err != nil {
		speed, s.SpeedUnit = speedMPS, units.MPS
	}

	_, err = fmt.Fprintf(s.w, "t=%.3f r=%.2f az=%.2f el=%.2f speed=%.2f%s state=%v\n",
		rec.T, rec.R, rec.Az, rec.El, speed, s.SpeedUnit, rec.State)
	return err
}
