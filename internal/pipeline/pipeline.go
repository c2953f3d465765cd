// Package pipeline wires the coordinate transforms, filter, grouper,
// associator, and track manager into the single-threaded cooperative
// core loop: detections arrive in order, are partitioned into scan
// groups, and each group is predicted, gated, scored, and either
// used to update the filter or skipped.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"github.com/yeltrix/radartrack/internal/associator"
	"github.com/yeltrix/radartrack/internal/filter"
	"github.com/yeltrix/radartrack/internal/geo"
	"github.com/yeltrix/radartrack/internal/grouper"
	"github.com/yeltrix/radartrack/internal/model"
	"github.com/yeltrix/radartrack/internal/trackmgr"
)

// Core drives one track's filter through its full lifecycle against an
// arriving detection stream.
type Core struct {
	f      *filter.Filter
	acc    *grouper.Accumulator
	tracks *trackmgr.Manager
	track  *trackmgr.Track
	Logger *log.Logger
}

// New builds a Core with the given filter/grouper configuration and
// an initial track pool of poolSize tracks. The core claims one track
// from the pool for its own lifetime.
func New(filterCfg filter.Config, maxTimeDiff float64, poolSize int) *Core {
	tm := trackmgr.New(poolSize)
	return &Core{
		f:      filter.New(filterCfg),
		acc:    grouper.NewAccumulator(maxTimeDiff),
		tracks: tm,
		track:  tm.GetFreeTrack(),
		Logger: log.Default(),
	}
}

// TrackManager exposes the underlying pool, e.g. for inspection by a
// caller managing multiple cores.
func (c *Core) TrackManager() *trackmgr.Manager { return c.tracks }

// Feed submits one detection to the core. If it completes a scan
// group, the group is processed and the resulting record (if any) is
// returned. ok is false when the detection only extends the
// in-progress group, and no record was produced.
func (c *Core) Feed(d model.Detection) (model.OutputRecord, bool, error) {
	group, closed := c.acc.Add(d)
	if !closed {
		return model.OutputRecord{}, false, nil
	}
	return c.processGroup(group)
}

// Flush processes any partial group still pending (e.g. at end of
// stream).
func (c *Core) Flush() (model.OutputRecord, bool, error) {
	group := c.acc.Flush()
	if group == nil {
		return model.OutputRecord{}, false, nil
	}
	return c.processGroup(group)
}

func (c *Core) processGroup(group []model.Detection) (model.OutputRecord, bool, error) {
	if len(group) == 0 {
		return model.OutputRecord{}, false, nil
	}

	refT := group[len(group)-1].T

	switch c.f.Phase() {
	case filter.Uninitialized, filter.OneSeen:
		// Seed the filter with the group's first detection; the
		// two-point init needs one Initialize call per scan until
		// TwoSeen is reached.
		d := group[0]
		cm := d.Cartesian()
		c.f.Initialize(cm.X, cm.Y, cm.Z, d.T)
		return model.OutputRecord{}, false, nil
	case filter.TwoSeen:
		// This detection drives TwoSeen -> Running. Unlike the earlier
		// phases, tracking does not wait for the next group: once
		// Running, the filter falls through into the same group's
		// predict/gate/select/update below, matching the source's
		// initialize+predict+update-in-one-pass behavior from the third
		// measurement onward.
		d := group[0]
		cm := d.Cartesian()
		c.f.Initialize(cm.X, cm.Y, cm.Z, d.T)
	}

	if err := c.f.Predict(refT); err != nil {
		if errors.Is(err, filter.ErrNonMonotonicTime) {
			return model.OutputRecord{}, false, fmt.Errorf("pipeline: %w", err)
		}
		return model.OutputRecord{}, false, err
	}

	result, err := associator.Select(c.f, group)
	if errors.Is(err, associator.ErrNoAssociation) {
		// EmptyGate: advance on prediction only, no record emitted.
		c.f.AdoptPredicted()
		return model.OutputRecord{}, false, nil
	}
	if err != nil {
		if errors.Is(err, filter.ErrNumericalSingularity) {
			// NumericalSingularity: skip this group's update, keep the
			// predicted state as posterior, log, continue.
			c.Logger.Printf("pipeline: numerical singularity during gating, adopting predicted state")
			c.f.AdoptPredicted()
			return c.recordFromState(refT), true, nil
		}
		return model.OutputRecord{}, false, err
	}

	cm := result.Best.Measurement
	z := mat.NewVecDense(3, []float64{cm.X, cm.Y, cm.Z})
	if err := c.f.Update(z); err != nil {
		if errors.Is(err, filter.ErrNumericalSingularity) {
			c.Logger.Printf("pipeline: numerical singularity during update, adopting predicted state")
			c.f.AdoptPredicted()
			return c.recordFromState(refT), true, nil
		}
		return model.OutputRecord{}, false, err
	}

	c.tracks.Assign(c.track, result.Best.Detection)
	return c.recordFromState(refT), true, nil
}

func (c *Core) recordFromState(t float64) model.OutputRecord {
	s := c.f.State()
	r, az, el := geo.CartToSph(s[0], s[1], s[2])
	return model.OutputRecord{T: t, R: r, Az: az, El: el, State: s}
}
