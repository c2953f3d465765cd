// Package associator implements the clustering and JPDA-style
// single-best-hypothesis selection: given a scan group and a filter
// that has already been predicted to the group's reference time, it
// gates candidate detections, scores the survivors by Gaussian
// likelihood, and returns the maximum-a-posteriori detection.
//
// This is a single-target MAP simplification of full JPDA: one
// hypothesis per surviving detection, rather than the combinatorial
// enumeration of joint assignment events across multiple tracks --
// appropriate because only one track is active per group.
package associator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/yeltrix/radartrack/internal/filter"
	"github.com/yeltrix/radartrack/internal/model"
)

// ErrNoAssociation is returned when no detection in the group survives
// the validation gate.
var ErrNoAssociation = errors.New("associator: no detection survived gating")

// Hypothesis is one candidate detection-to-track assignment.
type Hypothesis struct {
	Index         int
	Detection     model.Detection
	Measurement   model.CartesianMeasurement
	MahalanobisSq float64
	Weight        float64
	Probability   float64
}

// Result holds every hypothesis that survived gating (in group order)
// and the selected best one.
type Result struct {
	Hypotheses []Hypothesis
	Best       *Hypothesis
}

// Select gates the group's detections against f's current predicted
// state, scores the survivors, and returns the MAP hypothesis. f must
// have been Predict-ed to the group's reference time already. It
// returns ErrNoAssociation if no detection survives gating, and
// propagates filter.ErrNumericalSingularity if the innovation
// covariance cannot be factorized.
func Select(f *filter.Filter, group []model.Detection) (*Result, error) {
	gate, err := f.NewGate()
	if err != nil {
		return nil, err
	}

	var hyps []Hypothesis
	for i, d := range group {
		cm := d.Cartesian()
		z := mat.NewVecDense(3, []float64{cm.X, cm.Y, cm.Z})
		d2 := gate.Mahalanobis(z)
		if d2 < f.GateThreshold() {
			hyps = append(hyps, Hypothesis{
				Index:         i,
				Detection:     d,
				Measurement:   cm,
				MahalanobisSq: d2,
			})
		}
	}

	if len(hyps) == 0 {
		return &Result{}, ErrNoAssociation
	}

	score(hyps)

	best := &hyps[0]
	for i := 1; i < len(hyps); i++ {
		if hyps[i].Probability > best.Probability {
			best = &hyps[i]
		}
	}

	return &Result{Hypotheses: hyps, Best: best}, nil
}

// score computes each hypothesis's Gaussian likelihood weight
// exp(-1/2 * d2) (the normalization constant is omitted since every
// hypothesis shares the same innovation covariance S) and normalizes
// into marginal probabilities. If every weight underflows to exactly
// zero, probabilities fall back to uniform.
func score(hyps []Hypothesis) {
	var sum float64
	for i := range hyps {
		w := math.Exp(-0.5 * hyps[i].MahalanobisSq)
		hyps[i].Weight = w
		sum += w
	}

	if sum == 0 {
		uniform := 1.0 / float64(len(hyps))
		for i := range hyps {
			hyps[i].Probability = uniform
		}
		return
	}

	for i := range hyps {
		hyps[i].Probability = hyps[i].Weight / sum
	}
}
