// Package filter implements the constant-velocity Kalman filter at the
// heart of the tracking core: two-point initialization, time
// propagation, measurement update, and innovation-based gating.
//
// State is represented with gonum/mat value types (VecDense, Dense,
// SymDense) rather than hand-rolled fixed arrays, and matrix inversion
// is avoided in favor of a Cholesky solve against the (small, SPD)
// innovation covariance.
package filter

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// InitPhase enumerates the filter's initialization lifecycle. Predict
// and Update may only be called once the filter has reached Running.
type InitPhase int

const (
	Uninitialized InitPhase = iota
	OneSeen
	TwoSeen
	Running
)

func (p InitPhase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case OneSeen:
		return "one_seen"
	case TwoSeen:
		return "two_seen"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Sentinel errors surfaced on the filter's data path. NumericalSingularity
// is recoverable by the caller (skip the update, keep the predicted
// state); NonMonotonicTime is not.
var (
	ErrNumericalSingularity = errors.New("filter: numerical singularity")
	ErrNonMonotonicTime     = errors.New("filter: non-monotonic time")
)

// Tunable defaults. GateThreshold's default is large enough to disable
// gating for 3 degrees of freedom; callers that want real gating should
// use Gate95 (7.815) or Gate975 (9.348).
const (
	DefaultPlantNoise    = 20.0
	DefaultGateThreshold = 9000.21
	Gate95               = 7.815
	Gate975              = 9.348
)

// Config holds the filter's static tuning parameters.
type Config struct {
	PlantNoise    float64      // scales the process-noise matrix Q
	GateThreshold float64      // chi-squared cutoff, 3 DoF
	R             *mat.SymDense // 3x3 measurement noise; nil => identity
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		PlantNoise:    DefaultPlantNoise,
		GateThreshold: DefaultGateThreshold,
		R:             identitySym(3),
	}
}

// Filter holds one track's Kalman state.
type Filter struct {
	cfg   Config
	phase InitPhase

	h *mat.Dense // 3x6, observation matrix selecting position

	sf *mat.VecDense // 6, posterior state
	pf *mat.SymDense // 6x6, posterior covariance

	sp *mat.VecDense // 6, predicted state (valid between Predict and Update)
	pp *mat.SymDense // 6x6, predicted covariance

	z1, z2 [3]float64 // first/second Cartesian measurements, init only

	tMeas float64
	tPrev float64
}

// New creates a Filter in the Uninitialized phase.
func New(cfg Config) *Filter {
	if cfg.R == nil {
		cfg.R = identitySym(3)
	}
	if cfg.PlantNoise == 0 {
		cfg.PlantNoise = DefaultPlantNoise
	}
	if cfg.GateThreshold == 0 {
		cfg.GateThreshold = DefaultGateThreshold
	}
	return &Filter{
		cfg:   cfg,
		phase: Uninitialized,
		h:     defaultH(),
	}
}

// Phase returns the filter's current initialization phase.
func (f *Filter) Phase() InitPhase { return f.phase }

// GateThreshold returns the configured validation-gate cutoff.
func (f *Filter) GateThreshold() float64 { return f.cfg.GateThreshold }

// State returns a snapshot of the posterior state [x,y,z,vx,vy,vz].
func (f *Filter) State() [6]float64 {
	var s [6]float64
	for i := 0; i < 6; i++ {
		s[i] = f.sf.AtVec(i)
	}
	return s
}

// Covariance returns the posterior covariance Pf.
func (f *Filter) Covariance() mat.Symmetric { return f.pf }

// Initialize advances the init-phase state machine with one Cartesian
// measurement (x, y, z) observed at time t:
//
//   - Uninitialized -> OneSeen: seeds Sf's position, zero velocity.
//   - OneSeen -> TwoSeen: computes velocity as (Z2-Z1)/dt. The source
//     this filter is modeled on computes (Z1-Z2)/dt, the physically
//     backwards sign for monotonically increasing time; this
//     implementation uses the corrected (Z2-Z1)/dt instead.
//   - TwoSeen -> Running: records the measurement, no further seeding.
//   - Running: records the measurement and shifts timestamps only; callers
//     should prefer Predict/Update once Running.
func (f *Filter) Initialize(x, y, z, t float64) {
	switch f.phase {
	case Uninitialized:
		f.z1 = [3]float64{x, y, z}
		f.sf = mat.NewVecDense(6, []float64{x, y, z, 0, 0, 0})
		f.pf = initialCovariance()
		f.tMeas = t
		f.tPrev = t
		f.phase = OneSeen

	case OneSeen:
		f.z2 = [3]float64{x, y, z}
		dt := t - f.tMeas
		f.sf.SetVec(3, (x-f.z1[0])/dt)
		f.sf.SetVec(4, (y-f.z1[1])/dt)
		f.sf.SetVec(5, (z-f.z1[2])/dt)
		f.tPrev = f.tMeas
		f.tMeas = t
		f.phase = TwoSeen

	case TwoSeen:
		f.z1, f.z2 = f.z2, [3]float64{x, y, z}
		f.tPrev = f.tMeas
		f.tMeas = t
		f.phase = Running

	case Running:
		f.z1, f.z2 = f.z2, [3]float64{x, y, z}
		f.tPrev = f.tMeas
		f.tMeas = t
	}
}

// Predict propagates the filter's state forward to time t using the
// constant-velocity transition. Per the source this filter is modeled
// on, dt is computed against t_prev, not t_meas, and Predict does not
// mutate t_prev -- only Initialize does. Every Predict after the last
// Initialize call therefore measures dt from that same t_prev, so dt
// keeps growing across repeated calls, whether they fall within one
// scan or in successive scans.
//
// Predict panics if the filter has not reached Running -- calling it
// earlier is a programmer error, not a data-path failure.
func (f *Filter) Predict(t float64) error {
	if f.phase != Running {
		panic("filter: Predict called before the filter reached Running")
	}

	dt := t - f.tPrev
	if dt < 0 {
		return fmt.Errorf("filter: predict to t=%v before t_prev=%v: %w", t, f.tPrev, ErrNonMonotonicTime)
	}

	phi := buildPhi(dt)
	q := buildQ(dt, f.cfg.PlantNoise)

	sp := mat.NewVecDense(6, nil)
	sp.MulVec(phi, f.sf)

	var phiP, phiPphiT mat.Dense
	phiP.Mul(phi, f.pf)
	phiPphiT.Mul(&phiP, phi.T())

	pp := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			pp.SetSym(i, j, phiPphiT.At(i, j)+q.At(i, j))
		}
	}

	f.sp = sp
	f.pp = pp
	f.tMeas = t
	return nil
}

// Gate captures the innovation covariance factorization computed from
// the filter's current predicted state, so that an associator can score
// several candidate measurements against one scan's S without refactoring
// it per candidate.
type Gate struct {
	f    *Filter
	chol mat.Cholesky
}

// NewGate factorizes S = H*Pp*H' + R once. It returns
// ErrNumericalSingularity if S is not (numerically) positive definite.
func (f *Filter) NewGate() (*Gate, error) {
	if f.phase != Running {
		panic("filter: NewGate called before the filter reached Running")
	}

	var hpp, hpph mat.Dense
	hpp.Mul(f.h, f.pp)
	hpph.Mul(&hpp, f.h.T())

	s := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			s.SetSym(i, j, hpph.At(i, j)+f.cfg.R.At(i, j))
		}
	}

	g := &Gate{f: f}
	if ok := g.chol.Factorize(s); !ok {
		return nil, ErrNumericalSingularity
	}
	return g, nil
}

// Innovation returns z - H*Sp for the given Cartesian measurement.
func (g *Gate) Innovation(z *mat.VecDense) *mat.VecDense {
	var hsp mat.VecDense
	hsp.MulVec(g.f.h, g.f.sp)
	nu := mat.NewVecDense(3, nil)
	nu.SubVec(z, &hsp)
	return nu
}

// Mahalanobis returns the squared Mahalanobis distance nu'*S^-1*nu for z.
func (g *Gate) Mahalanobis(z *mat.VecDense) float64 {
	nu := g.Innovation(z)
	var x mat.VecDense
	if err := g.chol.SolveVecTo(&x, nu); err != nil {
		// chol was factorized successfully; a solve failure here would
		// indicate a dimension mismatch, which is a programmer error.
		panic(fmt.Sprintf("filter: gate solve failed: %v", err))
	}
	return mat.Dot(nu, &x)
}

// Passes reports whether z falls inside the validation gate.
func (g *Gate) Passes(z *mat.VecDense) (bool, float64) {
	d2 := g.Mahalanobis(z)
	return d2 < g.f.cfg.GateThreshold, d2
}

// Gate reports whether z falls inside the validation gate against the
// filter's current predicted state, recomputing S for a single query.
func (f *Filter) Gate(z *mat.VecDense) (bool, float64, error) {
	g, err := f.NewGate()
	if err != nil {
		return false, 0, err
	}
	ok, d2 := g.Passes(z)
	return ok, d2, nil
}

// Update corrects the predicted state with a Cartesian measurement z,
// producing the posterior Sf, Pf. Pf is explicitly symmetrized after
// the (I-KH)*Pp update since that form is not guaranteed to stay
// numerically symmetric (the Joseph form is not used).
func (f *Filter) Update(z *mat.VecDense) error {
	if f.phase != Running {
		panic("filter: Update called before the filter reached Running")
	}

	gate, err := f.NewGate()
	if err != nil {
		return err
	}
	nu := gate.Innovation(z)

	hpp := mat.NewDense(3, 6, nil)
	hpp.Mul(f.h, f.pp)

	var kt mat.Dense
	if err := gate.chol.SolveTo(&kt, hpp); err != nil {
		return fmt.Errorf("filter: %w", ErrNumericalSingularity)
	}
	k := mat.NewDense(6, 3, nil)
	k.CloneFrom(kt.T())

	var kNu mat.VecDense
	kNu.MulVec(k, nu)
	newSf := mat.NewVecDense(6, nil)
	newSf.AddVec(f.sp, &kNu)

	var kh, iMinusKH, newP mat.Dense
	kh.Mul(k, f.h)
	iMinusKH.Sub(identity(6), &kh)
	newP.Mul(&iMinusKH, f.pp)

	var newPT mat.Dense
	newPT.CloneFrom(newP.T())
	newP.Add(&newP, &newPT)
	newP.Scale(0.5, &newP)

	newPf := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			newPf.SetSym(i, j, newP.At(i, j))
		}
	}

	f.sf = newSf
	f.pf = newPf
	return nil
}

// AdoptPredicted sets the posterior state/covariance to the predicted
// ones, with no measurement correction. Used on EmptyGate: the filter
// advances on prediction alone (spec: "state = Sp, covariance = Pp").
func (f *Filter) AdoptPredicted() {
	f.sf = f.sp
	f.pf = f.pp
}

func buildPhi(dt float64) *mat.Dense {
	phi := identity(6)
	phi.Set(0, 3, dt)
	phi.Set(1, 4, dt)
	phi.Set(2, 5, dt)
	return phi
}

func buildQ(dt, plantNoise float64) *mat.SymDense {
	q := mat.NewSymDense(6, nil)
	dt3 := dt * dt * dt
	dt2half := dt * dt / 2
	for i := 0; i < 3; i++ {
		q.SetSym(i, i, dt3)
		q.SetSym(i+3, i+3, dt)
		q.SetSym(i, i+3, dt2half)
	}
	var scaled mat.Dense
	scaled.Scale(plantNoise, q)
	out := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			out.SetSym(i, j, scaled.At(i, j))
		}
	}
	return out
}

func defaultH() *mat.Dense {
	h := mat.NewDense(3, 6, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)
	h.Set(2, 2, 1)
	return h
}

// initialCovariance seeds the posterior covariance with high position
// and velocity uncertainty. Not specified by the source; chosen in line
// with the pack's usual tentative-track covariance seeding.
func initialCovariance() *mat.SymDense {
	p := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		p.SetSym(i, i, 10)
		p.SetSym(i+3, i+3, 1)
	}
	return p
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func identitySym(n int) *mat.SymDense {
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		m.SetSym(i, i, 1)
	}
	return m
}
