// Package estimation tracks gap edges with an extended Kalman filter over a modified polar
// state and owns the arena the rest of the planner addresses edge models through.
package estimation

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	stateDim       = 5
	measurementDim = 3

	// process and measurement noise are isotropic.
	processNoiseVar     = 1e-6
	measurementNoiseVar = 1e-6

	// discretizeThird is the truncated 1/3 coefficient of the second-order noise discretization.
	discretizeThird = 0.3333
)

var (
	observationH = mat.NewDense(measurementDim, stateDim, []float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
	})
	measurementR = scaledIdentity(measurementDim, measurementNoiseVar)
	processQ     = scaledIdentity(stateDim, processNoiseVar)
	initialP     = []float64{1e-3, 1e-3, 1e-3, 1e-1, 1e-1}
)

// Measurement is one range-bearing observation of an edge in the robot frame.
type Measurement struct {
	Range   float64
	Bearing float64
}

func (z Measurement) valid() bool {
	return z.Range > 0 && !math.IsInf(z.Range, 0) && !math.IsNaN(z.Range) && !math.IsNaN(z.Bearing)
}

func (z Measurement) vector() *mat.VecDense {
	s, c := math.Sincos(z.Bearing)
	return mat.NewVecDense(measurementDim, []float64{1 / z.Range, s, c})
}

// Model is the per-edge extended Kalman filter.
type Model struct {
	id   ModelID
	side Side

	y *mat.VecDense
	p *mat.Dense

	egoVel     r3.Vector
	created    time.Time
	lastUpdate time.Time
	updates    int
}

// NewModel initializes a model at the measured range and bearing with zero rates.
func NewModel(id ModelID, side Side, z Measurement, t time.Time) (*Model, error) {
	if !z.valid() {
		return nil, errors.Wrapf(ErrInvalidMeasurement, "range %v bearing %v", z.Range, z.Bearing)
	}
	s, c := math.Sincos(z.Bearing)
	p := mat.NewDense(stateDim, stateDim, nil)
	for i, v := range initialP {
		p.Set(i, i, v)
	}
	return &Model{
		id:         id,
		side:       side,
		y:          mat.NewVecDense(stateDim, []float64{1 / z.Range, s, c, 0, 0}),
		p:          p,
		created:    t,
		lastUpdate: t,
	}, nil
}

// ID returns the model's arena identifier.
func (m *Model) ID() ModelID { return m.id }

// Side returns which gap boundary the model tracks.
func (m *Model) Side() Side { return m.side }

// State returns a copy of the modified polar estimate.
func (m *Model) State() State {
	var s State
	for i := range s {
		s[i] = m.y.AtVec(i)
	}
	return s
}

// Covariance returns a copy of the estimate covariance.
func (m *Model) Covariance() *mat.Dense {
	return mat.DenseCopyOf(m.p)
}

// CartesianState returns the estimate as relative position and velocity.
func (m *Model) CartesianState() Cartesian {
	return PolarToCartesian(m.State())
}

// LastUpdate returns the timestamp of the last accepted update.
func (m *Model) LastUpdate() time.Time { return m.lastUpdate }

// Created returns the timestamp the model was initialized at.
func (m *Model) Created() time.Time { return m.created }

// Updates returns how many updates have been accepted.
func (m *Model) Updates() int { return m.updates }

func (m *Model) setState(s State) {
	for i, v := range s {
		m.y.SetVec(i, v)
	}
}

// Predict advances the estimate by one Euler step. The target is assumed unaccelerated, so the
// relative acceleration is the negated ego acceleration.
func (m *Model) Predict(dt float64, egoAccel r3.Vector) {
	m.setState(m.State().Step(dt, egoAccel.Mul(-1)))
}

// Linearize returns the Jacobian A of the kinematics at the current estimate and its Euler
// discretization Ad = I + A·dt.
func (m *Model) Linearize(dt float64, egoAccel r3.Vector) (*mat.Dense, *mat.Dense) {
	y := m.State()
	a := egoAccel.Mul(-1)
	aR := a.X*y[2] + a.Y*y[1]
	aBeta := -a.X*y[1] + a.Y*y[2]

	jac := mat.NewDense(stateDim, stateDim, []float64{
		-y[3], 0, 0, -y[0], 0,
		0, 0, y[4], 0, y[2],
		0, -y[4], 0, 0, -y[1],
		aR, y[0] * a.Y, y[0] * a.X, -2 * y[3], 2 * y[4],
		aBeta, -y[0] * a.X, y[0] * a.Y, -2 * y[4], -2 * y[3],
	})

	ad := mat.NewDense(stateDim, stateDim, nil)
	ad.Scale(dt, jac)
	for i := 0; i < stateDim; i++ {
		ad.Set(i, i, ad.At(i, i)+1)
	}
	return jac, ad
}

// DiscretizeProcessNoise approximates the discrete process noise for a step of dt with the
// truncated expansion dQ = Q·dt + ½·dt·((A·Q·dt)ᵀ + A·Q·dt) + 0.3333·dt²·(A·Q·dt)ᵀ.
func DiscretizeProcessNoise(dt float64, jac mat.Matrix) *mat.Dense {
	dQ := mat.NewDense(stateDim, stateDim, nil)
	dQ.Scale(dt, processQ)

	var aDQ mat.Dense
	aDQ.Mul(jac, dQ)

	var m2 mat.Dense
	m2.Add(aDQ.T(), &aDQ)
	m2.Scale(0.5*dt, &m2)

	var m3 mat.Dense
	m3.Scale(discretizeThird*dt*dt, aDQ.T())

	out := mat.NewDense(stateDim, stateDim, nil)
	out.Add(dQ, &m2)
	out.Add(out, &m3)
	return out
}

// Update runs one predict-correct cycle against measurement z taken at t. The ego velocity is
// remembered for Freeze. A dt <= 0 is rejected without touching the model, and any update that
// would leave the estimate non-finite or at non-positive inverse range is rolled back.
func (m *Model) Update(z Measurement, egoAccel, egoVel r3.Vector, t time.Time) error {
	dt := t.Sub(m.lastUpdate).Seconds()
	if dt <= 0 {
		return errors.Wrapf(ErrNonPositiveDt, "model %d: dt %.6fs", m.id, dt)
	}
	if !z.valid() {
		return errors.Wrapf(ErrInvalidMeasurement, "model %d: range %v bearing %v", m.id, z.Range, z.Bearing)
	}

	prevY := mat.VecDenseCopyOf(m.y)
	prevP := mat.DenseCopyOf(m.p)
	rollback := func(err error) error {
		m.y = prevY
		m.p = prevP
		return err
	}

	m.Predict(dt, egoAccel)
	jac, ad := m.Linearize(dt, egoAccel)
	dQ := DiscretizeProcessNoise(dt, jac)

	var adP, pPred mat.Dense
	adP.Mul(ad, m.p)
	pPred.Mul(&adP, ad.T())
	pPred.Add(&pPred, dQ)

	var hp, s mat.Dense
	hp.Mul(observationH, &pPred)
	s.Mul(&hp, observationH.T())
	s.Add(&s, measurementR)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return rollback(errors.Wrapf(ErrSingularInnovation, "model %d: %v", m.id, err))
	}

	var pht, gain mat.Dense
	pht.Mul(&pPred, observationH.T())
	gain.Mul(&pht, &sInv)

	var hy, innovation, correction mat.VecDense
	hy.MulVec(observationH, m.y)
	innovation.SubVec(z.vector(), &hy)
	correction.MulVec(&gain, &innovation)
	m.y.AddVec(m.y, &correction)

	var gh, iMinusGH, pNew mat.Dense
	gh.Mul(&gain, observationH)
	iMinusGH.Sub(scaledIdentity(stateDim, 1), &gh)
	pNew.Mul(&iMinusGH, &pPred)

	state := m.State()
	if !state.Finite() || state[0] <= 0 || !denseFinite(&pNew) {
		return rollback(errors.Wrapf(ErrNumericalHazard, "model %d: state %v", m.id, state))
	}

	m.p = &pNew
	m.egoVel = egoVel
	m.lastUpdate = t
	m.updates++
	return nil
}

// Freeze snapshots the estimate with the last ego velocity folded into the relative velocity,
// leaving inverse range and bearing unchanged.
func (m *Model) Freeze() Frozen {
	return m.FreezeWith(m.egoVel)
}

// FreezeWith is Freeze with an explicit ego velocity.
func (m *Model) FreezeWith(egoVel r3.Vector) Frozen {
	y := m.State()
	cart := PolarToCartesian(y)
	vel := cart.Velocity.Add(egoVel)
	x, yy := cart.Position.X, cart.Position.Y
	r2 := x*x + yy*yy
	return Frozen{
		ID:   m.id,
		Side: m.side,
		State: State{
			y[0], y[1], y[2],
			(x*vel.X + yy*vel.Y) / r2,
			(x*vel.Y - yy*vel.X) / r2,
		},
	}
}

func scaledIdentity(n int, v float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
	return d
}

func denseFinite(d *mat.Dense) bool {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := d.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
