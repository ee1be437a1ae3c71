package estimation

import (
	"math"

	"github.com/golang/geo/r3"
)

// State is the modified polar state [1/r, sin β, cos β, ṙ/r, β̇] of an edge relative to the robot.
type State [5]float64

// Cartesian is the planar position and velocity of an edge relative to the robot.
type Cartesian struct {
	Position r3.Vector
	Velocity r3.Vector
}

// InverseRange returns 1/r.
func (s State) InverseRange() float64 { return s[0] }

// Range returns r.
func (s State) Range() float64 { return 1 / s[0] }

// Bearing returns β in (-π, π].
func (s State) Bearing() float64 { return math.Atan2(s[1], s[2]) }

// Finite reports whether every component is a finite number.
func (s State) Finite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Step advances s by one explicit Euler step of the modified polar kinematics under relative
// acceleration rel (target minus ego).
func (s State) Step(dt float64, rel r3.Vector) State {
	aR := rel.X*s[2] + rel.Y*s[1]
	aBeta := -rel.X*s[1] + rel.Y*s[2]
	return State{
		s[0] + (-s[3]*s[0])*dt,
		s[1] + s[2]*s[4]*dt,
		s[2] + (-s[1]*s[4])*dt,
		s[3] + (s[4]*s[4]-s[3]*s[3]+s[0]*aR)*dt,
		s[4] + (-2*s[3]*s[4]+s[0]*aBeta)*dt,
	}
}

// PolarToCartesian converts a modified polar state with x = r·cos β and y = r·sin β.
func PolarToCartesian(s State) Cartesian {
	r := 1 / s[0]
	return Cartesian{
		Position: r3.Vector{X: r * s[2], Y: r * s[1]},
		Velocity: r3.Vector{
			X: r * (s[3]*s[2] - s[4]*s[1]),
			Y: r * (s[3]*s[1] + s[4]*s[2]),
		},
	}
}

// CartesianToPolar is the inverse of PolarToCartesian.
func CartesianToPolar(c Cartesian) State {
	x, y := c.Position.X, c.Position.Y
	vx, vy := c.Velocity.X, c.Velocity.Y
	r2 := x*x + y*y
	beta := math.Atan2(y, x)
	return State{
		1 / math.Sqrt(r2),
		math.Sin(beta),
		math.Cos(beta),
		(x*vx + y*vy) / r2,
		(x*vy - y*vx) / r2,
	}
}

// Frozen is a snapshot of an edge model with the robot's velocity folded in, so that its
// propagation describes the edge's motion alone. Frozen values are never shared with the live
// filter.
type Frozen struct {
	ID    ModelID
	Side  Side
	State State
}

// Propagate advances the snapshot by dt with zero acceleration.
func (f Frozen) Propagate(dt float64) Frozen {
	f.State = f.State.Step(dt, r3.Vector{})
	return f
}

// Bounded pulls an edge that has receded past maxRange, or whose inverse range has crossed zero,
// back to maxRange. It reports false when the state is no longer finite.
func (f Frozen) Bounded(maxRange float64) (Frozen, bool) {
	if !f.State.Finite() {
		return f, false
	}
	if maxRange > 0 && f.State[0] < 1/maxRange {
		f.State[0] = 1 / maxRange
	}
	return f, true
}

// Cartesian returns the snapshot's cartesian position and velocity.
func (f Frozen) Cartesian() Cartesian {
	return PolarToCartesian(f.State)
}
