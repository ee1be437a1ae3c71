package motionplan

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/spatialmath"
	"go.viam.com/dynamicgap/utils"
)

// velocityField gives the desired planar velocity at position p and time t.
type velocityField interface {
	desired(t float64, p r3.Vector) r3.Vector
}

// attraction is a velocity of magnitude speed toward goal, zero within tolerance of it.
func attraction(p, goal r3.Vector, speed, tolerance float64) r3.Vector {
	d := goal.Sub(p)
	d.Z = 0
	n := d.Norm()
	if n <= tolerance {
		return r3.Vector{}
	}
	return d.Mul(speed / n)
}

// goalToGoal tracks a goal sliding from start to end over lifespan seconds, then holding.
type goalToGoal struct {
	start, end r3.Vector
	lifespan   float64
	speed      float64
	tolerance  float64
}

func (f goalToGoal) desired(t float64, p r3.Vector) r3.Vector {
	frac := 1.0
	if f.lifespan > 0 {
		frac = math.Min(t/f.lifespan, 1)
	}
	goal := f.start.Add(f.end.Sub(f.start).Mul(frac))
	return attraction(p, goal, f.speed, f.tolerance)
}

// gapField attracts toward the moving goal and repels from each boundary's nearest center along
// that center's inward normal.
type gapField struct {
	goal      r3.Vector
	goalVel   r3.Vector
	speed     float64
	tolerance float64

	left, right     []gap.CurvePoint
	leftC, rightC   []r3.Vector
	leftW, rightW   float64
	gain, sigmaSq   float64
	minRepulsionWgt float64
}

func newGapField(g *gap.Gap, opts Options) gapField {
	nl := len(g.Curves.Left)
	sigma := opts.ClearanceOffset * opts.RepulsionSpread
	return gapField{
		goal:            g.Goal.Point,
		goalVel:         g.TerminalGoal.Point.Sub(g.Goal.Point).Mul(1 / g.Lifespan),
		speed:           opts.NominalVel.Norm(),
		tolerance:       opts.GoalTolerance,
		left:            g.Curves.Left,
		right:           g.Curves.Right,
		leftC:           g.Curves.Centers[1 : 1+nl],
		rightC:          g.Curves.Centers[1+nl:],
		leftW:           g.LeftWeight,
		rightW:          g.RightWeight,
		gain:            opts.RepulsionGain,
		sigmaSq:         sigma * sigma,
		minRepulsionWgt: opts.MinRepulsionWeight,
	}
}

func (f gapField) desired(t float64, p r3.Vector) r3.Vector {
	v := attraction(p, f.goal.Add(f.goalVel.Mul(t)), f.speed, f.tolerance)
	v = v.Add(f.repulsion(p, f.left, f.leftC, f.leftW))
	return v.Add(f.repulsion(p, f.right, f.rightC, f.rightW))
}

func (f gapField) repulsion(p r3.Vector, pts []gap.CurvePoint, centers []r3.Vector, weight float64) r3.Vector {
	if len(centers) == 0 || f.sigmaSq == 0 {
		return r3.Vector{}
	}
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := spatialmath.PlanarDistance(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	mag := f.gain * math.Max(weight, f.minRepulsionWgt) * math.Exp(-bestDist*bestDist/f.sigmaSq)
	return pts[best].Normal.Mul(mag)
}

// integrate runs explicit Euler on position and velocity under a = kAcc·(v_des − v), recording the
// start and every step up to horizon.
func integrate(field velocityField, start, vel r3.Vector, horizon float64, opts Options) (Trajectory, error) {
	dt := opts.IntegrationStep
	steps := int(math.Floor(horizon/dt + 1e-9))
	traj := Trajectory{
		Poses: make([]spatialmath.Pose2D, 0, steps+1),
		Times: make([]float64, 0, steps+1),
	}
	maxSpeed := opts.NominalVel.Norm()

	record := func(t float64, p, v r3.Vector) {
		traj.Poses = append(traj.Poses, spatialmath.Pose2D{Point: r3.Vector{X: p.X, Y: p.Y}, Theta: math.Atan2(v.Y, v.X)})
		traj.Times = append(traj.Times, t)
	}

	p, v := start, vel
	record(0, p, v)
	for k := 1; k <= steps; k++ {
		t := float64(k-1) * dt
		vDes := field.desired(t, p)
		if n := spatialmath.PlanarNorm(vDes); n > maxSpeed {
			vDes = vDes.Mul(maxSpeed / n)
		}
		a := vDes.Sub(v).Mul(opts.KAcc)
		a.X = utils.Clamp(a.X, -opts.NominalAccel.X, opts.NominalAccel.X)
		a.Y = utils.Clamp(a.Y, -opts.NominalAccel.Y, opts.NominalAccel.Y)

		p = p.Add(v.Mul(dt))
		v = v.Add(a.Mul(dt))
		if !utils.IsFinite(p.X, p.Y, v.X, v.Y) {
			return Trajectory{}, ErrNonFiniteIntegration
		}
		record(float64(k)*dt, p, v)
	}
	return traj, nil
}
