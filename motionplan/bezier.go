package motionplan

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/spatialmath"
)

// boundary is the input for one side of a gap's Bezier construction.
type boundary struct {
	origin   r3.Vector
	initial  r3.Vector
	terminal r3.Vector
	velocity r3.Vector
	// rotation applied to a curve tangent to obtain the inward normal.
	normalTurn float64
}

// boundaryWeight is the edge speed relative to the nominal speed, capped at 1.
func boundaryWeight(velocity, nominalVel r3.Vector) float64 {
	return math.Min(1, velocity.Norm()/nominalVel.Norm())
}

// controlPoint is the middle control point of a boundary's quadratic curve. A static edge would
// otherwise put the control point on the origin and give the curve a zero initial tangent.
func controlPoint(b boundary, weight float64) r3.Vector {
	if b.velocity.Norm() > 0 {
		return b.origin.Add(b.initial.Sub(b.origin).Mul(weight))
	}
	return b.origin.Mul(0.95).Add(b.terminal.Mul(0.05))
}

func sampleBoundary(b boundary, weight float64, radialExt r3.Vector, opts Options) []gap.CurvePoint {
	numRadial := opts.radialPoints()
	pts := make([]gap.CurvePoint, 0, numRadial+opts.NumCurvePoints)

	radialVel := b.origin.Sub(radialExt)
	for i := 0; i < numRadial; i++ {
		s := float64(i) / float64(numRadial)
		var normal r3.Vector
		if inward := spatialmath.Rotate2D(radialVel, b.normalTurn); inward.Norm() > 0 {
			normal = inward.Mul(1 / inward.Norm())
		}
		pts = append(pts, gap.CurvePoint{
			Point:    radialExt.Mul(1 - s).Add(b.origin.Mul(s)),
			Velocity: radialVel,
			Normal:   normal,
		})
	}

	ctrl := controlPoint(b, weight)
	for i := 0; i < opts.NumCurvePoints; i++ {
		s := float64(i) / float64(opts.NumCurvePoints)
		pos := b.origin.Mul((1 - s) * (1 - s)).Add(ctrl.Mul(2 * (1 - s) * s)).Add(b.terminal.Mul(s * s))
		vel := b.origin.Mul(2*s - 2).Add(ctrl.Mul(2 - 4*s)).Add(b.terminal.Mul(2 * s))
		inward := spatialmath.Rotate2D(vel, b.normalTurn)
		pts = append(pts, gap.CurvePoint{
			Point:    pos,
			Velocity: vel,
			Normal:   inward.Mul(1 / (inward.Norm() + normalEpsilon)),
		})
	}
	return pts
}

// BuildBezier constructs the left and right boundary curves of g, their inward normals and the
// repulsion centers, and records them on g along with the boundary weights. The left boundary lies
// clockwise of the right one, so its tangent turns counterclockwise to face into the gap.
func BuildBezier(g *gap.Gap, opts Options) {
	left0, left1 := g.LeftPoints()
	right0, right1 := g.RightPoints()
	left := boundary{
		origin:     g.LeftBezierOrigin,
		initial:    left0,
		terminal:   left1,
		velocity:   left1.Sub(left0).Mul(1 / g.Lifespan),
		normalTurn: math.Pi / 2,
	}
	right := boundary{
		origin:     g.RightBezierOrigin,
		initial:    right0,
		terminal:   right1,
		velocity:   right1.Sub(right0).Mul(1 / g.Lifespan),
		normalTurn: -math.Pi / 2,
	}

	g.LeftWeight = boundaryWeight(left.velocity, opts.NominalVel)
	g.RightWeight = boundaryWeight(right.velocity, opts.NominalVel)

	curves := gap.Curves{
		Left:  sampleBoundary(left, g.LeftWeight, g.RadialExtension, opts),
		Right: sampleBoundary(right, g.RightWeight, g.RadialExtension, opts),
	}
	curves.Centers = make([]r3.Vector, 0, 1+len(curves.Left)+len(curves.Right))
	curves.Centers = append(curves.Centers, g.TerminalGoal.Point)
	for _, side := range [][]gap.CurvePoint{curves.Left, curves.Right} {
		for _, p := range side {
			curves.Centers = append(curves.Centers, p.Point.Add(p.Normal.Mul(opts.ClearanceOffset)))
		}
	}
	g.Curves = curves
}
