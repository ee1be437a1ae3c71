// Package spatialmath defines the planar poses, rigid transforms and bearing helpers shared by the
// planner packages.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Pose2D is a planar pose: a position in the XY plane and a heading in radians. The Z component
// of Point is carried but never interpreted.
type Pose2D struct {
	Point r3.Vector
	Theta float64
}

// NewPose2D returns a pose at (x, y) with heading theta.
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{Point: r3.Vector{X: x, Y: y}, Theta: theta}
}

// NewZeroPose2D returns the identity pose.
func NewZeroPose2D() Pose2D {
	return Pose2D{}
}

// X returns the x coordinate.
func (p Pose2D) X() float64 { return p.Point.X }

// Y returns the y coordinate.
func (p Pose2D) Y() float64 { return p.Point.Y }

// Compose returns the pose q, expressed in p's frame, expressed in the frame p is expressed in.
func (p Pose2D) Compose(q Pose2D) Pose2D {
	return Pose2D{
		Point: p.TransformPoint(q.Point),
		Theta: NormalizeAngle(p.Theta + q.Theta),
	}
}

// Inverse returns the pose that undoes p.
func (p Pose2D) Inverse() Pose2D {
	inv := Rotate2D(r3.Vector{X: -p.Point.X, Y: -p.Point.Y}, -p.Theta)
	return Pose2D{Point: inv, Theta: NormalizeAngle(-p.Theta)}
}

// TransformPoint maps a point from p's frame into the frame p is expressed in.
func (p Pose2D) TransformPoint(v r3.Vector) r3.Vector {
	return Rotate2D(v, p.Theta).Add(r3.Vector{X: p.Point.X, Y: p.Point.Y})
}

// PoseBetween returns the pose of b expressed in a's frame.
func PoseBetween(a, b Pose2D) Pose2D {
	return a.Inverse().Compose(b)
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f rad)", p.Point.X, p.Point.Y, p.Theta)
}

// Rotate2D rotates v counterclockwise by angle in the XY plane.
func Rotate2D(v r3.Vector, angle float64) r3.Vector {
	s, c := math.Sincos(angle)
	return r3.Vector{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y}
}

// PlanarNorm is the XY length of v.
func PlanarNorm(v r3.Vector) float64 {
	return math.Hypot(v.X, v.Y)
}

// PlanarDistance is the XY distance between a and b.
func PlanarDistance(a, b r3.Vector) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// NormalizeAngle wraps an angle onto (-π, π].
func NormalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	switch {
	case theta > math.Pi:
		theta -= 2 * math.Pi
	case theta <= -math.Pi:
		theta += 2 * math.Pi
	}
	return theta
}
