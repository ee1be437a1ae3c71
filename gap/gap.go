// Package gap describes navigable openings in the egocircle and the data trajectory synthesis
// attaches to them.
package gap

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/spatialmath"
)

var (
	// ErrSharedModel is returned for a gap whose two edges point at the same model.
	ErrSharedModel = errors.New("gap edges must be distinct models")
	// ErrNonPositiveLifespan is returned for a gap with no forecast horizon.
	ErrNonPositiveLifespan = errors.New("gap lifespan must be positive")
)

// Edge is one side of a gap in scan coordinates.
type Edge struct {
	Index int
	Range float64
}

// Goal is a navigation target inside a gap, in the robot frame.
type Goal struct {
	Point   r3.Vector
	Discard bool
}

// CurvePoint is one sample of a boundary curve. Normal is a unit vector pointing into the gap.
type CurvePoint struct {
	Point    r3.Vector
	Velocity r3.Vector
	Normal   r3.Vector
}

// Curves is the Bezier boundary data synthesis builds for a gap. Centers holds the terminal goal
// followed by one repulsion center per left then right sample, each offset into the gap along the
// sample's normal.
type Curves struct {
	Left    []CurvePoint
	Right   []CurvePoint
	Centers []r3.Vector
}

// Gap is an angular opening bounded by a left and a right edge. Free space runs from the left
// edge to the right edge in increasing beam index, so the left edge is the clockwise one.
type Gap struct {
	LeftModel  estimation.ModelID
	RightModel estimation.ModelID

	Left          Edge
	Right         Edge
	TerminalLeft  Edge
	TerminalRight Edge
	HalfScan      float64

	Goal         Goal
	TerminalGoal Goal

	LeftBezierOrigin  r3.Vector
	RightBezierOrigin r3.Vector
	RadialExtension   r3.Vector

	Lifespan float64
	Feasible bool

	LeftWeight  float64
	RightWeight float64
	Curves      Curves
}

// Validate checks the invariants synthesis relies on.
func (g *Gap) Validate() error {
	if g.LeftModel == g.RightModel {
		return errors.Wrapf(ErrSharedModel, "model %d", g.LeftModel)
	}
	if !(g.Lifespan > 0) {
		return errors.Wrapf(ErrNonPositiveLifespan, "lifespan %v", g.Lifespan)
	}
	return nil
}

// HasModels reports whether the gap is bounded by exactly the given pair.
func (g *Gap) HasModels(left, right estimation.ModelID) bool {
	return g.LeftModel == left && g.RightModel == right
}

// EdgePoint converts a scan edge to a cartesian point using the half-scan angle convention.
func EdgePoint(e Edge, halfScan float64) r3.Vector {
	return spatialmath.PolarPoint(e.Range, spatialmath.HalfScanAngle(e.Index, halfScan))
}

// LeftPoints returns the initial and terminal left edge points.
func (g *Gap) LeftPoints() (r3.Vector, r3.Vector) {
	return EdgePoint(g.Left, g.HalfScan), EdgePoint(g.TerminalLeft, g.HalfScan)
}

// RightPoints returns the initial and terminal right edge points.
func (g *Gap) RightPoints() (r3.Vector, r3.Vector) {
	return EdgePoint(g.Right, g.HalfScan), EdgePoint(g.TerminalRight, g.HalfScan)
}

// Discarded reports whether either goal was rejected upstream.
func (g *Gap) Discarded() bool {
	return g.Goal.Discard || g.TerminalGoal.Discard
}

// RankGapsByGoal scores each gap by the beam distance from its nearer edge to the bearing of the
// local goal. Lower is better.
func RankGapsByGoal(gaps []Gap, localGoal r3.Vector, numBeams int) []float64 {
	if len(gaps) == 0 {
		return nil
	}
	half := numBeams / 2
	orientation := math.Atan2(localGoal.Y, localGoal.X)
	goalIdx := int(orientation/(math.Pi/float64(half))) + half
	costs := make([]float64, len(gaps))
	for i, g := range gaps {
		right := absInt(g.Right.Index - goalIdx)
		left := absInt(g.Left.Index - goalIdx)
		costs[i] = float64(min(right, left))
	}
	return costs
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
