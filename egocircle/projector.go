package egocircle

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"

	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/spatialmath"
	"go.viam.com/dynamicgap/utils"
)

// Projector forecasts the egocircle. Project advances the projector's obstacles by interval
// seconds and returns the horizon predicted at the end of that interval, computed from static,
// together with the advanced projector so the next interval continues from there. Projectors are
// values: the receiver is never mutated, so one projector can be shared by concurrent scorers.
type Projector interface {
	Project(static Scan, interval float64) (Scan, Projector)
}

// Agent is an obstacle with known position and velocity in the robot frame.
type Agent struct {
	Position r3.Vector
	Velocity r3.Vector
}

// OracleProjector forecasts the horizon from ground-truth agent motion, modeling each agent as a
// disk of the robot's inscribed radius.
type OracleProjector struct {
	Agents          []Agent
	InscribedRadius float64
}

// Project moves every agent linearly and shortens each beam to the first disk it crosses.
func (p OracleProjector) Project(static Scan, interval float64) (Scan, Projector) {
	if interval <= 0 {
		return static.Clone(), p
	}
	agents := make([]Agent, len(p.Agents))
	for i, a := range p.Agents {
		agents[i] = Agent{Position: a.Position.Add(a.Velocity.Mul(interval)), Velocity: a.Velocity}
	}
	next := OracleProjector{Agents: agents, InscribedRadius: p.InscribedRadius}

	out := static.Clone()
	for i := range out.Ranges {
		out.Ranges[i] = math.Min(out.Ranges[i], out.MaxRange)
		pt2 := spatialmath.PolarPoint(out.Ranges[i], out.AngleAt(i))
		for _, a := range agents {
			if d, ok := rayDiskIntersection(a.Position, pt2, p.InscribedRadius, out.Ranges[i]); ok {
				out.Ranges[i] = d
			}
		}
	}
	return out, next
}

// rayDiskIntersection intersects the segment from the robot to beam endpoint pt2 with a disk of
// radius r centered at center. It returns the distance from the robot to the nearer intersection
// when that intersection shortens the beam and lies strictly between the robot and pt2.
func rayDiskIntersection(center, pt2 r3.Vector, r, current float64) (float64, bool) {
	c1 := r3.Vector{X: -center.X, Y: -center.Y}
	c2 := r3.Vector{X: pt2.X - center.X, Y: pt2.Y - center.Y}
	dx, dy := c2.X-c1.X, c2.Y-c1.Y
	dr2 := dx*dx + dy*dy
	D := c1.X*c2.Y - c2.X*c1.Y
	disc := r*r*dr2 - D*D
	if disc <= 0 || dr2 == 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	sgn := utils.SignNonNegative(dy)
	int0 := r3.Vector{X: (D*dy + sgn*dx*sq) / dr2, Y: (-D*dx + math.Abs(dy)*sq) / dr2}
	int1 := r3.Vector{X: (D*dy - sgn*dx*sq) / dr2, Y: (-D*dx - math.Abs(dy)*sq) / dr2}

	near := int0
	if spatialmath.PlanarDistance(int1, c1) <= spatialmath.PlanarDistance(int0, c1) {
		near = int1
	}
	dist := spatialmath.PlanarDistance(near, c1)
	seg := math.Sqrt(dr2)
	if dist < current && dist < seg && spatialmath.PlanarDistance(near, c2) < seg {
		return dist, true
	}
	return 0, false
}

// ModelProjector forecasts the horizon from frozen edge models: free space between a left edge
// and the following right edge, occupied space between a right edge and the following left edge.
type ModelProjector struct {
	Models []estimation.Frozen
}

// Advanced returns the snapshots at the projector's current time.
func (p ModelProjector) Advanced() []estimation.Frozen {
	out := make([]estimation.Frozen, len(p.Models))
	copy(out, p.Models)
	return out
}

// Project propagates every snapshot by interval and rasterizes the spans they bound. Edges that
// recede past the scan's max range stay at max range; snapshots that stop being finite are dropped.
func (p ModelProjector) Project(static Scan, interval float64) (Scan, Projector) {
	if interval <= 0 || len(p.Models) == 0 {
		return static.Clone(), p
	}
	models := make([]estimation.Frozen, 0, len(p.Models))
	for _, m := range p.Models {
		if f, ok := m.Propagate(interval).Bounded(static.MaxRange); ok {
			models = append(models, f)
		}
	}
	next := ModelProjector{Models: models}
	if len(models) == 0 {
		return static.Clone(), next
	}

	sorted := make([]estimation.Frozen, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].State.Bearing() < sorted[j].State.Bearing()
	})

	out := static.Clone()
	var currLeft, currRight, firstLeft, firstRight *estimation.Frozen
	for i := range sorted {
		m := &sorted[i]
		switch m.Side {
		case estimation.SideLeft:
			if firstLeft == nil {
				firstLeft = m
			}
			switch {
			case currLeft == nil:
				currLeft = m
			case currRight != nil:
				fillSpan(out, *currLeft, *currRight, true)
				fillSpan(out, *m, *currRight, false)
				currLeft, currRight = m, nil
			case m.State.InverseRange() > currLeft.State.InverseRange():
				currLeft = m
			}
		case estimation.SideRight:
			if firstRight == nil {
				firstRight = m
			}
			if currRight == nil || m.State.InverseRange() > currRight.State.InverseRange() {
				currRight = m
			}
		}
	}

	last := sorted[len(sorted)-1]
	switch last.Side {
	case estimation.SideLeft:
		if firstRight != nil {
			fillSpan(out, last, *firstRight, true)
		}
	case estimation.SideRight:
		if firstLeft != nil {
			fillSpan(out, *firstLeft, last, false)
		}
	}
	return out, next
}

// fillSpan writes the span between a left and a right edge. Free spans run left to right and
// hold MaxRange; occupied spans run right to left and interpolate range linearly.
func fillSpan(scan Scan, left, right estimation.Frozen, free bool) {
	n := scan.Len()
	startIdx, endIdx := beamIndex(scan, left), beamIndex(scan, right)
	startRange, endRange := left.State.Range(), right.State.Range()
	if !free {
		startIdx, endIdx = endIdx, startIdx
		startRange, endRange = endRange, startRange
	}

	span := endIdx - startIdx
	if startIdx > endIdx {
		span = n - startIdx + endIdx
	}
	for k := 0; k < span; k++ {
		idx := (startIdx + k) % n
		switch {
		case free:
			scan.Ranges[idx] = scan.MaxRange
		case startIdx != endIdx:
			scan.Ranges[idx] = startRange + (endRange-startRange)*float64(k)/float64(span)
		default:
			scan.Ranges[idx] = math.Min(startRange, endRange)
		}
	}
}

func beamIndex(scan Scan, f estimation.Frozen) int {
	return utils.WrapIndex(int((f.State.Bearing()+math.Pi)/scan.AngleIncrement()), scan.Len())
}
