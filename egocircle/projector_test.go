package egocircle

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/dynamicgap/estimation"
)

const beams = 512

func openScan() Scan {
	ranges := make([]float64, beams)
	for i := range ranges {
		ranges[i] = 5
	}
	return Scan{Ranges: ranges, MaxRange: 5}
}

func TestNewScan(t *testing.T) {
	s := NewScan([]float64{1, -1, math.NaN(), 7, math.Inf(1), 2.5}, -1, 5)
	test.That(t, s.Ranges, test.ShouldResemble, []float64{1, 5, 5, 5, 5, 2.5})
	test.That(t, s.Free(1), test.ShouldBeTrue)
	test.That(t, s.Free(0), test.ShouldBeFalse)

	err := s.Validate(500)
	test.That(t, errors.Is(err, ErrMalformedScan), test.ShouldBeTrue)
	test.That(t, openScan().Validate(500), test.ShouldBeNil)
	test.That(t, Scan{Ranges: make([]float64, beams)}.Validate(500), test.ShouldNotBeNil)
}

func TestScanGeometry(t *testing.T) {
	s := openScan()
	test.That(t, s.AngleAt(0), test.ShouldAlmostEqual, -math.Pi)
	test.That(t, s.AngleAt(beams/2), test.ShouldAlmostEqual, 0)
	test.That(t, s.IndexOf(0), test.ShouldEqual, beams/2)
	p := s.Point(beams / 2)
	test.That(t, p.X, test.ShouldAlmostEqual, 5)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0)

	c := s.Clone()
	c.Ranges[0] = 1
	test.That(t, s.Ranges[0], test.ShouldEqual, 5.)
}

func TestOracleProjector(t *testing.T) {
	static := openScan()
	var p Projector = OracleProjector{
		Agents:          []Agent{{Position: r3.Vector{X: 2}, Velocity: r3.Vector{X: -1}}},
		InscribedRadius: 0.2,
	}

	same, unchanged := p.Project(static, 0)
	test.That(t, same.Ranges, test.ShouldResemble, static.Ranges)
	test.That(t, unchanged, test.ShouldResemble, p)

	first, p1 := p.Project(static, 0.5)
	test.That(t, first.Ranges[beams/2], test.ShouldAlmostEqual, 1.3)
	test.That(t, first.Ranges[beams/4], test.ShouldEqual, 5.)
	test.That(t, first.Ranges[0], test.ShouldEqual, 5.)
	test.That(t, static.Ranges[beams/2], test.ShouldEqual, 5.)

	second, _ := p1.Project(static, 0.5)
	test.That(t, second.Ranges[beams/2], test.ShouldAlmostEqual, 0.8)

	// the original projector is untouched
	again, _ := p.Project(static, 0.5)
	test.That(t, again.Ranges[beams/2], test.ShouldAlmostEqual, 1.3)
}

func TestOracleProjectorKeepsCloserStatic(t *testing.T) {
	static := openScan()
	static.Ranges[beams/2] = 1
	p := OracleProjector{Agents: []Agent{{Position: r3.Vector{X: 2}}}, InscribedRadius: 0.2}
	out, _ := p.Project(static, 0.1)
	test.That(t, out.Ranges[beams/2], test.ShouldEqual, 1.)
}

func frozenAt(id estimation.ModelID, side estimation.Side, rng, bearing float64, vel r3.Vector) estimation.Frozen {
	pos := r3.Vector{X: rng * math.Cos(bearing), Y: rng * math.Sin(bearing)}
	return estimation.Frozen{
		ID:    id,
		Side:  side,
		State: estimation.CartesianToPolar(estimation.Cartesian{Position: pos, Velocity: vel}),
	}
}

func TestModelProjectorOccupiedWrap(t *testing.T) {
	static := openScan()
	p := ModelProjector{Models: []estimation.Frozen{
		frozenAt(1, estimation.SideLeft, 2, -0.5, r3.Vector{}),
		frozenAt(2, estimation.SideRight, 2, 0.5, r3.Vector{}),
	}}

	out, next := p.Project(static, 0.1)
	test.That(t, out.Ranges[beams/2], test.ShouldEqual, 5.)
	test.That(t, out.Ranges[0], test.ShouldAlmostEqual, 2)
	test.That(t, out.Ranges[beams-1], test.ShouldAlmostEqual, 2)
	test.That(t, len(next.(ModelProjector).Advanced()), test.ShouldEqual, 2)

	same, _ := p.Project(static, 0)
	test.That(t, same.Ranges, test.ShouldResemble, static.Ranges)
}

func TestModelProjectorFreeAndOccupied(t *testing.T) {
	static := openScan()
	for i := range static.Ranges {
		static.Ranges[i] = 3
	}
	p := ModelProjector{Models: []estimation.Frozen{
		frozenAt(1, estimation.SideLeft, 2, -1, r3.Vector{}),
		frozenAt(2, estimation.SideRight, 2, -0.2, r3.Vector{}),
		frozenAt(3, estimation.SideLeft, 1, 0.2, r3.Vector{}),
		frozenAt(4, estimation.SideRight, 1, 1, r3.Vector{}),
	}}
	out, _ := p.Project(static, 0.1)

	test.That(t, out.Ranges[static.IndexOf(-0.6)], test.ShouldEqual, 5.)
	occupied := out.Ranges[static.IndexOf(0)]
	test.That(t, occupied, test.ShouldBeGreaterThanOrEqualTo, 1)
	test.That(t, occupied, test.ShouldBeLessThanOrEqualTo, 2)
	test.That(t, out.Ranges[static.IndexOf(0.6)], test.ShouldEqual, 3.)
	back := out.Ranges[static.IndexOf(math.Pi-0.01)]
	test.That(t, back, test.ShouldBeGreaterThan, 1)
	test.That(t, back, test.ShouldBeLessThan, 2)
}

func TestModelProjectorRecedingEdge(t *testing.T) {
	static := openScan()
	// 0.5 m away and receding at 3 range/s: inverse range crosses zero within half a second
	receding := frozenAt(2, estimation.SideRight, 0.5, 0.5, r3.Vector{X: 1.5 * math.Cos(0.5), Y: 1.5 * math.Sin(0.5)})
	test.That(t, receding.State[3], test.ShouldAlmostEqual, 3)
	test.That(t, receding.Propagate(0.5).State.InverseRange(), test.ShouldBeLessThanOrEqualTo, 0)

	p := ModelProjector{Models: []estimation.Frozen{
		frozenAt(1, estimation.SideLeft, 2, -0.5, r3.Vector{}),
		receding,
	}}
	out, next := p.Project(static, 0.5)
	for i, r := range out.Ranges {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 || r > static.MaxRange {
			t.Fatalf("beam %d has range %v", i, r)
		}
	}
	adv := next.(ModelProjector).Advanced()
	test.That(t, adv, test.ShouldHaveLength, 2)
	test.That(t, adv[1].State.Range(), test.ShouldAlmostEqual, static.MaxRange)

	out, _ = next.Project(static, 0.5)
	for _, r := range out.Ranges {
		test.That(t, r > 0 && r <= static.MaxRange, test.ShouldBeTrue)
	}
}

func TestModelProjectorDropsNonFinite(t *testing.T) {
	static := openScan()
	broken := frozenAt(2, estimation.SideRight, 2, 0.5, r3.Vector{})
	broken.State[3] = math.NaN()
	p := ModelProjector{Models: []estimation.Frozen{
		frozenAt(1, estimation.SideLeft, 2, -0.5, r3.Vector{}),
		broken,
	}}
	out, next := p.Project(static, 0.1)
	adv := next.(ModelProjector).Advanced()
	test.That(t, adv, test.ShouldHaveLength, 1)
	test.That(t, adv[0].ID, test.ShouldEqual, estimation.ModelID(1))
	for _, r := range out.Ranges {
		test.That(t, math.IsNaN(r), test.ShouldBeFalse)
	}

	_, next = ModelProjector{Models: []estimation.Frozen{broken}}.Project(static, 0.1)
	test.That(t, next.(ModelProjector).Advanced(), test.ShouldBeEmpty)
}

func TestModelProjectorAdvancesCumulatively(t *testing.T) {
	static := openScan()
	p := ModelProjector{Models: []estimation.Frozen{
		frozenAt(1, estimation.SideLeft, 2, 0, r3.Vector{X: -1}),
	}}
	_, next := p.Project(static, 0.1)
	_, next = next.Project(static, 0.1)
	adv := next.(ModelProjector).Advanced()
	test.That(t, adv[0].State.Range(), test.ShouldBeLessThan, 2)
	test.That(t, p.Models[0].State.Range(), test.ShouldAlmostEqual, 2)
}
