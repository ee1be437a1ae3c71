package gap

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestValidate(t *testing.T) {
	g := Gap{LeftModel: 1, RightModel: 2, Lifespan: 5}
	test.That(t, g.Validate(), test.ShouldBeNil)

	g.RightModel = 1
	test.That(t, errors.Is(g.Validate(), ErrSharedModel), test.ShouldBeTrue)

	g.RightModel = 2
	g.Lifespan = 0
	test.That(t, errors.Is(g.Validate(), ErrNonPositiveLifespan), test.ShouldBeTrue)
	g.Lifespan = math.NaN()
	test.That(t, errors.Is(g.Validate(), ErrNonPositiveLifespan), test.ShouldBeTrue)

	test.That(t, g.HasModels(1, 2), test.ShouldBeTrue)
	test.That(t, g.HasModels(2, 1), test.ShouldBeFalse)
}

func TestEdgePoint(t *testing.T) {
	p := EdgePoint(Edge{Index: 256, Range: 2}, 256)
	test.That(t, p.X, test.ShouldAlmostEqual, 2)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0)

	p = EdgePoint(Edge{Index: 384, Range: 1}, 256)
	test.That(t, p.X, test.ShouldAlmostEqual, 0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 1)

	g := Gap{
		Left: Edge{Index: 384, Range: 1}, TerminalLeft: Edge{Index: 256, Range: 3},
		Right: Edge{Index: 128, Range: 1}, TerminalRight: Edge{Index: 128, Range: 2},
		HalfScan: 256,
	}
	l0, l1 := g.LeftPoints()
	test.That(t, l0.Y, test.ShouldAlmostEqual, 1)
	test.That(t, l1.X, test.ShouldAlmostEqual, 3)
	r0, r1 := g.RightPoints()
	test.That(t, r0.Y, test.ShouldAlmostEqual, -1)
	test.That(t, r1.Y, test.ShouldAlmostEqual, -2)
}

func TestRankGapsByGoal(t *testing.T) {
	test.That(t, RankGapsByGoal(nil, r3.Vector{X: 1}, 512), test.ShouldBeNil)

	gaps := []Gap{
		{Left: Edge{Index: 240}, Right: Edge{Index: 270}},
		{Left: Edge{Index: 10}, Right: Edge{Index: 40}},
		{Left: Edge{Index: 300}, Right: Edge{Index: 250}},
	}
	costs := RankGapsByGoal(gaps, r3.Vector{X: 3}, 512)
	test.That(t, costs, test.ShouldResemble, []float64{14, 216, 6})

	g := Gap{TerminalGoal: Goal{Discard: true}}
	test.That(t, g.Discarded(), test.ShouldBeTrue)
}
