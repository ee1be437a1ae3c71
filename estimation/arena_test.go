package estimation

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestArenaLifecycle(t *testing.T) {
	a := NewArena()
	left, err := a.Create(SideLeft, Measurement{Range: 2, Bearing: 0.5}, t0)
	test.That(t, err, test.ShouldBeNil)
	right, err := a.Create(SideRight, Measurement{Range: 3, Bearing: -0.5}, t0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldNotEqual, NoModel)
	test.That(t, right, test.ShouldBeGreaterThan, left)
	test.That(t, a.Len(), test.ShouldEqual, 2)

	m, ok := a.Get(left)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.ID(), test.ShouldEqual, left)
	test.That(t, m.Side(), test.ShouldEqual, SideLeft)

	_, err = a.Create(SideLeft, Measurement{Range: -1}, t0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, a.Len(), test.ShouldEqual, 2)

	frozen := a.FreezeAll(r3.Vector{X: 1})
	test.That(t, len(frozen), test.ShouldEqual, 2)
	test.That(t, frozen[0].ID, test.ShouldEqual, left)
	test.That(t, frozen[1].ID, test.ShouldEqual, right)
	// the ego velocity is folded into each snapshot
	test.That(t, frozen[0].State[3], test.ShouldAlmostEqual, math.Cos(0.5)/2, 1e-9)
	test.That(t, frozen[0].State.Range(), test.ShouldAlmostEqual, 2, 1e-9)

	test.That(t, a.Retain(right), test.ShouldEqual, 1)
	_, ok = a.Get(left)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, a.IDs(), test.ShouldResemble, []ModelID{right})

	a.Remove(left)
	a.Remove(right)
	test.That(t, a.Len(), test.ShouldEqual, 0)

	again, err := a.Create(SideLeft, Measurement{Range: 1, Bearing: 0}, t0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldBeGreaterThan, right)

	a.Reset()
	test.That(t, a.Len(), test.ShouldEqual, 0)
	last, err := a.Create(SideRight, Measurement{Range: 1, Bearing: 0}, t0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, last, test.ShouldBeGreaterThan, again)
}
