package planner

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/dynamicgap/arbiter"
	"go.viam.com/dynamicgap/config"
	"go.viam.com/dynamicgap/egocircle"
	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/spatialmath"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// clusterRanges is a 512 beam scan, open except for an obstacle cluster at range 3 on beams 100
// through 160.
func clusterRanges() []float64 {
	ranges := make([]float64, 512)
	for i := range ranges {
		ranges[i] = 5
		if i >= 100 && i <= 160 {
			ranges[i] = 3
		}
	}
	return ranges
}

func testConfig() *config.PlannerConfig {
	cfg := config.NewDefaultConfig()
	cfg.InscribedRadius = 0.3
	cfg.StuckWindow = 3
	return cfg
}

func newTestPlanner(t *testing.T, cfg *config.PlannerConfig) *Planner {
	t.Helper()
	p, err := NewPlanner(config.NewHolder(cfg), prometheus.NewRegistry(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

// trackClusterGap starts the models bounding the free space around the cluster and returns the gap
// between them.
func trackClusterGap(t *testing.T, p *Planner) gap.Gap {
	t.Helper()
	left := gap.Edge{Index: 160, Range: 3}
	right := gap.Edge{Index: 100, Range: 3}
	leftID, err := p.Track(estimation.SideLeft,
		estimation.Measurement{Range: 3, Bearing: spatialmath.HalfScanAngle(left.Index, 256)}, t0)
	test.That(t, err, test.ShouldBeNil)
	rightID, err := p.Track(estimation.SideRight,
		estimation.Measurement{Range: 3, Bearing: spatialmath.HalfScanAngle(right.Index, 256)}, t0)
	test.That(t, err, test.ShouldBeNil)
	return gap.Gap{
		LeftModel: leftID, RightModel: rightID,
		Left: left, Right: right, TerminalLeft: left, TerminalRight: right,
		HalfScan:          256,
		Goal:              gap.Goal{Point: r3.Vector{Y: 2}},
		TerminalGoal:      gap.Goal{Point: r3.Vector{Y: 2}},
		LeftBezierOrigin:  r3.Vector{X: 0.1, Y: -0.15},
		RightBezierOrigin: r3.Vector{X: -0.1, Y: -0.15},
		RadialExtension:   r3.Vector{Y: 0.3},
		Lifespan:          5,
		Feasible:          true,
	}
}

func clusterInput(g gap.Gap, at time.Time) TickInput {
	return TickInput{
		Ranges:   clusterRanges(),
		ScanTime: at,
		Gaps:     []gap.Gap{g},
		Goal:     r3.Vector{Y: 2},
		Mode:     motionplan.ModeGapConstrained,
	}
}

func TestTickAdoptsThenKeeps(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	g := trackClusterGap(t, p)
	ctx := context.Background()

	res, err := p.Tick(ctx, clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Chosen, test.ShouldEqual, 0)
	test.That(t, res.Decision.Outcome, test.ShouldEqual, arbiter.DecisionAdopt)
	test.That(t, res.Decision.Reason, test.ShouldEqual, arbiter.ReasonNoCurrent)
	test.That(t, res.Trajectory.Empty(), test.ShouldBeFalse)
	test.That(t, res.ExecutingID, test.ShouldNotEqual, uuid.Nil)
	test.That(t, len(res.Costs), test.ShouldEqual, 1)
	test.That(t, len(res.Costs[0]), test.ShouldEqual, res.Trajectory.Len())
	// the goal bearing pi/2 falls on beam 384; the nearer edge is beam 160
	test.That(t, res.GapRanks, test.ShouldResemble, []float64{224})
	first := res.ExecutingID

	executing := p.Executing()
	test.That(t, executing.LeftModel, test.ShouldEqual, g.LeftModel)
	test.That(t, executing.RightModel, test.ShouldEqual, g.RightModel)

	state, ok := p.ModelState(g.LeftModel)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, state.Range(), test.ShouldAlmostEqual, 3, 1e-3)

	res, err = p.Tick(ctx, clusterInput(g, t0.Add(200*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Decision.Outcome, test.ShouldEqual, arbiter.DecisionKeep)
	test.That(t, res.ExecutingID, test.ShouldEqual, first)

	test.That(t, testutil.ToFloat64(p.metrics.ticks.WithLabelValues("adopt")), test.ShouldEqual, 1)
	test.That(t, testutil.ToFloat64(p.metrics.ticks.WithLabelValues("keep")), test.ShouldEqual, 1)
	test.That(t, testutil.ToFloat64(p.metrics.switches.WithLabelValues(string(arbiter.ReasonNoCurrent))), test.ShouldEqual, 1)
	test.That(t, testutil.ToFloat64(p.metrics.candidates), test.ShouldEqual, 1)
}

func TestTickTraceContext(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	p, err := NewPlanner(config.NewHolder(testConfig()), nil, logger)
	test.That(t, err, test.ShouldBeNil)
	g := trackClusterGap(t, p)

	_, err = p.Tick(context.Background(), clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
	ctx := logging.EnableDebugMode(context.Background(), "corridor")
	_, err = p.Tick(ctx, clusterInput(g, t0.Add(200*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)

	entries := logs.FilterMessage("tick complete").All()
	test.That(t, entries, test.ShouldHaveLength, 2)
	test.That(t, entries[0].Level, test.ShouldEqual, zapcore.DebugLevel)
	test.That(t, entries[1].Level, test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, entries[1].ContextMap()["traceKey"], test.ShouldEqual, "corridor")
}

func TestTickReusedScan(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	g := trackClusterGap(t, p)

	// a scan stamped like the one the models started from changes nothing
	res, err := p.Tick(context.Background(), clusterInput(g, t0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Decision.Outcome, test.ShouldEqual, arbiter.DecisionAdopt)
	_, err = p.Tick(context.Background(), clusterInput(g, t0))
	test.That(t, err, test.ShouldBeNil)
}

func TestFatalTickPreservesExecuting(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	g := trackClusterGap(t, p)
	ctx := context.Background()

	_, err := p.Tick(ctx, clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
	before := p.Executing()
	test.That(t, before.Empty(), test.ShouldBeFalse)

	short := clusterInput(g, t0.Add(200*time.Millisecond))
	short.Ranges = short.Ranges[:100]
	_, err = p.Tick(ctx, short)
	test.That(t, errors.Is(err, ErrFatalTick), test.ShouldBeTrue)
	test.That(t, errors.Is(err, egocircle.ErrMalformedScan), test.ShouldBeTrue)
	test.That(t, p.Executing().ID, test.ShouldEqual, before.ID)

	_, err = p.Tick(ctx, clusterInput(g, t0.Add(50*time.Millisecond)))
	test.That(t, errors.Is(err, ErrFatalTick), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrNonMonotonicTime), test.ShouldBeTrue)
	after := p.Executing()
	test.That(t, after.ID, test.ShouldEqual, before.ID)
	test.That(t, after.Trajectory, test.ShouldResemble, before.Trajectory)

	test.That(t, testutil.ToFloat64(p.metrics.ticks.WithLabelValues(outcomeFatal)), test.ShouldEqual, 2)
}

func TestTickWithoutGaps(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	res, err := p.Tick(context.Background(), TickInput{Ranges: clusterRanges(), ScanTime: t0, Goal: r3.Vector{X: 1}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Chosen, test.ShouldEqual, arbiter.NoTrajectory)
	test.That(t, res.Decision.Outcome, test.ShouldEqual, arbiter.DecisionClear)
	test.That(t, res.Decision.Reason, test.ShouldEqual, arbiter.ReasonIncomingEmpty)
	test.That(t, res.Trajectory.Empty(), test.ShouldBeTrue)
}

func TestInfeasibleGapSkipped(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	g := trackClusterGap(t, p)
	g.Feasible = false
	res, err := p.Tick(context.Background(), clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(res.Costs), test.ShouldEqual, 0)
	test.That(t, res.Decision.Outcome, test.ShouldEqual, arbiter.DecisionClear)

	// unreferenced models are dropped
	p2 := newTestPlanner(t, testConfig())
	g2 := trackClusterGap(t, p2)
	_, err = p2.Tick(context.Background(), TickInput{Ranges: clusterRanges(), ScanTime: t0.Add(time.Second)})
	test.That(t, err, test.ShouldBeNil)
	_, ok := p2.ModelState(g2.LeftModel)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestStuckResets(t *testing.T) {
	p := newTestPlanner(t, testConfig())
	g := trackClusterGap(t, p)
	_, err := p.Tick(context.Background(), clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, p.RecordCommand(Command{Linear: r3.Vector{X: 0.3}}), test.ShouldBeTrue)
	test.That(t, p.RecordCommand(Command{Angular: 0.2}), test.ShouldBeTrue)
	test.That(t, p.RecordCommand(Command{}), test.ShouldBeFalse)
	executing := p.Executing()
	test.That(t, executing.Empty(), test.ShouldBeTrue)
	_, ok := p.ModelState(g.LeftModel)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestStuckMonitor(t *testing.T) {
	m := NewStuckMonitor(2, 1)
	test.That(t, m.Record(Command{}), test.ShouldBeTrue)
	// turning in place counts as moving
	test.That(t, m.Record(Command{Angular: -1.2}), test.ShouldBeTrue)
	test.That(t, m.Record(Command{}), test.ShouldBeTrue)
	test.That(t, m.Record(Command{Linear: r3.Vector{X: 0.5, Y: -0.3}}), test.ShouldBeFalse)
	// components add up in absolute value, so |(0.6, -0.6)| < 1 still counts as 1.2
	test.That(t, m.Record(Command{Linear: r3.Vector{X: 0.6, Y: -0.6}}), test.ShouldBeTrue)
	m.Clear()
	test.That(t, m.Record(Command{}), test.ShouldBeTrue)
}

func TestConfigSwapBetweenTicks(t *testing.T) {
	cfg := testConfig()
	holder := config.NewHolder(cfg)
	p, err := NewPlanner(holder, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	g := trackClusterGap(t, p)

	next := *cfg
	next.MinScanBeams = 1000
	holder.Store(&next)
	_, err = p.Tick(context.Background(), clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, errors.Is(err, egocircle.ErrMalformedScan), test.ShouldBeTrue)

	holder.Store(cfg)
	_, err = p.Tick(context.Background(), clusterInput(g, t0.Add(100*time.Millisecond)))
	test.That(t, err, test.ShouldBeNil)
}
