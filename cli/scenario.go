package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/egocircle"
	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/planner"
	"go.viam.com/dynamicgap/spatialmath"
)

// Scenario is a recorded sequence of planner inputs.
type Scenario struct {
	Name  string         `json:"name"`
	Ticks []ScenarioTick `json:"ticks"`
}

// Vec is a planar vector.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) r3() r3.Vector { return r3.Vector{X: v.X, Y: v.Y} }

// Span sets beams From through To, inclusive, to Range.
type Span struct {
	From  int     `json:"from"`
	To    int     `json:"to"`
	Range float64 `json:"range"`
}

// ScenarioEdge is a gap edge. ID labels the physical edge across ticks.
type ScenarioEdge struct {
	ID    string  `json:"id"`
	Index int     `json:"index"`
	Range float64 `json:"range"`
}

// ScenarioGap is one gap of a tick. Terminal edges and goal default to the initial ones.
type ScenarioGap struct {
	Left            ScenarioEdge  `json:"left"`
	Right           ScenarioEdge  `json:"right"`
	TerminalLeft    *ScenarioEdge `json:"terminal_left,omitempty"`
	TerminalRight   *ScenarioEdge `json:"terminal_right,omitempty"`
	Goal            Vec           `json:"goal"`
	TerminalGoal    *Vec          `json:"terminal_goal,omitempty"`
	LeftOrigin      Vec           `json:"left_origin"`
	RightOrigin     Vec           `json:"right_origin"`
	RadialExtension Vec           `json:"radial_extension"`
	Lifespan        float64       `json:"lifespan"`
	Feasible        bool          `json:"feasible"`
}

// ScenarioAgent is a ground truth obstacle for the oracle projection.
type ScenarioAgent struct {
	Position Vec `json:"position"`
	Velocity Vec `json:"velocity"`
}

// ScenarioTick is one scan and the samples current when it arrived. Ranges, if given, is used as
// is; otherwise Beams beams at DefaultRange are overlaid with Obstacles.
type ScenarioTick struct {
	Time         float64         `json:"time"`
	Ranges       []float64       `json:"ranges,omitempty"`
	Beams        int             `json:"beams,omitempty"`
	DefaultRange float64         `json:"default_range,omitempty"`
	Obstacles    []Span          `json:"obstacles,omitempty"`
	Pose         *Vec            `json:"pose,omitempty"`
	Heading      float64         `json:"heading"`
	Velocity     Vec             `json:"velocity"`
	Acceleration Vec             `json:"acceleration"`
	Goal         Vec             `json:"goal"`
	GoalToGoal   bool            `json:"goal_to_goal"`
	Gaps         []ScenarioGap   `json:"gaps"`
	Agents       []ScenarioAgent `json:"agents,omitempty"`
}

func (st ScenarioTick) ranges() []float64 {
	if len(st.Ranges) > 0 {
		return st.Ranges
	}
	out := make([]float64, st.Beams)
	for i := range out {
		out[i] = st.DefaultRange
	}
	for _, o := range st.Obstacles {
		for i := max(o.From, 0); i <= o.To && i < len(out); i++ {
			out[i] = o.Range
		}
	}
	return out
}

// ReadScenario reads a scenario from a JSON file.
func ReadScenario(path string) (*Scenario, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck
	s := &Scenario{}
	if err := json.NewDecoder(f).Decode(s); err != nil {
		return nil, errors.Wrapf(err, "failed to decode scenario %q", path)
	}
	if len(s.Ticks) == 0 {
		return nil, errors.Errorf("scenario %q has no ticks", path)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Replay feeds every tick of s to p in order and returns the result of each.
func Replay(ctx context.Context, p *planner.Planner, s *Scenario, epoch time.Time) ([]planner.TickResult, error) {
	models := map[string]estimation.ModelID{}
	results := make([]planner.TickResult, 0, len(s.Ticks))
	for i, st := range s.Ticks {
		at := epoch.Add(time.Duration(st.Time * float64(time.Second)))
		ranges := st.ranges()
		halfScan := float64(len(ranges)) / 2

		if st.Pose != nil {
			p.SetPose(spatialmath.NewPose2D(st.Pose.X, st.Pose.Y, st.Heading))
		}
		p.SetVelocity(st.Velocity.r3())
		p.SetAcceleration(st.Acceleration.r3())

		track := func(e ScenarioEdge, side estimation.Side) (estimation.ModelID, error) {
			if id, ok := models[e.ID]; ok && e.ID != "" {
				return id, nil
			}
			z := estimation.Measurement{Range: e.Range, Bearing: spatialmath.HalfScanAngle(e.Index, halfScan)}
			id, err := p.Track(side, z, at)
			if err != nil {
				return estimation.NoModel, errors.Wrapf(err, "tick %d: edge %q", i, e.ID)
			}
			models[e.ID] = id
			return id, nil
		}

		in := planner.TickInput{
			Ranges:   ranges,
			ScanTime: at,
			Goal:     st.Goal.r3(),
			Mode:     motionplan.ModeGapConstrained,
		}
		if st.GoalToGoal {
			in.Mode = motionplan.ModeGoalToGoal
		}
		for _, a := range st.Agents {
			in.Agents = append(in.Agents, egocircle.Agent{Position: a.Position.r3(), Velocity: a.Velocity.r3()})
		}
		for _, sg := range st.Gaps {
			left, err := track(sg.Left, estimation.SideLeft)
			if err != nil {
				return results, err
			}
			right, err := track(sg.Right, estimation.SideRight)
			if err != nil {
				return results, err
			}
			in.Gaps = append(in.Gaps, sg.gap(left, right, halfScan))
		}

		res, err := p.Tick(ctx, in)
		if err != nil {
			return results, errors.Wrapf(err, "tick %d", i)
		}
		results = append(results, res)
	}
	return results, nil
}

func (sg ScenarioGap) gap(left, right estimation.ModelID, halfScan float64) gap.Gap {
	edge := func(e ScenarioEdge) gap.Edge { return gap.Edge{Index: e.Index, Range: e.Range} }
	g := gap.Gap{
		LeftModel:         left,
		RightModel:        right,
		Left:              edge(sg.Left),
		Right:             edge(sg.Right),
		TerminalLeft:      edge(sg.Left),
		TerminalRight:     edge(sg.Right),
		HalfScan:          halfScan,
		Goal:              gap.Goal{Point: sg.Goal.r3()},
		TerminalGoal:      gap.Goal{Point: sg.Goal.r3()},
		LeftBezierOrigin:  sg.LeftOrigin.r3(),
		RightBezierOrigin: sg.RightOrigin.r3(),
		RadialExtension:   sg.RadialExtension.r3(),
		Lifespan:          sg.Lifespan,
		Feasible:          sg.Feasible,
	}
	if sg.TerminalLeft != nil {
		g.TerminalLeft = edge(*sg.TerminalLeft)
	}
	if sg.TerminalRight != nil {
		g.TerminalRight = edge(*sg.TerminalRight)
	}
	if sg.TerminalGoal != nil {
		g.TerminalGoal = gap.Goal{Point: sg.TerminalGoal.r3()}
	}
	return g
}
