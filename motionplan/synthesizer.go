// Package motionplan synthesizes candidate trajectories through gaps.
package motionplan

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/spatialmath"
)

// Mode selects how a trajectory is synthesized.
type Mode int

const (
	// ModeGapConstrained integrates the gap's attractive and repulsive field for the gap lifespan.
	ModeGapConstrained Mode = iota
	// ModeGoalToGoal tracks the interpolated goal with no boundary constraint.
	ModeGoalToGoal
)

func (m Mode) String() string {
	switch m {
	case ModeGapConstrained:
		return "gap"
	case ModeGoalToGoal:
		return "goal_to_goal"
	default:
		panic(fmt.Sprintf("unknown synthesis mode %d", int(m)))
	}
}

// EgoState is the robot's pose and velocity at the start of synthesis.
type EgoState struct {
	Pose     spatialmath.Pose2D
	Velocity r3.Vector
}

// Synthesizer turns gaps into candidate trajectories. It is not safe for concurrent use on the
// same gap because Generate records the Bezier data on the gap.
type Synthesizer struct {
	opts   Options
	logger logging.Logger
}

// NewSynthesizer returns a synthesizer for the given options.
func NewSynthesizer(opts Options, logger logging.Logger) (*Synthesizer, error) {
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid synthesis options")
	}
	return &Synthesizer{opts: opts, logger: logger.Sublogger("synthesis")}, nil
}

// Options returns the synthesizer's options.
func (s *Synthesizer) Options() Options { return s.opts }

// Generate synthesizes a trajectory through g from ego. Discarded gaps yield an empty trajectory
// and no error in either mode. Otherwise a gap with no lifespan yields an empty trajectory and
// gap.ErrNonPositiveLifespan.
func (s *Synthesizer) Generate(g *gap.Gap, ego EgoState, mode Mode) (Trajectory, error) {
	if mode != ModeGoalToGoal && mode != ModeGapConstrained {
		return Trajectory{}, NewUnknownModeError(mode)
	}
	if g.Discarded() {
		s.logger.Debugw("discarding gap", "left", g.LeftModel, "right", g.RightModel)
		return Trajectory{}, nil
	}
	if err := g.Validate(); err != nil {
		return Trajectory{}, err
	}
	start := ego.Pose.Point.Add(r3.Vector{X: startOffsetX, Y: startOffsetY})
	start.Z = 0

	switch mode {
	case ModeGoalToGoal:
		field := goalToGoal{
			start:     g.Goal.Point,
			end:       g.TerminalGoal.Point,
			lifespan:  g.Lifespan,
			speed:     s.opts.NominalVel.Norm(),
			tolerance: s.opts.GoalTolerance,
		}
		return integrate(field, start, ego.Velocity, s.opts.IntegrateMaxT, s.opts)
	case ModeGapConstrained:
		BuildBezier(g, s.opts)
		s.logger.Debugw("built boundary curves",
			"left_weight", g.LeftWeight, "right_weight", g.RightWeight, "centers", len(g.Curves.Centers))
		traj, err := integrate(newGapField(g, s.opts), start, ego.Velocity, g.Lifespan, s.opts)
		if err != nil {
			return Trajectory{}, errors.Wrapf(err, "gap (%d, %d)", g.LeftModel, g.RightModel)
		}
		return traj, nil
	default:
		return Trajectory{}, NewUnknownModeError(mode)
	}
}
