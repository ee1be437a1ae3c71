// Package arbiter picks among candidate trajectories and decides, with hysteresis, whether to
// replace the one being executed.
package arbiter

import (
	"fmt"
	"math"

	clk "github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/scoring"
	"go.viam.com/dynamicgap/spatialmath"
)

// TrajectoryScorer scores a trajectory pose by pose.
type TrajectoryScorer interface {
	ScoreTrajectory(traj motionplan.Trajectory, env scoring.Environment) ([]float64, error)
}

// Outcome is what CompareToOldTraj did to the executing state.
type Outcome int

const (
	// DecisionKeep left the executing trajectory in place.
	DecisionKeep Outcome = iota
	// DecisionAdopt replaced it with the incoming trajectory.
	DecisionAdopt
	// DecisionClear emptied it.
	DecisionClear
)

func (o Outcome) String() string {
	switch o {
	case DecisionKeep:
		return "keep"
	case DecisionAdopt:
		return "adopt"
	case DecisionClear:
		return "clear"
	default:
		panic(fmt.Sprintf("unknown outcome %d", int(o)))
	}
}

// Reason explains a Decision.
type Reason string

// reasons reported by CompareToOldTraj.
const (
	ReasonIncomingEmpty      Reason = "incoming_empty"
	ReasonIncomingInfeasible Reason = "incoming_infeasible"
	ReasonNoCurrent          Reason = "no_current"
	ReasonCurrentShort       Reason = "current_short"
	ReasonBothInfeasible     Reason = "both_infeasible"
	ReasonBetterScore        Reason = "better_score"
	ReasonGapInfeasible      Reason = "current_gap_infeasible"
	ReasonHysteresis         Reason = "hysteresis"
)

// Decision is the result of comparing an incoming trajectory with the executing one.
type Decision struct {
	Outcome       Outcome
	Reason        Reason
	IncomingScore float64
	CurrentScore  float64
}

func (d Decision) String() string {
	return fmt.Sprintf("%s (%s)", d.Outcome, d.Reason)
}

// Arbiter compares trajectories by their first Lookahead costs and only abandons the executing
// trajectory for one that beats it by more than Lookahead.
type Arbiter struct {
	scorer    TrajectoryScorer
	lookahead int
	logger    logging.Logger
	clock     clk.Clock
}

// NewArbiter returns an arbiter scoring with scorer over lookahead poses.
func NewArbiter(scorer TrajectoryScorer, lookahead int, logger logging.Logger) (*Arbiter, error) {
	if lookahead < 1 {
		return nil, errors.Errorf("lookahead must be at least 1, got %d", lookahead)
	}
	return &Arbiter{
		scorer:    scorer,
		lookahead: lookahead,
		logger:    logger.Sublogger("arbiter"),
		clock:     clk.New(),
	}, nil
}

// EgoTrajPosition returns the index just past the pose of traj (in the robot frame) nearest the
// robot, capped at the last index.
func EgoTrajPosition(traj motionplan.Trajectory) int {
	closest, best := 0, math.Inf(1)
	for i, p := range traj.Poses {
		if d := spatialmath.PlanarNorm(p.Point); d < best {
			closest, best = i, d
		}
	}
	return min(closest+1, traj.Len()-1)
}

// CompareToOldTraj decides whether incoming, in the robot frame, replaces the trajectory in
// state. Both are re-scored against env. A scoring error leaves state untouched.
func (a *Arbiter) CompareToOldTraj(
	incoming Candidate,
	feasible []gap.Gap,
	env scoring.Environment,
	robotInOdom spatialmath.Pose2D,
	state *ExecutingState,
) (Decision, error) {
	incomingCosts, err := a.scorer.ScoreTrajectory(incoming.Trajectory, env)
	if err != nil {
		return Decision{}, errors.Wrap(err, "scoring incoming trajectory")
	}
	d := Decision{IncomingScore: scoring.Truncated(incomingCosts, a.lookahead), CurrentScore: math.Inf(-1)}

	if state.Empty() {
		switch {
		case incoming.Trajectory.Empty():
			return a.clear(state, d, ReasonIncomingEmpty), nil
		case math.IsInf(d.IncomingScore, -1):
			return a.clear(state, d, ReasonIncomingInfeasible), nil
		default:
			return a.adopt(state, incoming, robotInOdom, d, ReasonNoCurrent), nil
		}
	}

	current := state.InRobotFrame(robotInOdom)
	reduced := current.Suffix(EgoTrajPosition(current))
	if reduced.Len() < 2 {
		if incoming.Trajectory.Empty() {
			return a.clear(state, d, ReasonCurrentShort), nil
		}
		return a.adopt(state, incoming, robotInOdom, d, ReasonCurrentShort), nil
	}
	offset := reduced.Times[0]
	for i := range reduced.Times {
		reduced.Times[i] -= offset
	}

	currentCosts, err := a.scorer.ScoreTrajectory(reduced, env)
	if err != nil {
		return Decision{}, errors.Wrap(err, "scoring executing trajectory")
	}
	// an empty incoming keeps the full lookahead so a colliding current trajectory still scores -inf
	counts := min(a.lookahead, reduced.Len())
	if !incoming.Trajectory.Empty() {
		counts = min(counts, incoming.Trajectory.Len())
		d.IncomingScore = scoring.Truncated(incomingCosts, counts)
	}
	d.CurrentScore = scoring.Truncated(currentCosts, counts)
	a.logger.Debugw("comparing trajectories",
		"incoming", d.IncomingScore, "current", d.CurrentScore, "counts", counts, "executing", state.ID)

	if math.IsInf(d.IncomingScore, -1) && math.IsInf(d.CurrentScore, -1) {
		return a.clear(state, d, ReasonBothInfeasible), nil
	}
	if d.IncomingScore > d.CurrentScore+float64(a.lookahead) {
		return a.adopt(state, incoming, robotInOdom, d, ReasonBetterScore), nil
	}

	for i := range feasible {
		if feasible[i].HasModels(state.LeftModel, state.RightModel) {
			d.Outcome, d.Reason = DecisionKeep, ReasonHysteresis
			return d, nil
		}
	}
	if incoming.Trajectory.Empty() {
		return a.clear(state, d, ReasonGapInfeasible), nil
	}
	return a.adopt(state, incoming, robotInOdom, d, ReasonGapInfeasible), nil
}

func (a *Arbiter) adopt(state *ExecutingState, c Candidate, robotInOdom spatialmath.Pose2D, d Decision, r Reason) Decision {
	state.adopt(c, robotInOdom, a.clock.Now())
	d.Outcome, d.Reason = DecisionAdopt, r
	a.logger.Infow("switching trajectory", "reason", r, "id", state.ID, "incoming", d.IncomingScore, "current", d.CurrentScore)
	return d
}

func (a *Arbiter) clear(state *ExecutingState, d Decision, r Reason) Decision {
	state.Reset()
	d.Outcome, d.Reason = DecisionClear, r
	a.logger.Warnw("clearing trajectory", "reason", r, "incoming", d.IncomingScore, "current", d.CurrentScore)
	return d
}
