// Package scoring assigns per-pose costs to candidate trajectories against the current or
// forecast egocircle.
package scoring

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/dynamicgap/egocircle"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/spatialmath"
)

const (
	// weight on the distance between the final pose and the local goal.
	defaultTerminalWeight = 0.5

	// a trajectory ending closer than this weighted distance to the goal may saturate.
	excellentTerminal = 1.0

	// summed pose cost at or above which a trajectory may saturate.
	excellentFloor = -10.0

	// ExcellentScore is the per-pose score of a saturated trajectory.
	ExcellentScore = 100.0
)

// Options configures pose costs.
type Options struct {
	InscribedRadius float64
	InflationRatio  float64
	MaxRange        float64
	Cobs            float64
	W               float64
	TerminalWeight  float64
	MinScanBeams    int
}

// Environment is what a trajectory is scored against. A nil Projector scores every pose against
// Scan as is.
type Environment struct {
	Scan      egocircle.Scan
	Projector egocircle.Projector
	Goal      r3.Vector
}

// Scorer computes pose costs. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	opts   Options
	logger logging.Logger
}

// NewScorer returns a scorer for opts.
func NewScorer(opts Options, logger logging.Logger) *Scorer {
	if opts.TerminalWeight == 0 {
		opts.TerminalWeight = defaultTerminalWeight
	}
	return &Scorer{opts: opts, logger: logger.Sublogger("scoring")}
}

// Options returns the scorer's options.
func (s *Scorer) Options() Options { return s.opts }

// Cost maps the clearance d to a pose cost: -inf inside the inflated radius, 0 beyond MaxRange and
// an exponential penalty in between.
func (s *Scorer) Cost(d float64) float64 {
	inflated := s.opts.InscribedRadius * s.opts.InflationRatio
	switch {
	case d <= inflated:
		return math.Inf(-1)
	case d > s.opts.MaxRange:
		return 0
	default:
		return s.opts.Cobs * math.Exp(-s.opts.W*(d-inflated))
	}
}

// MinDistance returns the distance from pose to the nearest beam endpoint and that beam's index.
// Beams with no return are pushed out by MaxRange so open space never dominates.
func (s *Scorer) MinDistance(scan egocircle.Scan, pose spatialmath.Pose2D) (float64, int) {
	best, bestIdx := math.Inf(1), -1
	for i, r := range scan.Ranges {
		if r >= scan.MaxRange {
			r += s.opts.MaxRange
		}
		p := spatialmath.PolarPoint(r, scan.AngleAt(i))
		if d := spatialmath.PlanarDistance(p, pose.Point); d < best {
			best, bestIdx = d, i
		}
	}
	return best, bestIdx
}

// ScoreTrajectory returns one cost per pose of traj. Poses are scored against the horizon forecast
// at their own timestamps when env has a projector. A trajectory that ends near the goal without
// serious cost saturates to ExcellentScore everywhere; otherwise the weighted distance to the goal
// is charged to the first pose.
func (s *Scorer) ScoreTrajectory(traj motionplan.Trajectory, env Environment) ([]float64, error) {
	if err := env.Scan.Validate(s.opts.MinScanBeams); err != nil {
		return nil, err
	}
	if traj.Empty() {
		return []float64{}, nil
	}
	if len(traj.Times) != len(traj.Poses) {
		return nil, errors.Errorf("trajectory has %d poses but %d times", len(traj.Poses), len(traj.Times))
	}

	costs := make([]float64, traj.Len())
	if env.Projector == nil {
		for i, pose := range traj.Poses {
			costs[i] = s.scorePose(env.Scan, pose, i)
		}
	} else {
		proj := env.Projector
		horizon := env.Scan
		prev := 0.0
		for i, pose := range traj.Poses {
			if interval := traj.Times[i] - prev; interval > 0 {
				horizon, proj = proj.Project(env.Scan, interval)
			}
			prev = traj.Times[i]
			costs[i] = s.scorePose(horizon, pose, i)
		}
	}

	total := floats.Sum(costs)
	terminal := s.opts.TerminalWeight * spatialmath.PlanarDistance(traj.Final().Point, env.Goal)
	if terminal < excellentTerminal && total >= excellentFloor {
		for i := range costs {
			costs[i] = ExcellentScore
		}
		return costs, nil
	}
	costs[0] -= terminal
	return costs, nil
}

func (s *Scorer) scorePose(scan egocircle.Scan, pose spatialmath.Pose2D, i int) float64 {
	d, idx := s.MinDistance(scan, pose)
	cost := s.Cost(d)
	if math.IsInf(cost, -1) {
		s.logger.Debugw("pose in collision", "pose", i, "at", pose.String(), "beam", idx, "distance", d)
	}
	return cost
}

// Truncated sums the first k costs. An empty slice scores -inf.
func Truncated(costs []float64, k int) float64 {
	if len(costs) == 0 {
		return math.Inf(-1)
	}
	if k < len(costs) {
		costs = costs[:k]
	}
	return floats.Sum(costs)
}
