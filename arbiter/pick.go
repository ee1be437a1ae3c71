package arbiter

import (
	"math"

	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/scoring"
)

// NoTrajectory is returned by PickTraj when no candidate is executable.
const NoTrajectory = -1

// Candidate is a synthesized trajectory, in the robot frame, with its per-pose costs and the gap
// it was built through.
type Candidate struct {
	Trajectory motionplan.Trajectory
	Costs      []float64
	Gap        *gap.Gap
}

// PickTraj returns the index of the candidate with the best sum of its first k costs, along with
// every candidate's score. Empty trajectories score -inf. The first candidate wins ties. If every
// score is -inf, or there are no candidates, it returns NoTrajectory.
func PickTraj(candidates []Candidate, k int) (int, []float64) {
	scores := make([]float64, len(candidates))
	best := NoTrajectory
	for i, c := range candidates {
		scores[i] = math.Inf(-1)
		if !c.Trajectory.Empty() {
			scores[i] = scoring.Truncated(c.Costs, k)
		}
		if math.IsInf(scores[i], -1) || math.IsNaN(scores[i]) {
			continue
		}
		if best == NoTrajectory || scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores
}
