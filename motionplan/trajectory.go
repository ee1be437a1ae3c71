package motionplan

import (
	"github.com/pkg/errors"

	"go.viam.com/dynamicgap/spatialmath"
)

// Trajectory is a timed sequence of planar poses. Times are seconds from the start of the
// trajectory and strictly increase. An empty trajectory means no feasible motion.
type Trajectory struct {
	Poses []spatialmath.Pose2D
	Times []float64
}

// Len returns the number of poses.
func (t Trajectory) Len() int { return len(t.Poses) }

// Empty reports whether the trajectory has no poses.
func (t Trajectory) Empty() bool { return len(t.Poses) == 0 }

// Final returns the last pose. It panics on an empty trajectory.
func (t Trajectory) Final() spatialmath.Pose2D { return t.Poses[len(t.Poses)-1] }

// Validate checks poses and times line up and times strictly increase.
func (t Trajectory) Validate() error {
	if len(t.Poses) != len(t.Times) {
		return errors.Errorf("trajectory has %d poses but %d times", len(t.Poses), len(t.Times))
	}
	for i := 1; i < len(t.Times); i++ {
		if t.Times[i] <= t.Times[i-1] {
			return errors.Errorf("trajectory time %d (%v) does not follow %v", i, t.Times[i], t.Times[i-1])
		}
	}
	return nil
}

// Suffix returns the poses and times from index from onwards, sharing no memory with t.
func (t Trajectory) Suffix(from int) Trajectory {
	if from >= len(t.Poses) {
		return Trajectory{}
	}
	out := Trajectory{
		Poses: make([]spatialmath.Pose2D, len(t.Poses)-from),
		Times: make([]float64, len(t.Times)-from),
	}
	copy(out.Poses, t.Poses[from:])
	copy(out.Times, t.Times[from:])
	return out
}

// Transform expresses every pose in the frame that frame is expressed in.
func (t Trajectory) Transform(frame spatialmath.Pose2D) Trajectory {
	out := Trajectory{
		Poses: make([]spatialmath.Pose2D, len(t.Poses)),
		Times: make([]float64, len(t.Times)),
	}
	for i, p := range t.Poses {
		out.Poses[i] = frame.Compose(p)
	}
	copy(out.Times, t.Times)
	return out
}
