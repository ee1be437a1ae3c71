package arbiter

import (
	"time"

	"github.com/google/uuid"

	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/spatialmath"
)

// ExecutingState is the trajectory the robot is following and the edge models of the gap it was
// built through. The trajectory is kept in the odometry frame so it stays put as the robot moves.
// The zero value is the empty state. Only Arbiter.CompareToOldTraj mutates it.
type ExecutingState struct {
	Trajectory motionplan.Trajectory
	LeftModel  estimation.ModelID
	RightModel estimation.ModelID
	ID         uuid.UUID
	AdoptedAt  time.Time
}

// Empty reports whether nothing is being executed.
func (s *ExecutingState) Empty() bool {
	return s.Trajectory.Empty()
}

// Reset returns the state to its zero value.
func (s *ExecutingState) Reset() {
	*s = ExecutingState{}
}

// InRobotFrame returns the executing trajectory expressed relative to the robot.
func (s *ExecutingState) InRobotFrame(robotInOdom spatialmath.Pose2D) motionplan.Trajectory {
	return s.Trajectory.Transform(robotInOdom.Inverse())
}

func (s *ExecutingState) adopt(c Candidate, robotInOdom spatialmath.Pose2D, now time.Time) {
	*s = ExecutingState{
		Trajectory: c.Trajectory.Transform(robotInOdom),
		ID:         uuid.New(),
		AdoptedAt:  now,
	}
	if c.Gap != nil {
		s.LeftModel = c.Gap.LeftModel
		s.RightModel = c.Gap.RightModel
	}
}
