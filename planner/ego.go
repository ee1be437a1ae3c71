package planner

import (
	"github.com/golang/geo/r3"
	"go.uber.org/atomic"

	"go.viam.com/dynamicgap/spatialmath"
)

// egoStore holds the latest ego samples. Producers write without the tick lock and the last
// write wins.
type egoStore struct {
	pose     atomic.Pointer[spatialmath.Pose2D]
	velocity atomic.Pointer[r3.Vector]
	accel    atomic.Pointer[r3.Vector]
}

type egoSample struct {
	pose     spatialmath.Pose2D
	velocity r3.Vector
	accel    r3.Vector
}

func (e *egoStore) load() egoSample {
	var s egoSample
	if p := e.pose.Load(); p != nil {
		s.pose = *p
	}
	if v := e.velocity.Load(); v != nil {
		s.velocity = *v
	}
	if a := e.accel.Load(); a != nil {
		s.accel = *a
	}
	return s
}

// SetPose records the robot's pose in the odometry frame.
func (p *Planner) SetPose(pose spatialmath.Pose2D) {
	p.ego.pose.Store(&pose)
}

// SetVelocity records the robot's velocity in its own frame.
func (p *Planner) SetVelocity(vel r3.Vector) {
	p.ego.velocity.Store(&vel)
}

// SetAcceleration records the robot's acceleration in its own frame.
func (p *Planner) SetAcceleration(accel r3.Vector) {
	p.ego.accel.Store(&accel)
}
