package motionplan

import (
	"math"

	"go.viam.com/dynamicgap/spatialmath"
)

// ForwardPass thins traj to poses at least minSpacing apart, starting from start at t=0, points
// each kept pose at its successor and drops the final pose.
func ForwardPass(traj Trajectory, start spatialmath.Pose2D, minSpacing float64) Trajectory {
	if traj.Empty() {
		return Trajectory{}
	}
	kept := Trajectory{
		Poses: []spatialmath.Pose2D{start},
		Times: []float64{0},
	}
	for i := 1; i < len(traj.Poses); i++ {
		p, last := traj.Poses[i], kept.Poses[len(kept.Poses)-1]
		if spatialmath.PlanarDistance(p.Point, last.Point) > minSpacing && traj.Times[i] > kept.Times[len(kept.Times)-1] {
			kept.Poses = append(kept.Poses, p)
			kept.Times = append(kept.Times, traj.Times[i])
		}
	}
	for i := 0; i+1 < len(kept.Poses); i++ {
		d := kept.Poses[i+1].Point.Sub(kept.Poses[i].Point)
		kept.Poses[i].Theta = math.Atan2(d.Y, d.X)
	}
	kept.Poses = kept.Poses[:len(kept.Poses)-1]
	kept.Times = kept.Times[:len(kept.Times)-1]
	return kept
}
