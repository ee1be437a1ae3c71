// Package diagnostics renders and summarizes what a planning tick produced.
package diagnostics

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"go.viam.com/dynamicgap/motionplan"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// PlotCosts writes a line per candidate of its per-pose costs to path. The image format follows
// the extension of path. Infinite costs are left out of the line.
func PlotCosts(costs [][]float64, path string) error {
	p := plot.New()
	p.Title.Text = "Per-pose cost"
	p.X.Label.Text = "Pose"
	p.Y.Label.Text = "Cost"

	for i, c := range costs {
		pts := make(plotter.XYs, 0, len(c))
		for j, v := range c {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(j), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		if err := addLine(p, pts, i, fmt.Sprintf("candidate %d", i)); err != nil {
			return err
		}
	}
	return errors.Wrapf(p.Save(plotWidth, plotHeight, path), "saving %q", path)
}

// PlotTrajectories draws every trajectory's path in the plane to path. The robot sits at the
// origin facing +x.
func PlotTrajectories(trajs []motionplan.Trajectory, path string) error {
	p := plot.New()
	p.Title.Text = "Candidate trajectories"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	for i, traj := range trajs {
		if traj.Empty() {
			continue
		}
		pts := make(plotter.XYs, traj.Len())
		for j, pose := range traj.Poses {
			pts[j] = plotter.XY{X: pose.X(), Y: pose.Y()}
		}
		if err := addLine(p, pts, i, fmt.Sprintf("trajectory %d", i)); err != nil {
			return err
		}
	}
	p.Add(plotter.NewGrid())
	return errors.Wrapf(p.Save(plotHeight, plotHeight, path), "saving %q", path)
}

func addLine(p *plot.Plot, pts plotter.XYs, i int, label string) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(i)
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}
