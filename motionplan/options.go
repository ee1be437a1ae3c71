package motionplan

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// default values for synthesis options.
const (
	// nominal linear speed bound per axis, in m/s.
	defaultNominalVel = 0.5

	// nominal acceleration bound per axis, in m/s^2.
	defaultNominalAccel = 0.5

	// integrator step, in seconds.
	defaultIntegrationStep = 0.5

	// horizon for goal-to-goal integration, in seconds.
	defaultIntegrateMaxT = 5.0

	// distance from a boundary sample to its repulsion center, in m.
	defaultClearanceOffset = 0.125

	// samples along each quadratic boundary curve.
	defaultNumCurvePoints = 40

	// samples along each radial extension segment.
	defaultNumRadialPoints = 6

	// gain on the velocity error of the acceleration command.
	defaultKAcc = 3.0

	// peak repulsion speed contributed by a boundary at its center, in m/s.
	defaultRepulsionGain = 0.5

	// width of the repulsion falloff, as a multiple of the clearance offset.
	defaultRepulsionSpread = 2.0

	// floor applied to boundary weights so static boundaries still repel.
	defaultMinRepulsionWeight = 0.1

	// distance below which the attractive term vanishes, in m.
	defaultGoalTolerance = 0.05

	// spacing kept between consecutive poses by the forward pass, in m.
	defaultMinSpacing = 0.1

	// tiny offset of the integrator start so the robot never sits exactly on a sample.
	startOffsetX = 1e-5
	startOffsetY = 1e-6

	// added to normal magnitudes before dividing.
	normalEpsilon = 1e-7
)

// Options configures trajectory synthesis.
type Options struct {
	NominalVel         r3.Vector
	NominalAccel       r3.Vector
	IntegrationStep    float64
	IntegrateMaxT      float64
	ClearanceOffset    float64
	NumCurvePoints     int
	NumRadialPoints    int
	RadialExtension    bool
	KAcc               float64
	RepulsionGain      float64
	RepulsionSpread    float64
	MinRepulsionWeight float64
	GoalTolerance      float64
	MinSpacing         float64
}

// NewDefaultOptions returns the options used when nothing is configured.
func NewDefaultOptions() Options {
	return Options{
		NominalVel:         r3.Vector{X: defaultNominalVel, Y: defaultNominalVel},
		NominalAccel:       r3.Vector{X: defaultNominalAccel, Y: defaultNominalAccel},
		IntegrationStep:    defaultIntegrationStep,
		IntegrateMaxT:      defaultIntegrateMaxT,
		ClearanceOffset:    defaultClearanceOffset,
		NumCurvePoints:     defaultNumCurvePoints,
		NumRadialPoints:    defaultNumRadialPoints,
		RadialExtension:    true,
		KAcc:               defaultKAcc,
		RepulsionGain:      defaultRepulsionGain,
		RepulsionSpread:    defaultRepulsionSpread,
		MinRepulsionWeight: defaultMinRepulsionWeight,
		GoalTolerance:      defaultGoalTolerance,
		MinSpacing:         defaultMinSpacing,
	}
}

func (o Options) validate() error {
	switch {
	case !(o.IntegrationStep > 0):
		return errors.Errorf("integration step must be positive, got %v", o.IntegrationStep)
	case o.NumCurvePoints < 1:
		return errors.Errorf("need at least one curve point, got %d", o.NumCurvePoints)
	case o.NumRadialPoints < 0:
		return errors.Errorf("radial point count must be non-negative, got %d", o.NumRadialPoints)
	case !(o.NominalVel.Norm() > 0):
		return errors.New("nominal velocity must be non-zero")
	}
	return nil
}

func (o Options) radialPoints() int {
	if !o.RadialExtension {
		return 0
	}
	return o.NumRadialPoints
}
