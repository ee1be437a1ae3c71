// Package config defines the planner's configuration file, its defaults and validation, and a
// watcher that swaps in new configurations while the planner runs.
package config

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/scoring"
)

// Projection selects how the egocircle is forecast while scoring.
type Projection string

// supported projections.
const (
	// ProjectionModel forecasts from the tracked gap edges.
	ProjectionModel Projection = "model"
	// ProjectionOracle forecasts from ground truth agent states supplied with each tick.
	ProjectionOracle Projection = "oracle"
)

const (
	defaultInscribedRadius = 0.2
	defaultMaxRange        = 5.0
	defaultCobs            = 1.0
	defaultW               = 1.0
	defaultInflationRatio  = 1.2
	defaultLookaheadCount  = 5
	defaultMinScanBeams    = 500
	defaultStuckWindow     = 10
	defaultStuckThreshold  = 1.0
	defaultLogLevel        = "info"
)

// PlannerConfig holds every tunable scalar of the planner. Zero valued fields are replaced with
// their defaults when the file is read.
type PlannerConfig struct {
	InscribedRadius float64 `json:"inscribed_radius"`
	MaxRange        float64 `json:"max_range"`
	Cobs            float64 `json:"cobs"`
	W               float64 `json:"w"`
	InflationRatio  float64 `json:"inflation_ratio"`

	NominalVelX     float64 `json:"nominal_vel_x"`
	NominalVelY     float64 `json:"nominal_vel_y"`
	NominalAccelX   float64 `json:"nominal_accel_x"`
	NominalAccelY   float64 `json:"nominal_accel_y"`
	IntegrationStep float64 `json:"integration_step"`
	IntegrateMaxT   float64 `json:"integrate_max_t"`
	LookaheadCount  int     `json:"lookahead_count"`

	ClearanceOffset float64 `json:"clearance_offset"`
	NumCurvePoints  int     `json:"num_curve_points"`
	NumRadialPoints int     `json:"num_radial_points"`
	// RadialExtension is a pointer so an explicit false survives defaulting.
	RadialExtension *bool   `json:"radial_extension,omitempty"`
	KAcc            float64 `json:"k_acc"`
	RepulsionGain   float64 `json:"repulsion_gain"`
	RepulsionSpread float64 `json:"repulsion_spread"`
	GoalTolerance   float64 `json:"goal_tolerance"`
	MinSpacing      float64 `json:"min_spacing"`

	MinScanBeams int        `json:"min_scan_beams"`
	ScanSentinel float64    `json:"scan_sentinel"`
	Projection   Projection `json:"projection"`

	StuckWindow    int     `json:"stuck_window"`
	StuckThreshold float64 `json:"stuck_threshold"`

	LogLevel string `json:"log_level"`
}

// NewDefaultConfig returns the configuration used when no file is given.
func NewDefaultConfig() *PlannerConfig {
	cfg := &PlannerConfig{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *PlannerConfig) applyDefaults() {
	synth := motionplan.NewDefaultOptions()
	setFloat := func(f *float64, def float64) {
		if *f == 0 {
			*f = def
		}
	}
	setInt := func(i *int, def int) {
		if *i == 0 {
			*i = def
		}
	}
	setFloat(&cfg.InscribedRadius, defaultInscribedRadius)
	setFloat(&cfg.MaxRange, defaultMaxRange)
	setFloat(&cfg.Cobs, defaultCobs)
	setFloat(&cfg.W, defaultW)
	setFloat(&cfg.InflationRatio, defaultInflationRatio)
	setFloat(&cfg.NominalVelX, synth.NominalVel.X)
	setFloat(&cfg.NominalVelY, synth.NominalVel.Y)
	setFloat(&cfg.NominalAccelX, synth.NominalAccel.X)
	setFloat(&cfg.NominalAccelY, synth.NominalAccel.Y)
	setFloat(&cfg.IntegrationStep, synth.IntegrationStep)
	setFloat(&cfg.IntegrateMaxT, synth.IntegrateMaxT)
	setInt(&cfg.LookaheadCount, defaultLookaheadCount)
	setFloat(&cfg.ClearanceOffset, synth.ClearanceOffset)
	setInt(&cfg.NumCurvePoints, synth.NumCurvePoints)
	setInt(&cfg.NumRadialPoints, synth.NumRadialPoints)
	if cfg.RadialExtension == nil {
		radial := synth.RadialExtension
		cfg.RadialExtension = &radial
	}
	setFloat(&cfg.KAcc, synth.KAcc)
	setFloat(&cfg.RepulsionGain, synth.RepulsionGain)
	setFloat(&cfg.RepulsionSpread, synth.RepulsionSpread)
	setFloat(&cfg.GoalTolerance, synth.GoalTolerance)
	setFloat(&cfg.MinSpacing, synth.MinSpacing)
	setInt(&cfg.MinScanBeams, defaultMinScanBeams)
	if cfg.Projection == "" {
		cfg.Projection = ProjectionModel
	}
	setInt(&cfg.StuckWindow, defaultStuckWindow)
	setFloat(&cfg.StuckThreshold, defaultStuckThreshold)
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}

// Validate ensures all parts of the config are valid. Every invalid field is reported.
func (cfg *PlannerConfig) Validate(path string) error {
	var errs error
	positive := func(name string, v float64) {
		if !(v > 0) || math.IsInf(v, 1) {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be positive and finite, got %v", name, v)))
		}
	}
	atLeast := func(name string, v, low int) {
		if v < low {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be at least %d, got %d", name, low, v)))
		}
	}

	positive("inscribed_radius", cfg.InscribedRadius)
	positive("max_range", cfg.MaxRange)
	positive("cobs", cfg.Cobs)
	positive("w", cfg.W)
	positive("inflation_ratio", cfg.InflationRatio)
	positive("nominal_vel_x", cfg.NominalVelX)
	positive("nominal_vel_y", cfg.NominalVelY)
	positive("nominal_accel_x", cfg.NominalAccelX)
	positive("nominal_accel_y", cfg.NominalAccelY)
	positive("integration_step", cfg.IntegrationStep)
	positive("integrate_max_t", cfg.IntegrateMaxT)
	positive("clearance_offset", cfg.ClearanceOffset)
	positive("k_acc", cfg.KAcc)
	positive("repulsion_spread", cfg.RepulsionSpread)
	positive("min_spacing", cfg.MinSpacing)
	atLeast("lookahead_count", cfg.LookaheadCount, 1)
	atLeast("num_curve_points", cfg.NumCurvePoints, 1)
	atLeast("num_radial_points", cfg.NumRadialPoints, 0)
	atLeast("min_scan_beams", cfg.MinScanBeams, 1)
	atLeast("stuck_window", cfg.StuckWindow, 1)

	if cfg.RepulsionGain < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("repulsion_gain cannot be negative, got %v", cfg.RepulsionGain)))
	}
	if cfg.GoalTolerance < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("goal_tolerance cannot be negative, got %v", cfg.GoalTolerance)))
	}
	if cfg.StuckThreshold < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("stuck_threshold cannot be negative, got %v", cfg.StuckThreshold)))
	}
	if cfg.IntegrationStep > cfg.IntegrateMaxT {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("integration_step %v exceeds integrate_max_t %v", cfg.IntegrationStep, cfg.IntegrateMaxT)))
	}
	switch cfg.Projection {
	case ProjectionModel, ProjectionOracle:
	default:
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("projection must be %q or %q, got %q", ProjectionModel, ProjectionOracle, cfg.Projection)))
	}
	if _, err := cfg.Level(); err != nil {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, err))
	}
	return errs
}

// Level parses LogLevel.
func (cfg *PlannerConfig) Level() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return level, errors.Wrapf(err, "invalid log_level %q", cfg.LogLevel)
	}
	return level, nil
}

// SynthesisOptions returns the trajectory synthesis options described by cfg.
func (cfg *PlannerConfig) SynthesisOptions() motionplan.Options {
	opts := motionplan.NewDefaultOptions()
	opts.NominalVel = r3.Vector{X: cfg.NominalVelX, Y: cfg.NominalVelY}
	opts.NominalAccel = r3.Vector{X: cfg.NominalAccelX, Y: cfg.NominalAccelY}
	opts.IntegrationStep = cfg.IntegrationStep
	opts.IntegrateMaxT = cfg.IntegrateMaxT
	opts.ClearanceOffset = cfg.ClearanceOffset
	opts.NumCurvePoints = cfg.NumCurvePoints
	opts.NumRadialPoints = cfg.NumRadialPoints
	if cfg.RadialExtension != nil {
		opts.RadialExtension = *cfg.RadialExtension
	}
	opts.KAcc = cfg.KAcc
	opts.RepulsionGain = cfg.RepulsionGain
	opts.RepulsionSpread = cfg.RepulsionSpread
	opts.GoalTolerance = cfg.GoalTolerance
	opts.MinSpacing = cfg.MinSpacing
	return opts
}

// ScoringOptions returns the pose cost options described by cfg.
func (cfg *PlannerConfig) ScoringOptions() scoring.Options {
	return scoring.Options{
		InscribedRadius: cfg.InscribedRadius,
		InflationRatio:  cfg.InflationRatio,
		MaxRange:        cfg.MaxRange,
		Cobs:            cfg.Cobs,
		W:               cfg.W,
		MinScanBeams:    cfg.MinScanBeams,
	}
}

func (cfg *PlannerConfig) String() string {
	return fmt.Sprintf("PlannerConfig{projection: %s, lookahead: %d, max_range: %v}",
		cfg.Projection, cfg.LookaheadCount, cfg.MaxRange)
}
