// Package planner runs the planning tick: it updates the edge models from the latest gaps,
// synthesizes one trajectory per feasible gap, scores the candidates in parallel against the
// forecast egocircle and lets the arbiter decide what the robot executes.
package planner

import (
	"context"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"go.viam.com/dynamicgap/arbiter"
	"go.viam.com/dynamicgap/config"
	"go.viam.com/dynamicgap/egocircle"
	"go.viam.com/dynamicgap/estimation"
	"go.viam.com/dynamicgap/gap"
	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
	"go.viam.com/dynamicgap/scoring"
	"go.viam.com/dynamicgap/spatialmath"
	"go.viam.com/dynamicgap/utils"
)

// TickInput is everything a tick consumes besides the ego samples.
type TickInput struct {
	// Ranges is the raw range scan; beam i looks along -pi + i*2pi/len(Ranges).
	Ranges   []float64
	ScanTime time.Time
	// Gaps are the associated gaps of this scan. Their edges are the measurements of the edge
	// models they name. Only gaps marked Feasible get a candidate.
	Gaps []gap.Gap
	// Agents are ground truth obstacle states in the robot frame, used by the oracle projection.
	Agents []egocircle.Agent
	// Goal is the local goal in the robot frame.
	Goal r3.Vector
	Mode motionplan.Mode
}

// TickResult is what a completed tick publishes.
type TickResult struct {
	// Trajectory is the executing trajectory in the odometry frame. Empty means stop.
	Trajectory  motionplan.Trajectory
	Costs       [][]float64
	Scores      []float64
	// GapRanks is the beam distance of each feasible gap's nearer edge from the goal bearing,
	// aligned with Costs.
	GapRanks    []float64
	Chosen      int
	Decision    arbiter.Decision
	ExecutingID uuid.UUID
}

// components are rebuilt whenever the config holder publishes a new config.
type components struct {
	cfg     *config.PlannerConfig
	synth   *motionplan.Synthesizer
	scorer  *scoring.Scorer
	arbiter *arbiter.Arbiter
	stuck   *StuckMonitor
}

// Planner owns the edge models and the executing trajectory. Tick, Track, RecordCommand and Reset
// are serialized by one lock; ego samples are written without it.
type Planner struct {
	mu        sync.RWMutex
	arena     *estimation.Arena
	executing arbiter.ExecutingState
	lastScan  time.Time
	comps     *components

	ego     egoStore
	cfg     *config.Holder
	metrics *metrics
	logger  logging.Logger
}

// NewPlanner returns a planner reading its configuration from cfg and registering its metrics on
// reg, which may be nil.
func NewPlanner(cfg *config.Holder, reg prometheus.Registerer, logger logging.Logger) (*Planner, error) {
	p := &Planner{
		arena:   estimation.NewArena(),
		cfg:     cfg,
		metrics: newMetrics(reg),
		logger:  logger.Sublogger("planner"),
	}
	if _, err := p.components(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planner) components() (*components, error) {
	cfg := p.cfg.Load()
	if p.comps != nil && p.comps.cfg == cfg {
		return p.comps, nil
	}
	synth, err := motionplan.NewSynthesizer(cfg.SynthesisOptions(), p.logger)
	if err != nil {
		return nil, err
	}
	scorer := scoring.NewScorer(cfg.ScoringOptions(), p.logger)
	arb, err := arbiter.NewArbiter(scorer, cfg.LookaheadCount, p.logger)
	if err != nil {
		return nil, err
	}
	stuck := NewStuckMonitor(cfg.StuckWindow, cfg.StuckThreshold)
	if p.comps != nil {
		p.logger.Infow("applying new config", "config", cfg.String())
	}
	p.comps = &components{cfg: cfg, synth: synth, scorer: scorer, arbiter: arb, stuck: stuck}
	return p.comps, nil
}

// Track starts an edge model from its first measurement and returns its identifier for use in
// later gaps.
func (p *Planner) Track(side estimation.Side, z estimation.Measurement, t time.Time) (estimation.ModelID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arena.Create(side, z, t)
}

// Executing returns a copy of the executing state.
func (p *Planner) Executing() arbiter.ExecutingState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.executing
	s.Trajectory = s.Trajectory.Suffix(0)
	return s
}

// ModelState returns the current estimate of an edge model.
func (p *Planner) ModelState(id estimation.ModelID) (estimation.State, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	m, ok := p.arena.Get(id)
	if !ok {
		return estimation.State{}, false
	}
	return m.State(), true
}

// Reset drops every edge model and the executing trajectory.
func (p *Planner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Planner) reset() {
	p.arena.Reset()
	p.executing.Reset()
	if p.comps != nil {
		p.comps.stuck.Clear()
	}
}

// RecordCommand feeds a commanded velocity to the stuck monitor. If the robot has been stuck for
// a full window the planner resets and RecordCommand returns false.
func (p *Planner) RecordCommand(cmd Command) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	comps, err := p.components()
	if err != nil {
		p.logger.Errorw("cannot apply config", "error", err)
		return true
	}
	if comps.stuck.Record(cmd) {
		return true
	}
	p.logger.Warnw("robot stuck, resetting planner", "window", comps.cfg.StuckWindow)
	p.reset()
	return false
}

// Tick runs one planning cycle. A fatal error matches ErrFatalTick and leaves the executing
// trajectory as it was.
func (p *Planner) Tick(ctx context.Context, in TickInput) (TickResult, error) {
	start := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.tick(ctx, in)
	p.metrics.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.ticks.WithLabelValues(outcomeFatal).Inc()
		p.logger.Errorw("tick aborted", "scan_time", in.ScanTime, "error", err)
		return TickResult{}, fatal(err)
	}
	p.metrics.ticks.WithLabelValues(res.Decision.Outcome.String()).Inc()
	if res.Decision.Outcome == arbiter.DecisionAdopt {
		p.metrics.switches.WithLabelValues(string(res.Decision.Reason)).Inc()
	}
	return res, nil
}

func (p *Planner) tick(ctx context.Context, in TickInput) (TickResult, error) {
	comps, err := p.components()
	if err != nil {
		return TickResult{}, err
	}
	cfg := comps.cfg

	scan := egocircle.NewScan(in.Ranges, cfg.ScanSentinel, cfg.MaxRange)
	if err := scan.Validate(cfg.MinScanBeams); err != nil {
		return TickResult{}, err
	}
	ego := p.ego.load()
	if err := p.updateModels(in, ego); err != nil {
		return TickResult{}, err
	}

	frozen := p.arena.FreezeAll(ego.velocity)
	env := scoring.Environment{Scan: scan, Projector: p.projector(cfg, in, frozen), Goal: in.Goal}

	feasible := make([]gap.Gap, 0, len(in.Gaps))
	for _, g := range in.Gaps {
		if g.Feasible {
			feasible = append(feasible, g)
		}
	}
	candidates, err := p.synthesize(comps, feasible, ego, in.Mode)
	if err != nil {
		return TickResult{}, err
	}
	p.metrics.candidates.Set(float64(len(candidates)))

	if err := p.score(ctx, comps.scorer, candidates, env); err != nil {
		return TickResult{}, err
	}
	chosen, scores := arbiter.PickTraj(candidates, cfg.LookaheadCount)
	incoming := arbiter.Candidate{}
	if chosen != arbiter.NoTrajectory {
		incoming = candidates[chosen]
	}

	decision, err := comps.arbiter.CompareToOldTraj(incoming, feasible, env, ego.pose, &p.executing)
	if err != nil {
		return TickResult{}, err
	}
	p.lastScan = in.ScanTime

	res := TickResult{
		Trajectory:  p.executing.Trajectory.Suffix(0),
		Costs:       make([][]float64, len(candidates)),
		Scores:      scores,
		GapRanks:    gap.RankGapsByGoal(feasible, in.Goal, scan.Len()),
		Chosen:      chosen,
		Decision:    decision,
		ExecutingID: p.executing.ID,
	}
	for i, c := range candidates {
		res.Costs[i] = c.Costs
	}
	p.logger.CDebugw(ctx, "tick complete",
		"candidates", len(candidates), "chosen", chosen, "decision", decision.String(), "models", p.arena.Len())
	return res, nil
}

// updateModels corrects every edge model named by a gap with that gap's edge. Models no gap names
// are dropped. Timestamps are checked for every model before any is touched.
func (p *Planner) updateModels(in TickInput, ego egoSample) error {
	if !p.lastScan.IsZero() && in.ScanTime.Before(p.lastScan) {
		return errors.Wrapf(ErrNonMonotonicTime, "scan at %v after scan at %v", in.ScanTime, p.lastScan)
	}

	type observation struct {
		model *estimation.Model
		z     estimation.Measurement
	}
	var observations []observation
	seen := map[estimation.ModelID]bool{}
	observe := func(id estimation.ModelID, e gap.Edge, halfScan float64) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		m, ok := p.arena.Get(id)
		if !ok {
			p.logger.Warnw("gap names an unknown edge model", "model", id)
			return nil
		}
		if in.ScanTime.Before(m.LastUpdate()) {
			return errors.Wrapf(ErrNonMonotonicTime, "model %d last updated at %v, scan at %v", id, m.LastUpdate(), in.ScanTime)
		}
		observations = append(observations, observation{
			model: m,
			z:     estimation.Measurement{Range: e.Range, Bearing: spatialmath.HalfScanAngle(e.Index, halfScan)},
		})
		return nil
	}
	for _, g := range in.Gaps {
		if err := observe(g.LeftModel, g.Left, g.HalfScan); err != nil {
			return err
		}
		if err := observe(g.RightModel, g.Right, g.HalfScan); err != nil {
			return err
		}
	}

	for _, o := range observations {
		err := o.model.Update(o.z, ego.accel, ego.velocity, in.ScanTime)
		switch {
		case err == nil:
		case errors.Is(err, estimation.ErrNonPositiveDt):
			// the scan was reused
			p.logger.Debugw("skipping stale measurement", "model", o.model.ID())
		default:
			p.logger.Warnw("skipping edge model update",
				"model", o.model.ID(), "age", in.ScanTime.Sub(o.model.Created()), "error", err)
		}
	}

	keep := make([]estimation.ModelID, 0, len(seen))
	for id := range seen {
		keep = append(keep, id)
	}
	if removed := p.arena.Retain(keep...); removed > 0 {
		p.logger.Debugw("dropped edge models", "count", removed)
	}
	return nil
}

func (p *Planner) projector(cfg *config.PlannerConfig, in TickInput, frozen []estimation.Frozen) egocircle.Projector {
	switch cfg.Projection {
	case config.ProjectionOracle:
		return egocircle.OracleProjector{Agents: in.Agents, InscribedRadius: cfg.InscribedRadius}
	default:
		if len(frozen) == 0 {
			return nil
		}
		return egocircle.ModelProjector{Models: frozen}
	}
}

// synthesize builds one candidate per feasible gap, in the robot frame. Only a non-finite
// integration is fatal; any other failure leaves that candidate empty.
func (p *Planner) synthesize(
	comps *components,
	feasible []gap.Gap,
	ego egoSample,
	mode motionplan.Mode,
) ([]arbiter.Candidate, error) {
	start := motionplan.EgoState{Pose: spatialmath.NewZeroPose2D(), Velocity: ego.velocity}
	minSpacing := comps.synth.Options().MinSpacing
	candidates := make([]arbiter.Candidate, len(feasible))
	for i := range feasible {
		g := &feasible[i]
		traj, err := comps.synth.Generate(g, start, mode)
		switch {
		case err == nil:
		case errors.Is(err, motionplan.ErrNonFiniteIntegration):
			return nil, err
		default:
			p.logger.Warnw("no trajectory through gap", "left", g.LeftModel, "right", g.RightModel, "error", err)
			traj = motionplan.Trajectory{}
		}
		candidates[i] = arbiter.Candidate{
			Trajectory: motionplan.ForwardPass(traj, spatialmath.NewZeroPose2D(), minSpacing),
			Gap:        g,
		}
	}
	return candidates, nil
}

// score costs every candidate concurrently. Scoring only reads the frozen environment.
func (p *Planner) score(ctx context.Context, scorer *scoring.Scorer, candidates []arbiter.Candidate, env scoring.Environment) error {
	fs := make([]utils.ValueFunc[[]float64], len(candidates))
	for i := range candidates {
		traj := candidates[i].Trajectory
		fs[i] = func(context.Context) ([]float64, error) {
			return scorer.ScoreTrajectory(traj, env)
		}
	}
	elapsed, costs, err := utils.GetInParallel(ctx, fs)
	if err != nil {
		return errors.Wrap(err, "scoring candidates")
	}
	for i := range candidates {
		candidates[i].Costs = costs[i]
	}
	p.logger.Debugw("scored candidates", "count", len(candidates), "elapsed", elapsed)
	return nil
}
