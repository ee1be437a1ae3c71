package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/dynamicgap/logging"
	"go.viam.com/dynamicgap/motionplan"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	test.That(t, os.WriteFile(path, []byte(body), 0o600), test.ShouldBeNil)
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	test.That(t, cfg.Validate("planner"), test.ShouldBeNil)
	test.That(t, cfg.Projection, test.ShouldEqual, ProjectionModel)
	test.That(t, cfg.LookaheadCount, test.ShouldEqual, 5)
	test.That(t, cfg.MinScanBeams, test.ShouldEqual, 500)
	test.That(t, cfg.SynthesisOptions(), test.ShouldResemble, motionplan.NewDefaultOptions())

	level, err := cfg.Level()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, zapcore.InfoLevel)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.json")
	t.Setenv("GAPNAV_RANGE", "7.5")
	writeConfig(t, path, `{
		"max_range": ${GAPNAV_RANGE},
		"lookahead_count": 8,
		"projection": "oracle",
		"radial_extension": false,
		"log_level": "debug"
	}`)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MaxRange, test.ShouldEqual, 7.5)
	test.That(t, cfg.LookaheadCount, test.ShouldEqual, 8)
	test.That(t, cfg.Projection, test.ShouldEqual, ProjectionOracle)
	test.That(t, cfg.SynthesisOptions().RadialExtension, test.ShouldBeFalse)
	test.That(t, cfg.InscribedRadius, test.ShouldEqual, defaultInscribedRadius)

	sopts := cfg.ScoringOptions()
	test.That(t, sopts.MaxRange, test.ShouldEqual, 7.5)
	test.That(t, sopts.MinScanBeams, test.ShouldEqual, 500)

	_, err = Read(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromReader("inline", strings.NewReader("{"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxRange = -1
	cfg.LookaheadCount = -2
	cfg.Projection = "psychic"
	cfg.LogLevel = "loud"
	cfg.RepulsionGain = -1

	err := cfg.Validate("planner")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 5)
	for _, field := range []string{"max_range", "lookahead_count", "projection", "log_level", "repulsion_gain"} {
		test.That(t, err.Error(), test.ShouldContainSubstring, field)
	}

	_, err = FromReader("inline", strings.NewReader(`{"integration_step": 10, "integrate_max_t": 1}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceeds integrate_max_t")
}

func TestWatchReloads(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.json")
	writeConfig(t, path, `{"lookahead_count": 3}`)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	holder := NewHolder(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workers, err := Watch(ctx, path, holder, logger)
	test.That(t, err, test.ShouldBeNil)
	defer workers.Stop()

	waitFor := func(want int) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for holder.Load().LookaheadCount != want && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		test.That(t, holder.Load().LookaheadCount, test.ShouldEqual, want)
	}

	writeConfig(t, path, `{"lookahead_count": 9}`)
	waitFor(9)

	// an invalid file leaves the previous config in place
	writeConfig(t, path, `{"lookahead_count": 4, "projection": "psychic"}`)
	time.Sleep(100 * time.Millisecond)
	test.That(t, holder.Load().LookaheadCount, test.ShouldEqual, 9)

	writeConfig(t, filepath.Join(dir, "other.json"), `{"lookahead_count": 2}`)
	writeConfig(t, path, `{"lookahead_count": 6}`)
	waitFor(6)
}
