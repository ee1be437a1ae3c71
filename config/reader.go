package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Read reads a planner config from the given file. Environment variables in the file are
// expanded before it is decoded.
func Read(filePath string) (*PlannerConfig, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*PlannerConfig, error) {
	cfg := &PlannerConfig{}
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config from json")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(originalPath); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Holder publishes the current config to concurrent readers. Stored configs must not be mutated.
type Holder struct {
	cfg atomic.Pointer[PlannerConfig]
}

// NewHolder returns a holder storing cfg.
func NewHolder(cfg *PlannerConfig) *Holder {
	h := &Holder{}
	h.cfg.Store(cfg)
	return h
}

// Load returns the current config.
func (h *Holder) Load() *PlannerConfig {
	return h.cfg.Load()
}

// Store replaces the current config.
func (h *Holder) Store(cfg *PlannerConfig) {
	h.cfg.Store(cfg)
}
