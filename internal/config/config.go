// Package config loads the tracking core's tunable parameters from a
// JSON file, mirroring the teacher's pointer-optional-field config
// pattern: any field omitted from the file keeps its documented
// default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/yeltrix/radartrack/internal/filter"
	"github.com/yeltrix/radartrack/internal/grouper"
)

// DefaultInitialTrackPool is the number of tracks preallocated in the
// FREE state.
const DefaultInitialTrackPool = 5

// maxFileSize bounds how large a config file we'll read, matching the
// teacher's defensive file-size check.
const maxFileSize = 1 * 1024 * 1024

// Tuning represents the on-disk, partially-specified configuration.
// Fields omitted from the JSON retain their default values.
type Tuning struct {
	PlantNoise       *float64  `json:"plant_noise,omitempty"`
	GateThreshold    *float64  `json:"gate_threshold,omitempty"`
	R                *[9]float64 `json:"r,omitempty"` // row-major 3x3
	MaxTimeDiff      *float64  `json:"max_time_diff,omitempty"`
	InitialTrackPool *int      `json:"initial_track_pool,omitempty"`
}

// Resolved is the fully-materialized configuration with every default
// applied, ready to build a Filter/Manager/Accumulator from.
type Resolved struct {
	FilterConfig     filter.Config
	MaxTimeDiff      float64
	InitialTrackPool int
}

// Empty returns a Tuning with every field unset.
func Empty() *Tuning {
	return &Tuning{}
}

// Load reads and validates a JSON tuning file. The file must have a
// .json extension and be at most 1MB.
func Load(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config: file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: stat %s: %w", cleanPath, err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config: file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", cleanPath, err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that any set values are in range.
func (t *Tuning) Validate() error {
	if t.PlantNoise != nil && *t.PlantNoise <= 0 {
		return fmt.Errorf("plant_noise must be positive, got %v", *t.PlantNoise)
	}
	if t.GateThreshold != nil && *t.GateThreshold <= 0 {
		return fmt.Errorf("gate_threshold must be positive, got %v", *t.GateThreshold)
	}
	if t.MaxTimeDiff != nil && *t.MaxTimeDiff <= 0 {
		return fmt.Errorf("max_time_diff must be positive, got %v", *t.MaxTimeDiff)
	}
	if t.InitialTrackPool != nil && *t.InitialTrackPool < 0 {
		return fmt.Errorf("initial_track_pool must be non-negative, got %v", *t.InitialTrackPool)
	}
	return nil
}

// Resolve fills in every unset field with its documented default and
// builds the concrete Filter config.
func (t *Tuning) Resolve() Resolved {
	r := Resolved{
		FilterConfig: filter.Config{
			PlantNoise:    filter.DefaultPlantNoise,
			GateThreshold: filter.DefaultGateThreshold,
		},
		MaxTimeDiff:      grouper.DefaultMaxTimeDiff,
		InitialTrackPool: DefaultInitialTrackPool,
	}

	if t.PlantNoise != nil {
		r.FilterConfig.PlantNoise = *t.PlantNoise
	}
	if t.GateThreshold != nil {
		r.FilterConfig.GateThreshold = *t.GateThreshold
	}
	if t.R != nil {
		sym := mat.NewSymDense(3, nil)
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				sym.SetSym(i, j, t.R[i*3+j])
			}
		}
		r.FilterConfig.R = sym
	}
	if t.MaxTimeDiff != nil {
		r.MaxTimeDiff = *t.MaxTimeDiff
	}
	if t.InitialTrackPool != nil {
		r.InitialTrackPool = *t.InitialTrackPool
	}
	return r
}
