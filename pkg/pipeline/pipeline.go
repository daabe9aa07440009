// Package pipeline runs scenes through the bubble engine and renders the
// resulting frames.
//
// This package implements the scene → simulate → render pipeline shared by
// the CLI and the HTTP API. By centralizing this logic, both entry points
// cache, log and report the same way.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Simulate: Replay a scene's script against an engine on a virtual
//     clock, capturing one frame per step
//  2. Render: Draw a frame as JSON, SVG, PNG or a Graphviz debug graph
//
// Simulation is deterministic: the clock is virtual and the session id is
// derived from the scene, so equal inputs produce byte-identical frames.
// That is what makes the results cacheable.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	sim, err := runner.Simulate(ctx, sc, pipeline.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	artifacts, err := runner.Render(ctx, sc, sim.Final(), pipeline.Options{
//	    Formats: []string{"svg", "png"},
//	})
package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/config"
	"github.com/matzehuels/bubblemap/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultScale is the raster scale factor.
	DefaultScale = 2.0

	// DefaultDragSteps is the number of pointer moves a scripted drag
	// is split into.
	DefaultDragSteps = 4
)

// Epoch is the virtual clock's start time.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// =============================================================================
// Options
// =============================================================================

// Options configures a pipeline run.
type Options struct {
	// Engine configures the layout engine. The zero value selects
	// [bubble.DefaultConfig].
	Engine *bubble.Config `json:"engine,omitempty"`

	// FrameInterval is the virtual tick period.
	FrameInterval time.Duration `json:"frame_interval,omitempty"`

	Formats []string `json:"formats,omitempty"`
	Scale   float64  `json:"scale,omitempty"`
	Labels  *bool    `json:"labels,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`
	Refresh bool     `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// EngineConfig returns the effective engine configuration.
func (o *Options) EngineConfig() bubble.Config {
	if o.Engine == nil {
		return bubble.DefaultConfig()
	}
	return *o.Engine
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{config.FormatSVG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = bubble.DefaultFrameInterval
	}
	if o.Labels == nil {
		on := true
		o.Labels = &on
	}
}

// ValidateForRender applies defaults and checks the requested formats.
func (o *Options) ValidateForRender() error {
	o.SetDefaults()
	for _, f := range o.Formats {
		if err := errors.ValidateFormat(f, config.Formats...); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// StepFrame is the frame committed after one script step. Step 0 is the
// initial data load.
type StepFrame struct {
	Step  int          `json:"step"`
	Kind  string       `json:"kind"`
	Note  string       `json:"note,omitempty"`
	Frame bubble.Frame `json:"frame"`
}

// Simulation is the outcome of replaying a scene.
type Simulation struct {
	Scene     string      `json:"scene"`
	SceneHash string      `json:"scene_hash"`
	Frames    []StepFrame `json:"frames"`
	Clicks    []string    `json:"clicks,omitempty"`
	Stats     Stats       `json:"stats"`
	CacheHit  bool        `json:"-"`
}

// Final returns the last captured frame.
func (s *Simulation) Final() bubble.Frame {
	if len(s.Frames) == 0 {
		return bubble.Frame{}
	}
	return s.Frames[len(s.Frames)-1].Frame
}

// Stats summarises a simulation.
type Stats struct {
	Steps      int           `json:"steps"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Retired    int           `json:"retired"`
	Virtual    time.Duration `json:"virtual"`
}
