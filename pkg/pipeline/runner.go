package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/cache"
	"github.com/matzehuels/bubblemap/pkg/observability"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so caching behaves the same everywhere.
//
// The Runner is stateless except for the cache and logger; multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// SceneHash returns the content hash of a scene.
func SceneHash(sc *scene.Scene) (string, error) {
	data, err := sc.Marshal()
	if err != nil {
		return "", fmt.Errorf("serialize scene: %w", err)
	}
	return cache.Hash(data), nil
}

// EngineHash returns the content hash of an engine configuration.
func EngineHash(cfg bubble.Config) string {
	data, _ := json.Marshal(cfg)
	return cache.Hash(data)
}

// sessionFor derives a stable session id from the scene hash.
func sessionFor(sceneHash string) string {
	return "sim-" + sceneHash[:12]
}

// Simulate replays a scene with caching. Cached simulations are keyed by
// the scene content and the engine configuration.
func (r *Runner) Simulate(ctx context.Context, sc *scene.Scene, opts Options) (sim *Simulation, err error) {
	opts.SetDefaults()
	r.applyLogger(&opts)

	start := time.Now()
	observability.Pipeline().OnSimulateStart(ctx, sc.Name, len(sc.Script))
	defer func() {
		frames := 0
		if sim != nil {
			frames = len(sim.Frames)
		}
		observability.Pipeline().OnSimulateComplete(ctx, sc.Name, frames, time.Since(start), err)
	}()

	hash, err := SceneHash(sc)
	if err != nil {
		return nil, err
	}
	cfg := opts.EngineConfig()
	key := r.Keyer.FrameKey(hash, cache.FrameKeyOpts{
		EngineHash: EngineHash(cfg),
		Steps:      len(sc.Script),
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var cached Simulation
			if err := json.Unmarshal(data, &cached); err == nil {
				cached.CacheHit = true
				r.Logger.Debug("simulation cache hit", "scene", sc.Name, "frames", len(cached.Frames))
				return &cached, nil
			}
			// If deserialization fails, fall through to recompute
		}
	}

	sim, err = Simulate(ctx, sc, sessionFor(hash), opts)
	if err != nil {
		return nil, err
	}
	sim.SceneHash = hash

	if data, err := json.Marshal(sim); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.FrameTTL); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		}
	}

	r.Logger.Info("simulated scene",
		"scene", sc.Name,
		"steps", sim.Stats.Steps,
		"frames", len(sim.Frames),
		"iterations", sim.Stats.Iterations,
		"converged", sim.Stats.Converged,
		"duration", time.Since(start))
	return sim, nil
}

// Layout computes the initial layout of a scene, ignoring its script.
func (r *Runner) Layout(ctx context.Context, sc *scene.Scene, opts Options) (bubble.Frame, bool, error) {
	opts.SetDefaults()
	r.applyLogger(&opts)

	still := *sc
	still.Script = nil
	hash, err := SceneHash(&still)
	if err != nil {
		return bubble.Frame{}, false, err
	}
	key := r.Keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		EngineHash: EngineHash(opts.EngineConfig()),
		Width:      sc.Viewport.Width,
		Height:     sc.Viewport.Height,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var f bubble.Frame
			if err := json.Unmarshal(data, &f); err == nil {
				return f, true, nil
			}
		}
	}

	sim, err := Simulate(ctx, &still, sessionFor(hash), opts)
	if err != nil {
		return bubble.Frame{}, false, err
	}
	f := sim.Final()
	if data, err := json.Marshal(f); err == nil {
		_ = r.Cache.Set(ctx, key, data, cache.LayoutTTL)
	}
	return f, false, nil
}

// Render draws a frame of sc in every requested format with caching.
func (r *Runner) Render(ctx context.Context, sc *scene.Scene, f bubble.Frame, opts Options) (artifacts map[string][]byte, err error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	defer func() {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	}()

	frameData, err := json.Marshal(struct {
		Frame     bubble.Frame `json:"frame"`
		Obstacles any          `json:"obstacles"`
	}{f, sc.Obstacles})
	if err != nil {
		return nil, fmt.Errorf("serialize frame for cache key: %w", err)
	}
	frameHash := cache.Hash(frameData)

	artifacts = make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(frameHash, opts.artifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit && !opts.Refresh {
			artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}
	if len(missing) == 0 {
		return artifacts, nil
	}

	rendered, err := RenderFrame(f, sc.Obstacles, opts, missing...)
	if err != nil {
		return nil, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(frameHash, opts.artifactKeyOpts(format))
		_ = r.Cache.Set(ctx, key, data, cache.ArtifactTTL)
	}

	r.Logger.Debug("rendered frame",
		"generation", f.Generation,
		"formats", missing,
		"duration", time.Since(start))
	return artifacts, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (o *Options) artifactKeyOpts(format string) cache.ArtifactKeyOpts {
	theme := "labels"
	if o.Labels != nil && !*o.Labels {
		theme = "plain"
	}
	if o.Hidden {
		theme += "+hidden"
	}
	ko := cache.ArtifactKeyOpts{Format: format, Theme: theme}
	if format == "png" {
		ko.Scale = o.Scale
	}
	return ko
}
