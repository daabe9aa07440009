// Package config loads and saves the bubblemap configuration file.
//
// The file lives at $XDG_CONFIG_HOME/bubblemap/config.toml (falling back to
// ~/.config) and is optional: a missing file yields [Default]. Unknown keys
// are rejected so that misspelled settings surface as errors instead of
// being ignored.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/connector"
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/errors"
	"github.com/matzehuels/bubblemap/pkg/solver"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// Output formats understood by the renderers.
const (
	FormatJSON = "json"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatDOT  = "dot"

	// FormatDebug is the Graphviz debug graph rendered to SVG.
	FormatDebug = "debug"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatSVG, FormatPNG, FormatDOT, FormatDebug}

// DefaultAddr is the default listen address of the HTTP API.
const DefaultAddr = ":8080"

// Duration is a time.Duration written as a string such as "120ms".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the complete configuration file.
type Config struct {
	Engine      EngineConfig        `toml:"engine"`
	Breakpoints []bubble.Breakpoint `toml:"breakpoints"`
	Render      RenderConfig        `toml:"render"`
	Cache       CacheConfig         `toml:"cache"`
	Server      ServerConfig        `toml:"server"`
}

// EngineConfig holds the layout engine tunables.
type EngineConfig struct {
	MaxBubbles    int      `toml:"max_bubbles"`
	Standoff      float64  `toml:"standoff"`
	TailWidth     float64  `toml:"tail_width"`
	TailBend      float64  `toml:"tail_bend"`
	Padding       float64  `toml:"padding"`
	Margin        float64  `toml:"margin"`
	MaxIterations int      `toml:"max_iterations"`
	Threshold     float64  `toml:"threshold"`
	Stiffness     float64  `toml:"stiffness"`
	SpiralRadius  float64  `toml:"spiral_radius"`
	SpiralStep    float64  `toml:"spiral_step"`
	CrowdRadius   float64  `toml:"crowd_radius"`
	Debounce      Duration `toml:"debounce"`
	DragThreshold float64  `toml:"drag_threshold"`
	HideMargin    float64  `toml:"hide_margin"`
	ShowMargin    float64  `toml:"show_margin"`
	RetireAfter   Duration `toml:"retire_after"`
}

// RenderConfig controls artifact rendering.
type RenderConfig struct {
	Formats []string `toml:"formats"`
	Scale   float64  `toml:"scale"`
	Labels  bool     `toml:"labels"`
}

// CacheConfig selects the frame cache backend: "none", a directory, or a
// redis:// URL.
type CacheConfig struct {
	Backend string `toml:"backend"`
	Prefix  string `toml:"prefix,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	MongoURI string `toml:"mongo_uri,omitempty"`
	Database string `toml:"database,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	so := solver.DefaultOptions()
	co := connector.DefaultOptions()
	h := viewport.DefaultHysteresis()
	return &Config{
		Engine: EngineConfig{
			MaxBubbles:    bubble.DefaultMaxBubbles,
			Standoff:      co.Standoff,
			TailWidth:     co.BaseWidth,
			TailBend:      co.Bend,
			Padding:       so.Padding,
			Margin:        so.Margin,
			MaxIterations: so.MaxIterations,
			Threshold:     so.Threshold,
			Stiffness:     so.Stiffness,
			SpiralRadius:  so.SpiralRadius,
			SpiralStep:    so.SpiralStep,
			CrowdRadius:   so.CrowdRadius,
			Debounce:      Duration(viewport.DefaultDebounce),
			DragThreshold: drag.DefaultThreshold,
			HideMargin:    h.Hide,
			ShowMargin:    h.Show,
			RetireAfter:   Duration(bubble.DefaultRetireAfter),
		},
		Breakpoints: bubble.DefaultBreakpoints(),
		Render:      RenderConfig{Formats: []string{FormatSVG}, Scale: 2, Labels: true},
		Cache:       CacheConfig{Backend: DefaultCacheDir()},
		Server:      ServerConfig{Addr: DefaultAddr, Database: "bubblemap"},
	}
}

// Dir returns the bubblemap config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "bubblemap")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultCacheDir returns the file cache directory.
func DefaultCacheDir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "bubblemap")
}

// Load reads the config file at path, or at [Path] when path is empty.
// Missing files yield the defaults; settings absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := cfg.decode(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a config document over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	// An explicit [[breakpoints]] list replaces the defaults instead of
	// appending to them.
	c.Breakpoints = nil
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if len(c.Breakpoints) == 0 {
		c.Breakpoints = bubble.DefaultBreakpoints()
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Save writes the config to path, or to [Path] when path is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = Path()
	}
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Encode renders the config as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.MaxBubbles <= 0:
		return invalid("engine.max_bubbles must be positive")
	case e.MaxIterations <= 0:
		return invalid("engine.max_iterations must be positive")
	case e.Threshold <= 0:
		return invalid("engine.threshold must be positive")
	case e.Stiffness <= 0 || e.Stiffness > 1:
		return invalid("engine.stiffness must be in (0, 1]")
	case e.Padding < 0 || e.Margin < 0 || e.Standoff < 0 || e.TailWidth < 0:
		return invalid("engine distances must not be negative")
	case e.SpiralRadius < 0 || e.SpiralStep < 0 || e.CrowdRadius < 0:
		return invalid("engine spiral parameters must not be negative")
	case e.Debounce < 0 || e.RetireAfter < 0:
		return invalid("engine durations must not be negative")
	case e.DragThreshold < 0:
		return invalid("engine.drag_threshold must not be negative")
	case e.HideMargin < 0 || e.ShowMargin < 0:
		return invalid("engine hysteresis margins must not be negative")
	case e.ShowMargin > e.HideMargin:
		return invalid("engine.show_margin must not exceed engine.hide_margin")
	}
	for i, bp := range c.Breakpoints {
		if bp.MinWidth < 0 || bp.Size.W <= 0 || bp.Size.H <= 0 {
			return invalid("breakpoints[%d] needs a non-negative min_width and a positive size", i)
		}
	}
	for _, f := range c.Render.Formats {
		if err := errors.ValidateFormat(f, Formats...); err != nil {
			return err
		}
	}
	if c.Render.Scale <= 0 {
		return invalid("render.scale must be positive")
	}
	if b := c.Cache.Backend; strings.Contains(b, "://") {
		if err := errors.ValidateURL(b, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.backend")
		}
	}
	if u := c.Server.MongoURI; u != "" {
		if err := errors.ValidateURL(u, "mongodb", "mongodb+srv"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "server.mongo_uri")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}

// EngineConfig converts the file settings into an engine configuration.
func (c *Config) EngineConfig() bubble.Config {
	e := c.Engine
	return bubble.Config{
		MaxBubbles: e.MaxBubbles,
		Connector: connector.Options{
			Standoff:  e.Standoff,
			BaseWidth: e.TailWidth,
			Bend:      e.TailBend,
		},
		Solver: solver.Options{
			Margin:        e.Margin,
			Padding:       e.Padding,
			MaxIterations: e.MaxIterations,
			Threshold:     e.Threshold,
			Stiffness:     e.Stiffness,
			SpiralRadius:  e.SpiralRadius,
			SpiralStep:    e.SpiralStep,
			CrowdRadius:   e.CrowdRadius,
		},
		Debounce:      time.Duration(e.Debounce),
		DragThreshold: e.DragThreshold,
		Hysteresis:    viewport.Hysteresis{Hide: e.HideMargin, Show: e.ShowMargin},
		RetireAfter:   time.Duration(e.RetireAfter),
		Breakpoints:   slices.Clone(c.Breakpoints),
	}
}
