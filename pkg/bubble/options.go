package bubble

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bubblemap/pkg/connector"
	"github.com/matzehuels/bubblemap/pkg/drag"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/observability"
	"github.com/matzehuels/bubblemap/pkg/solver"
	"github.com/matzehuels/bubblemap/pkg/viewport"
)

// DefaultMaxBubbles is the default retention cap.
const DefaultMaxBubbles = 20

// DefaultRetireAfter is how long a bubble may stay hidden off screen
// before it is retired.
const DefaultRetireAfter = 2 * time.Second

// Breakpoint maps a minimum viewport width to a bubble size class.
type Breakpoint struct {
	MinWidth float64   `json:"min_width" toml:"min_width" yaml:"min_width"`
	Size     geom.Size `json:"size" toml:"size" yaml:"size"`
}

// DefaultBreakpoints returns the compact and regular size classes.
func DefaultBreakpoints() []Breakpoint {
	return []Breakpoint{
		{MinWidth: 0, Size: geom.Size{W: 120, H: 44}},
		{MinWidth: 768, Size: geom.Size{W: 168, H: 60}},
	}
}

// SizeFor returns the size class for a viewport width: the breakpoint with
// the largest MinWidth not above width, or the smallest class when width
// is below every breakpoint.
func SizeFor(bps []Breakpoint, width float64) geom.Size {
	if len(bps) == 0 {
		bps = DefaultBreakpoints()
	}
	var best *Breakpoint
	for i := range bps {
		bp := &bps[i]
		if bp.MinWidth <= width && (best == nil || bp.MinWidth > best.MinWidth) {
			best = bp
		}
	}
	if best == nil {
		best = &bps[0]
		for i := range bps {
			if bps[i].MinWidth < best.MinWidth {
				best = &bps[i]
			}
		}
	}
	return best.Size
}

// Config holds the engine's tunables.
type Config struct {
	MaxBubbles    int
	Connector     connector.Options
	Solver        solver.Options
	Debounce      time.Duration
	DragThreshold float64
	Hysteresis    viewport.Hysteresis
	RetireAfter   time.Duration
	Breakpoints   []Breakpoint
	Obstacles     []geom.Rect
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxBubbles:    DefaultMaxBubbles,
		Connector:     connector.DefaultOptions(),
		Solver:        solver.DefaultOptions(),
		Debounce:      viewport.DefaultDebounce,
		DragThreshold: drag.DefaultThreshold,
		Hysteresis:    viewport.DefaultHysteresis(),
		RetireAfter:   DefaultRetireAfter,
		Breakpoints:   DefaultBreakpoints(),
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBubbles <= 0 {
		c.MaxBubbles = DefaultMaxBubbles
	}
	if len(c.Breakpoints) == 0 {
		c.Breakpoints = DefaultBreakpoints()
	}
	c.Breakpoints = slices.Clone(c.Breakpoints)
	c.Obstacles = slices.Clone(c.Obstacles)
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnFrame registers a callback receiving every committed frame.
func WithOnFrame(fn func(Frame)) Option {
	return func(e *Engine) { e.onFrame = fn }
}

// WithOnClick registers a callback for plain clicks on a bubble.
func WithOnClick(fn func(id string)) Option {
	return func(e *Engine) { e.onClick = fn }
}

// WithOnDragEnd registers a callback for finished drags, receiving the new
// anchor-relative offset.
func WithOnDragEnd(fn func(id string, offset geom.Vec)) Option {
	return func(e *Engine) { e.onDragEnd = fn }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks sets engine hooks, overriding the globally registered ones.
func WithHooks(h observability.EngineHooks) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = h
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSession sets the session identifier instead of a random one.
func WithSession(id string) Option {
	return func(e *Engine) { e.session = id }
}
