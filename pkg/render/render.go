package render

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/geom"
)

// Palette colours shared by all renderers.
const (
	ColorBackground = "#f7f5f0"
	ColorObstacle   = "#d9d4c7"
	ColorBubble     = "#ffffff"
	ColorStroke     = "#2c3e50"
	ColorDragging   = "#2980b9"
	ColorAnchor     = "#c0392b"
	ColorText       = "#2c3e50"
	ColorOverlap    = "#e74c3c"
)

// CharWidth approximates the advance of one label character in pixels.
const CharWidth = 7.0

// Options configures a renderer.
type Options struct {
	Obstacles  []geom.Rect
	Labels     bool
	ShowHidden bool
	Scale      float64
	Padding    float64
}

// Option mutates Options.
type Option func(*Options)

// WithObstacles draws the host's obstacle regions.
func WithObstacles(rs []geom.Rect) Option { return func(o *Options) { o.Obstacles = rs } }

// WithLabels toggles bubble labels.
func WithLabels(on bool) Option { return func(o *Options) { o.Labels = on } }

// WithHidden draws hidden bubbles faintly instead of skipping them.
func WithHidden() Option { return func(o *Options) { o.ShowHidden = true } }

// WithScale sets the raster scale factor.
func WithScale(s float64) Option { return func(o *Options) { o.Scale = s } }

// WithPadding sets the gap below which two bubbles count as overlapping in
// debug output.
func WithPadding(p float64) Option { return func(o *Options) { o.Padding = p } }

// Apply returns the defaults overridden by opts.
func Apply(opts ...Option) Options {
	o := Options{Labels: true, Scale: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	return o
}

// Drawn returns the views a renderer should draw.
func (o Options) Drawn(f bubble.Frame) []bubble.View {
	if o.ShowHidden {
		return f.Bubbles
	}
	return f.Visible()
}

// Label returns the text shown on a bubble: the payload's "title" or
// "name" when present, the id otherwise.
func Label(v bubble.View) string {
	if m, ok := v.Payload.(map[string]any); ok {
		for _, k := range []string{"title", "name"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return v.ID
}

// Fit shortens s with an ellipsis so that it spans at most width pixels.
func Fit(s string, width float64) string {
	max := int(width / CharWidth)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// RGB parses a "#rrggbb" colour into components in [0, 1].
func RGB(hex string) (r, g, b float64, err error) {
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return float64(v>>16&0xff) / 255, float64(v>>8&0xff) / 255, float64(v&0xff) / 255, nil
}

// Overlap is a pair of bubbles whose padded boxes intersect.
type Overlap struct {
	A, B string
	Area float64
}

// Overlaps lists the intersecting pairs of visible bubbles in frame order.
func Overlaps(f bubble.Frame, pad float64) []Overlap {
	vs := f.Visible()
	var out []Overlap
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			if a := vs[i].Rect().OverlapArea(vs[j].Rect(), pad); a > 0 {
				out = append(out, Overlap{A: vs[i].ID, B: vs[j].ID, Area: a})
			}
		}
	}
	return out
}
