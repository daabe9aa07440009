// Package connector builds the tapered tail that links a bubble to its
// anchor marker.
//
// A tail is two cubic Bezier segments, one per edge of the taper. Both
// segments start on the bubble edge facing the anchor, half a base width
// apart, and end at the same tip coordinate:
//
//	tip = anchor + normalize(bubbleCenter - anchor) * (radius + standoff)
//
// The tip is a single shared value, so the two edges meet exactly instead of
// merely ending close to each other.
package connector

import (
	"fmt"
	"strings"

	"github.com/matzehuels/bubblemap/pkg/geom"
)

// Default tail geometry.
const (
	DefaultStandoff  = 6.0
	DefaultBaseWidth = 14.0
	DefaultBend      = 0.12
)

// Options configures tail geometry.
type Options struct {
	// Standoff is the gap between the anchor's visual edge and the tip.
	Standoff float64

	// BaseWidth is the width of the tail where it meets the bubble.
	BaseWidth float64

	// Bend curves both edges sideways by this fraction of the tail length.
	// Zero yields a straight wedge.
	Bend float64
}

// DefaultOptions returns the default tail geometry.
func DefaultOptions() Options {
	return Options{Standoff: DefaultStandoff, BaseWidth: DefaultBaseWidth, Bend: DefaultBend}
}

// Path is the geometry of one tail.
type Path struct {
	Left  geom.Cubic `json:"left" bson:"left"`
	Right geom.Cubic `json:"right" bson:"right"`
	Tip   geom.Vec   `json:"tip" bson:"tip"`
	Base  geom.Vec   `json:"base" bson:"base"`
}

// Build computes the tail from a bubble rectangle to an anchor of the given
// radius. When the bubble centre coincides with the anchor the tail points
// along [geom.Up].
func Build(anchor geom.Vec, radius float64, bubble geom.Rect, opts Options) Path {
	out := bubble.Center().Sub(anchor).Normalize()
	tip := anchor.Add(out.Scale(radius + opts.Standoff))

	base := bubble.Exit(out.Scale(-1))
	side := out.Perp().Scale(opts.BaseWidth / 2)

	length := base.Dist(tip)
	bend := out.Perp().Scale(opts.Bend * length)
	inward := out.Scale(-length / 3)

	left0 := base.Add(side)
	right0 := base.Sub(side)

	return Path{
		Left: geom.Cubic{
			P0: left0,
			P1: left0.Add(inward).Add(bend),
			P2: tip.Sub(inward).Add(side.Scale(0.25)).Add(bend),
			P3: tip,
		},
		Right: geom.Cubic{
			P0: right0,
			P1: right0.Add(inward).Add(bend),
			P2: tip.Sub(inward).Sub(side.Scale(0.25)).Add(bend),
			P3: tip,
		},
		Tip:  tip,
		Base: base,
	}
}

// SVG returns the closed taper outline as SVG path data: along the left
// edge to the tip, then back along the right edge.
func (p Path) SVG() string {
	var b strings.Builder
	r := p.Right.Reverse()
	fmt.Fprintf(&b, "M%s C%s %s %s C%s %s %s Z",
		pt(p.Left.P0), pt(p.Left.P1), pt(p.Left.P2), pt(p.Left.P3),
		pt(r.P1), pt(r.P2), pt(r.P3))
	return b.String()
}

func pt(v geom.Vec) string { return fmt.Sprintf("%.2f,%.2f", v.X, v.Y) }

// Polygon samples the taper outline with n steps per edge. The tip appears
// once, shared by both edges.
func (p Path) Polygon(n int) []geom.Vec {
	left := p.Left.Sample(n)
	right := p.Right.Sample(n)
	poly := make([]geom.Vec, 0, len(left)+len(right)-1)
	poly = append(poly, left...)
	for i := len(right) - 2; i >= 0; i-- {
		poly = append(poly, right[i])
	}
	return poly
}

// Unified reports whether both edges terminate at the tip exactly.
func (p Path) Unified() bool {
	return p.Left.P3 == p.Tip && p.Right.P3 == p.Tip
}
