// Package svg renders engine frames as standalone SVG documents.
//
// Connectors are emitted as single closed paths, so the two edges of a tail
// share one tip vertex in the output exactly as they do in the model.
package svg

import (
	"bytes"
	"fmt"
	"html"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/render"
)

const bubbleCSS = `
    .bubble { fill: ` + render.ColorBubble + `; stroke: ` + render.ColorStroke + `; stroke-width: 1.5; }
    .bubble.dragging { stroke: ` + render.ColorDragging + `; stroke-width: 2.5; }
    .bubble.hidden, .tail.hidden { opacity: 0.25; }
    .tail { fill: ` + render.ColorBubble + `; stroke: ` + render.ColorStroke + `; stroke-width: 1.5; stroke-linejoin: round; }
    .anchor { fill: ` + render.ColorAnchor + `; }
    .obstacle { fill: ` + render.ColorObstacle + `; }
    .label { font: 12px sans-serif; fill: ` + render.ColorText + `; dominant-baseline: middle; text-anchor: middle; }`

// Render draws f. The document size equals the frame's viewport.
func Render(f bubble.Frame, opts ...render.Option) []byte {
	o := render.Apply(opts...)
	vp := f.Viewport
	views := o.Drawn(f)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		vp.X, vp.Y, vp.W, vp.H, vp.W, vp.H)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", bubbleCSS)
	fmt.Fprintf(&buf, `  <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`+"\n",
		vp.X, vp.Y, vp.W, vp.H, render.ColorBackground)

	for _, r := range o.Obstacles {
		fmt.Fprintf(&buf, `  <rect class="obstacle" x="%.2f" y="%.2f" width="%.2f" height="%.2f"/>`+"\n", r.X, r.Y, r.W, r.H)
	}

	// Tails go under their bubbles so the base seam is covered.
	for _, v := range views {
		fmt.Fprintf(&buf, `  <path class="%s" data-bubble="%s" d="%s"/>`+"\n",
			classes("tail", v), html.EscapeString(v.ID), v.Connector.SVG())
	}
	for _, v := range views {
		fmt.Fprintf(&buf, `  <rect class="%s" id="bubble-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="6"/>`+"\n",
			classes("bubble", v), html.EscapeString(v.ID), v.Position.X, v.Position.Y, v.Size.W, v.Size.H)
	}
	for _, v := range views {
		fmt.Fprintf(&buf, `  <circle class="anchor" cx="%.2f" cy="%.2f" r="%.2f"/>`+"\n",
			v.Anchor.Center.X, v.Anchor.Center.Y, v.Anchor.Radius)
	}
	if o.Labels {
		for _, v := range views {
			c := v.Rect().Center()
			label := render.Fit(render.Label(v), v.Size.W-12)
			fmt.Fprintf(&buf, `  <text class="label" x="%.2f" y="%.2f">%s</text>`+"\n", c.X, c.Y, html.EscapeString(label))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func classes(base string, v bubble.View) string {
	switch {
	case v.Hidden:
		return base + " hidden"
	case v.Dragging && base == "bubble":
		return base + " dragging"
	}
	return base
}
