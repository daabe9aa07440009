package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/render"
)

// pointsPerInch converts screen pixels to Graphviz sizes.
const pointsPerInch = 72.0

// Options configures debug graph generation.
type Options struct {
	// Padding is the gap below which two bubbles count as overlapping.
	Padding float64

	// Detailed adds priority and position to bubble labels.
	Detailed bool
}

// ToDOT converts a frame to Graphviz DOT source. Graphviz's y axis points
// up, so screen coordinates are flipped against the viewport height.
func ToDOT(f bubble.Frame, opts Options) string {
	var buf bytes.Buffer
	vp := f.Viewport
	flip := func(y float64) float64 { return vp.Y + vp.H - y }

	buf.WriteString("graph bubbles {\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", render.ColorBackground)
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  node [fontname=\"Helvetica\", fontsize=10, fixedsize=true];\n")
	fmt.Fprintf(&buf, "  frame [shape=box, style=dotted, label=\"\", width=%.3f, height=%.3f, pos=\"%.2f,%.2f!\"];\n",
		vp.W/pointsPerInch, vp.H/pointsPerInch, vp.X+vp.W/2, flip(vp.Y+vp.H/2))
	buf.WriteString("\n")

	views := f.Visible()
	for _, v := range views {
		c := v.Rect().Center()
		style := `"rounded,filled"`
		color := render.ColorStroke
		if v.Dragging {
			color = render.ColorDragging
		}
		fmt.Fprintf(&buf, "  %q [shape=box, style=%s, fillcolor=%q, color=%q, label=%q, width=%.3f, height=%.3f, pos=\"%.2f,%.2f!\"];\n",
			"b:"+v.ID, style, render.ColorBubble, color, label(v, opts.Detailed),
			v.Size.W/pointsPerInch, v.Size.H/pointsPerInch, c.X, flip(c.Y))
		d := 2 * v.Anchor.Radius / pointsPerInch
		fmt.Fprintf(&buf, "  %q [shape=circle, style=filled, fillcolor=%q, color=%q, label=\"\", width=%.3f, height=%.3f, pos=\"%.2f,%.2f!\"];\n",
			"a:"+v.ID, render.ColorAnchor, render.ColorAnchor, d, d, v.Anchor.Center.X, flip(v.Anchor.Center.Y))
	}

	buf.WriteString("\n")
	for _, v := range views {
		fmt.Fprintf(&buf, "  %q -- %q [style=dashed, color=%q];\n", "b:"+v.ID, "a:"+v.ID, render.ColorStroke)
	}
	for _, o := range render.Overlaps(f, opts.Padding) {
		fmt.Fprintf(&buf, "  %q -- %q [color=%q, penwidth=2, label=\"%.0f\"];\n", "b:"+o.A, "b:"+o.B, render.ColorOverlap, o.Area)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func label(v bubble.View, detailed bool) string {
	l := render.Fit(render.Label(v), v.Size.W-8)
	if !detailed {
		return l
	}
	return fmt.Sprintf("%s\np%d @ %.0f,%.0f", l, v.Priority, v.Position.X, v.Position.Y)
}

// RenderSVG lays out DOT source with neato and renders it to SVG.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a
// pixel-sized one so the output scales like the other renderers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
