// Package raster renders engine frames as PNG images using fogleman/gg.
//
// The drawing runs entirely in process; no external converter is needed.
// Tails are filled from [connector.Path.Polygon], which samples both edges
// and emits the shared tip once.
package raster

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fogleman/gg"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/render"
)

// tailSamples is the number of polygon steps per tail edge.
const tailSamples = 16

// Render draws f as a PNG scaled by the Scale option.
func Render(f bubble.Frame, opts ...render.Option) ([]byte, error) {
	o := render.Apply(opts...)
	vp := f.Viewport
	w := int(math.Ceil(vp.W * o.Scale))
	h := int(math.Ceil(vp.H * o.Scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty viewport %v", vp)
	}

	dc := gg.NewContext(w, h)
	dc.Scale(o.Scale, o.Scale)
	dc.Translate(-vp.X, -vp.Y)

	dc.SetHexColor(render.ColorBackground)
	dc.DrawRectangle(vp.X, vp.Y, vp.W, vp.H)
	dc.Fill()

	dc.SetHexColor(render.ColorObstacle)
	for _, r := range o.Obstacles {
		dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		dc.Fill()
	}

	views := o.Drawn(f)
	for _, v := range views {
		poly := v.Connector.Polygon(tailSamples)
		if len(poly) < 3 {
			continue
		}
		dc.NewSubPath()
		dc.MoveTo(poly[0].X, poly[0].Y)
		for _, p := range poly[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		fill(dc, v, render.ColorBubble)
		stroke(dc, v, render.ColorStroke, 1.5)
	}

	for _, v := range views {
		dc.DrawRoundedRectangle(v.Position.X, v.Position.Y, v.Size.W, v.Size.H, 6)
		fill(dc, v, render.ColorBubble)
		if v.Dragging {
			stroke(dc, v, render.ColorDragging, 2.5)
		} else {
			stroke(dc, v, render.ColorStroke, 1.5)
		}
	}

	dc.SetHexColor(render.ColorAnchor)
	for _, v := range views {
		dc.DrawCircle(v.Anchor.Center.X, v.Anchor.Center.Y, v.Anchor.Radius)
		dc.Fill()
	}

	if o.Labels {
		for _, v := range views {
			c := v.Rect().Center()
			setColor(dc, v, render.ColorText)
			dc.DrawStringAnchored(render.Fit(render.Label(v), v.Size.W-12), c.X, c.Y, 0.5, 0.5)
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func setColor(dc *gg.Context, v bubble.View, hex string) {
	r, g, b, err := render.RGB(hex)
	if err != nil {
		return
	}
	a := 1.0
	if v.Hidden {
		a = 0.25
	}
	dc.SetRGBA(r, g, b, a)
}

func fill(dc *gg.Context, v bubble.View, hex string) {
	setColor(dc, v, hex)
	dc.FillPreserve()
}

func stroke(dc *gg.Context, v bubble.View, hex string, width float64) {
	setColor(dc, v, hex)
	dc.SetLineWidth(width)
	dc.Stroke()
}
