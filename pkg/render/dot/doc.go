// Package dot renders a frame as a Graphviz graph for debugging layouts.
//
// # Overview
//
// Every visible bubble becomes a box node and every anchor a point node,
// both pinned at their screen positions. A dashed edge links each bubble to
// its anchor; a red edge joins two bubbles whose padded boxes overlap,
// labelled with the overlap area. A converged layout therefore shows no red
// edges at all.
//
// # Usage
//
//	src := dot.ToDOT(frame, dot.Options{Padding: 6})
//	svg, err := dot.RenderSVG(src)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering with the neato engine, which honours pinned node positions.
package dot
