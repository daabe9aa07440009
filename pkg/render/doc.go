// Package render turns engine frames into pictures.
//
// # Overview
//
// A frame is the render model published by the bubble engine after every
// committed cycle. This package holds what the concrete renderers share: the
// palette, label extraction and rendering options. The renderers live in
// subpackages:
//
//   - [svg]: vector output with tapered connectors as closed paths
//   - [raster]: PNG output drawn with fogleman/gg
//   - [dot]: a Graphviz debug graph of bubbles, anchors and overlaps
//
// All renderers draw the same layers bottom to top: obstacles, connectors,
// bubbles, anchors and labels.
//
//	svg := svg.Render(frame, render.WithObstacles(rects))
//	png, err := raster.Render(frame, render.WithScale(2))
//
// [svg]: github.com/matzehuels/bubblemap/pkg/render/svg
// [raster]: github.com/matzehuels/bubblemap/pkg/render/raster
// [dot]: github.com/matzehuels/bubblemap/pkg/render/dot
package render
