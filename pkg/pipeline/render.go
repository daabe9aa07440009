package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/config"
	"github.com/matzehuels/bubblemap/pkg/errors"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/render"
	"github.com/matzehuels/bubblemap/pkg/render/dot"
	"github.com/matzehuels/bubblemap/pkg/render/raster"
	"github.com/matzehuels/bubblemap/pkg/render/svg"
)

// RenderFrame draws f in each of formats, or in opts.Formats when none are
// given. It does not consult any cache.
func RenderFrame(f bubble.Frame, obstacles []geom.Rect, opts Options, formats ...string) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		formats = opts.Formats
	}
	for _, format := range formats {
		if err := errors.ValidateFormat(format, config.Formats...); err != nil {
			return nil, err
		}
	}

	ro := []render.Option{
		render.WithObstacles(obstacles),
		render.WithLabels(*opts.Labels),
		render.WithScale(opts.Scale),
	}
	if opts.Hidden {
		ro = append(ro, render.WithHidden())
	}
	padding := opts.EngineConfig().Solver.Padding

	artifacts := make(map[string][]byte, len(formats))
	for _, format := range formats {
		var data []byte
		var err error

		switch format {
		case config.FormatJSON:
			data, err = json.MarshalIndent(f, "", "  ")
		case config.FormatSVG:
			data = svg.Render(f, ro...)
		case config.FormatPNG:
			data, err = raster.Render(f, ro...)
		case config.FormatDOT:
			data = []byte(dot.ToDOT(f, dot.Options{Padding: padding, Detailed: *opts.Labels}))
		case config.FormatDebug:
			data, err = dot.RenderSVG(dot.ToDOT(f, dot.Options{Padding: padding, Detailed: *opts.Labels}))
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
