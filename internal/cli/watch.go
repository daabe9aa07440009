package cli

import (
	"context"
	"errors"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/config"
	"github.com/matzehuels/bubblemap/pkg/geom"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

// watchCommand creates the watch command for live re-rendering.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "watch [scene.yaml]",
		Short: "Re-render a scene whenever its file changes",
		Long: `Re-render a scene whenever its file changes.

The scene is loaded into a live layout engine. Every time the file is saved
its markers are reloaded and pushed to the engine as a data update, so
bubbles that survive the edit keep their place and only new bubbles are
seeded. The output file is rewritten after every committed frame.

The script is not replayed. Stop with Ctrl+C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.runWatch(cmd.Context(), args[0], output, format)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", config.FormatSVG, "output format: svg, png, json, dot, debug")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input, output, format string) error {
	opts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	opts.Formats = []string{format}
	if err := opts.ValidateForRender(); err != nil {
		return err
	}
	sc, err := c.loadScene(input)
	if err != nil {
		return err
	}
	if output == "" {
		output = basePath("", input) + formatExt(format)
	}

	w := &liveScene{cli: c, opts: opts, output: output, obstacles: sc.Obstacles}
	m := scene.NewMap(sc)
	cfg := *opts.Engine
	cfg.Obstacles = slices.Concat(cfg.Obstacles, sc.Obstacles)
	e := bubble.New(m, cfg,
		bubble.WithLogger(c.Logger),
		bubble.WithOnFrame(w.write),
	)
	loop := bubble.NewLoop(e, 0)
	defer loop.Attach(m)()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	printInfo("Watching %s", input)
	printFile(output)

	watcher := scene.NewWatcher(input, c.Logger)
	err = watcher.Watch(ctx, func(next *scene.Scene, err error) {
		if err != nil {
			printWarning("Reload failed: %v", err)
			return
		}
		if !slices.Equal(next.Obstacles, w.obstacles) {
			printWarning("Obstacle changes take effect after a restart")
		}
		m.Reload(next)
		if vp := m.Viewport(); vp.W != next.Viewport.Width || vp.H != next.Viewport.Height {
			m.Resize(next.Viewport.Width, next.Viewport.Height)
		}
		loop.Update(next.Entries(nil, nil))
		c.Logger.Debug("scene reloaded", "markers", len(next.Markers))
	})
	cancel()
	<-done
	return err
}

// liveScene writes every committed frame of a watched scene.
type liveScene struct {
	cli       *CLI
	opts      pipeline.Options
	output    string
	obstacles []geom.Rect
}

// write runs on the loop goroutine.
func (w *liveScene) write(f bubble.Frame) {
	artifacts, err := pipeline.RenderFrame(f, w.obstacles, w.opts)
	if err != nil {
		w.cli.Logger.Error("render failed", "error", err)
		return
	}
	if err := writeFile(w.output, artifacts[w.opts.Formats[0]]); err != nil {
		w.cli.Logger.Error("write failed", "path", w.output, "error", err)
		return
	}
	printSuccess("Frame %d: %d bubbles", f.Generation, len(f.Visible()))
}
