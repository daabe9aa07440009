package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file (single frame and format) or base path
	formats string // comma-separated output formats
	step    int    // script step to render; -1 selects the final frame
	all     bool   // render every step
	hidden  bool   // draw hidden bubbles as outlines
	noLabel bool   // omit payload labels
	noCache bool
}

// renderCommand creates the render command for drawing scene frames.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{step: -1}

	cmd := &cobra.Command{
		Use:   "render [scene.yaml]",
		Short: "Render a scene's bubbles as SVG, PNG, DOT or JSON",
		Long: `Render a scene's bubbles as SVG, PNG, DOT or JSON.

The scene's script is replayed first; by default the frame after the last
step is rendered. Use --step to pick another step or --all to render one
file per step. The "debug" format lays the frame out as a Graphviz graph
with overlaps highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single frame and format) or base path")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg, png, json, dot, debug (comma-separated)")
	cmd.Flags().IntVar(&opts.step, "step", opts.step, "render the frame after this script step (0 = initial load)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "render every step")
	cmd.Flags().BoolVar(&opts.hidden, "hidden", false, "draw hidden bubbles as outlines")
	cmd.Flags().BoolVar(&opts.noLabel, "no-labels", false, "omit bubble labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, ro *renderOpts) error {
	sc, err := c.loadScene(input)
	if err != nil {
		return err
	}
	opts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	if f := parseFormats(ro.formats); len(f) > 0 {
		opts.Formats = f
	}
	if ro.noLabel {
		off := false
		opts.Labels = &off
	}
	opts.Hidden = ro.hidden
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	sim, err := runner.Simulate(ctx, sc, opts)
	if err != nil {
		return fmt.Errorf("simulate %s: %w", input, err)
	}

	frames, err := selectFrames(sim, ro)
	if err != nil {
		return err
	}

	base := basePath(ro.output, input)
	single := len(frames) == 1 && len(opts.Formats) == 1 && ro.output != "" && base != ro.output
	var written []string
	for _, sf := range frames {
		artifacts, err := runner.Render(ctx, sc, sf.Frame, opts)
		if err != nil {
			return fmt.Errorf("render step %d: %w", sf.Step, err)
		}
		for _, format := range opts.Formats {
			path := ro.output
			if !single {
				path = base
				if ro.all {
					path = fmt.Sprintf("%s_%04d", base, sf.Step)
				}
				path += formatExt(format)
			}
			if err := writeFile(path, artifacts[format]); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	prog.done(fmt.Sprintf("Rendered %d frame(s)", len(frames)))

	printSuccess("Rendered %s", filepath.Base(input))
	for _, p := range written {
		printFile(p)
	}
	last := frames[len(frames)-1].Frame
	printStats(len(last.Visible()), sim.Stats.Iterations, sim.CacheHit)
	return nil
}

// selectFrames picks the step frames requested by ro.
func selectFrames(sim *pipeline.Simulation, ro *renderOpts) ([]pipeline.StepFrame, error) {
	if len(sim.Frames) == 0 {
		return nil, fmt.Errorf("scene produced no frames")
	}
	switch {
	case ro.all:
		return sim.Frames, nil
	case ro.step < 0:
		return sim.Frames[len(sim.Frames)-1:], nil
	}
	i := slices.IndexFunc(sim.Frames, func(sf pipeline.StepFrame) bool { return sf.Step == ro.step })
	if i < 0 {
		return nil, fmt.Errorf("no frame for step %d (scene has %d steps)", ro.step, sim.Stats.Steps)
	}
	return sim.Frames[i : i+1], nil
}
