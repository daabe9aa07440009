package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// layoutCommand creates the layout command for computing the initial layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "layout [scene.yaml]",
		Short: "Compute the initial bubble layout of a scene",
		Long: `Compute the initial bubble layout of a scene.

The layout command loads every marker of the scene, places one bubble per
marker and writes the resulting frame as JSON. The scene's script is ignored;
use 'simulate' to replay it.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache, refresh)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute and overwrite cached results")

	return cmd
}

// runLayout loads the scene, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, noCache, refresh bool) error {
	sc, err := c.loadScene(input)
	if err != nil {
		return err
	}
	opts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	opts.Refresh = refresh

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()
	frame, cacheHit, err := runner.Layout(ctx, sc, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	data, err := json.MarshalIndent(frame, "", "  ")
	if err != nil {
		return err
	}
	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".layout.json"
	}
	if err := writeFile(outputPath, data); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(frame.Bubbles), frame.Stats.Iterations, cacheHit)
	if !frame.Stats.Converged {
		printWarning("Solver stopped at the iteration cap with %.1f px² of overlap left", frame.Stats.Overlap)
	}
	printNewline()
	printNextStep("Render", appName+" render "+input)

	return nil
}
