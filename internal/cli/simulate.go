package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/archive"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
)

// archiveDefault is the --archive value when the flag is given bare.
const archiveDefault = "default"

// simulateCommand creates the simulate command for replaying scene scripts.
func (c *CLI) simulateCommand() *cobra.Command {
	var (
		output    string
		archiveTo string
		ttl       time.Duration
		noCache   bool
		quiet     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate [scene.yaml]",
		Short: "Replay a scene's script and record every frame",
		Long: `Replay a scene's script and record every frame.

Each step of the script (data updates, pans, zooms, resizes, drags, clicks
and waits) runs against a fresh layout engine on a virtual clock, so the
result is deterministic. The frames are written as JSON.

With --archive the run is also stored: bare --archive uses the server's
MongoDB when configured and a local directory otherwise; --archive=<dir> or
--archive=mongodb://... picks a store explicitly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("archive") {
				archiveTo = ""
			} else if archiveTo == "" {
				archiveTo = archiveDefault
			}
			return c.runSimulate(cmd.Context(), args[0], output, archiveTo, ttl, noCache, quiet)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.frames.json)")
	cmd.Flags().StringVar(&archiveTo, "archive", "", "archive the run (optionally to a directory or mongodb:// URI)")
	cmd.Flags().Lookup("archive").NoOptDefVal = archiveDefault
	cmd.Flags().DurationVar(&ttl, "ttl", archive.DefaultTTL, "how long an archived run is kept (0 = forever)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the step table")

	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, input, output, archiveTo string, ttl time.Duration, noCache, quiet bool) error {
	sc, err := c.loadScene(input)
	if err != nil {
		return err
	}
	opts, err := c.pipelineOptions()
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Replaying %d steps...", len(sc.Script)))
	spinner.Start()
	sim, err := runner.Simulate(ctx, sc, opts)
	if err != nil {
		spinner.StopWithError("Simulation failed")
		return fmt.Errorf("simulate %s: %w", input, err)
	}
	spinner.Stop()

	data, err := json.MarshalIndent(sim, "", "  ")
	if err != nil {
		return err
	}
	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".frames.json"
	}
	if err := writeFile(outputPath, data); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Simulated %d steps", sim.Stats.Steps)
	printFile(outputPath)
	printStats(len(sim.Final().Bubbles), sim.Stats.Iterations, sim.CacheHit)
	if !quiet {
		printNewline()
		fmt.Println(stepTable(sim))
	}

	if archiveTo != "" {
		id, err := c.archiveRun(ctx, sim, archiveTo, ttl)
		if err != nil {
			return err
		}
		printNewline()
		printKeyValue("Run", StyleHighlight.Render(id))
		printNextStep("Inspect", appName+" runs show "+id)
	}
	return nil
}

// archiveRun stores sim and returns the run id.
func (c *CLI) archiveRun(ctx context.Context, sim *pipeline.Simulation, location string, ttl time.Duration) (string, error) {
	store, err := c.openArchive(ctx, location)
	if err != nil {
		return "", err
	}
	defer store.Close(context.Background())

	run, err := archive.NewRun(sim, ttl)
	if err != nil {
		return "", err
	}
	if err := store.Save(ctx, run); err != nil {
		return "", fmt.Errorf("archive run: %w", err)
	}
	c.Logger.Debug("archived run", "id", run.ID, "scene", run.Scene)
	return run.ID, nil
}

// openArchive resolves an --archive location against the config file.
func (c *CLI) openArchive(ctx context.Context, location string) (archive.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if location == archiveDefault {
		location = cfg.Server.MongoURI
	}
	return archive.Open(ctx, location, cfg.Server.Database)
}

// stepTable renders one row per captured frame.
func stepTable(sim *pipeline.Simulation) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(sim.Frames))
	for _, sf := range sim.Frames {
		f := sf.Frame
		retired := ""
		if n := len(f.Retired); n > 0 {
			retired = strconv.Itoa(n)
		}
		rows = append(rows, []string{
			strconv.Itoa(sf.Step),
			sf.Kind,
			fmt.Sprintf("%d/%d", len(f.Visible()), len(f.Bubbles)),
			retired,
			strconv.FormatUint(f.Generation, 10),
			sf.Note,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Step", "Kind", "Visible", "Retired", "Gen", "Note").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 5 {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	return t.Render()
}
