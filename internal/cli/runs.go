package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/archive"
)

// runsCommand creates the runs command for inspecting archived runs.
func (c *CLI) runsCommand() *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived simulation runs",
	}
	cmd.PersistentFlags().StringVar(&location, "archive", archiveDefault, "run archive: directory or mongodb:// URI")

	open := func(ctx context.Context) (archive.Store, error) {
		return c.openArchive(ctx, location)
	}
	cmd.AddCommand(c.runsListCommand(open))
	cmd.AddCommand(c.runsShowCommand(open))
	cmd.AddCommand(c.runsDeleteCommand(open))
	cmd.AddCommand(c.runsCleanupCommand(open))

	return cmd
}

type storeOpener func(context.Context) (archive.Store, error)

func (c *CLI) runsListCommand(open storeOpener) *cobra.Command {
	var opts archive.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			runs, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No archived runs")
				return nil
			}
			fmt.Println(runTable(runs))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "only runs of this scene")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", archive.DefaultListLimit, "maximum number of runs")
	return cmd
}

func (c *CLI) runsShowCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show the steps of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sim, err := run.Decode()
			if err != nil {
				return err
			}
			printKeyValue("Run", run.ID)
			printKeyValue("Scene", run.Scene)
			printKeyValue("Created", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if !run.ExpiresAt.IsZero() {
				printKeyValue("Expires", run.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			}
			printKeyValue("Converged", strconv.FormatBool(run.Converged))
			if len(sim.Clicks) > 0 {
				printKeyValue("Clicks", fmt.Sprint(sim.Clicks))
			}
			printNewline()
			fmt.Println(stepTable(sim))
			return nil
		},
	}
}

func (c *CLI) runsDeleteCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}
}

func (c *CLI) runsCleanupCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			n, err := store.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			printSuccess("Removed %d expired runs", n)
			return nil
		},
	}
}

// runTable renders run summaries.
func runTable(runs []*archive.Run) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Scene,
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Frames),
			r.CreatedAt.Local().Format("Jan 2 15:04"),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Scene", "Steps", "Frames", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleHighlight
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}
