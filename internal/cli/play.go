package cli

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/bubble"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

// playCommand creates the play command for the interactive terminal view.
func (c *CLI) playCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play [scene.yaml]",
		Short: "Explore a scene interactively in the terminal",
		Long: `Explore a scene interactively in the terminal.

The map is drawn as a character grid. Pan with the arrow keys, zoom with
+ and -, and drag bubbles with the mouse. A dragged bubble keeps its offset
from its marker while the map moves; press r to hand the last dragged
bubble back to the layout solver.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlay(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runPlay(ctx context.Context, input string) error {
	sc, err := c.loadScene(input)
	if err != nil {
		return err
	}
	opts, err := c.pipelineOptions()
	if err != nil {
		return err
	}
	cfg := *opts.Engine
	cfg.Obstacles = slices.Concat(cfg.Obstacles, sc.Obstacles)

	// The TUI owns the terminal; keep log lines out of it.
	c.SetLogLevel(LogError)
	model := NewPlayModel(sc, scene.NewMap(sc), cfg, bubble.WithLogger(c.Logger))

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
