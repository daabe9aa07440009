package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/buildinfo"
	"github.com/matzehuels/bubblemap/pkg/cache"
	"github.com/matzehuels/bubblemap/pkg/config"
	"github.com/matzehuels/bubblemap/pkg/pipeline"
	"github.com/matzehuels/bubblemap/pkg/scene"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "bubblemap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogError = log.ErrorLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Bubblemap lays out annotation bubbles over map markers",
		Long: `Bubblemap places annotation cards ("bubbles") next to map markers so they
never overlap each other, stay inside the viewport and point at their marker
with a curved tail. Scenes describe the map, its markers and a script of
pans, zooms, drags and data updates to replay.`,
		Version:      buildinfo.Resolve().Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: "+config.Path()+")")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.simulateCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig loads the config file once per invocation.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	backend := cfg.Cache.Backend
	if noCache {
		backend = "none"
	}
	cc, err := cache.Open(ctx, backend)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", backend, "error", err)
		cc = cache.NewNullCache()
	}
	var keyer cache.Keyer
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Prefix)
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

// pipelineOptions builds run options from the config file.
func (c *CLI) pipelineOptions() (pipeline.Options, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return pipeline.Options{}, err
	}
	engine := cfg.EngineConfig()
	labels := cfg.Render.Labels
	return pipeline.Options{
		Engine:  &engine,
		Formats: cfg.Render.Formats,
		Scale:   cfg.Render.Scale,
		Labels:  &labels,
		Logger:  c.Logger,
	}, nil
}

// loadScene reads and validates a scene file.
func (c *CLI) loadScene(path string) (*scene.Scene, error) {
	sc, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded scene", "path", path, "markers", len(sc.Markers), "steps", len(sc.Script))
	return sc, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .png, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	for _, f := range config.Formats {
		if strings.TrimPrefix(ext, ".") == f {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

// formatExt maps a render format to its file extension.
func formatExt(format string) string {
	switch format {
	case config.FormatDebug:
		return ".debug.svg"
	case config.FormatDOT:
		return ".dot"
	}
	return "." + format
}

// writeFile writes data to path, creating parent directories.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
