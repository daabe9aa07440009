package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bubblemap/pkg/archive"
	"github.com/matzehuels/bubblemap/pkg/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		archiveTo string
		ttl       time.Duration
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout API over HTTP.

POST a scene (YAML or JSON) to /v1/layout or /v1/simulate. When an archive
is configured (server.mongo_uri in the config file, or --archive) simulated
runs can be stored with ?archive=true and fetched from /v1/runs/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.runServe(cmd.Context(), addr, archiveTo, ttl, noCache)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from the config file)")
	cmd.Flags().StringVar(&archiveTo, "archive", "", "run archive: directory or mongodb:// URI (default: server.mongo_uri)")
	cmd.Flags().DurationVar(&ttl, "ttl", archive.DefaultTTL, "how long archived runs are kept (0 = forever)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, archiveTo string, ttl time.Duration, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if archiveTo == "" {
		archiveTo = cfg.Server.MongoURI
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := []server.Option{
		server.WithLogger(c.Logger),
		server.WithEngine(cfg.EngineConfig()),
	}
	if archiveTo != "" {
		store, err := archive.Open(ctx, archiveTo, cfg.Server.Database)
		if err != nil {
			return err
		}
		defer store.Close(context.Background())
		opts = append(opts, server.WithArchive(store, ttl))
	}

	printInfo("Serving on %s", StyleHighlight.Render(addr))
	return server.New(runner, opts...).ListenAndServe(ctx, addr)
}
