package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/graphpad/graphpad/pkg/bridge"
	"github.com/graphpad/graphpad/pkg/engine"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	listen  string // override config listen address
	noCache bool   // bypass the render cache
}

// serveCommand creates the serve command running the editor bridge.
//
// Each WebSocket connection gets its own Graphviz instance and render
// coordinator, so concurrent editor sessions never block one another.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket bridge for editor frontends",
		Long: `Run the WebSocket bridge that editor frontends connect to.

Each connection is an isolated editing session: source changes are debounced
and coalesced into sequential Graphviz renders, and the resulting SVG, zoom
state, and render errors are streamed back as JSON messages.

Endpoints:
  GET /session   WebSocket upgrade, one editor session per connection
  GET /healthz   liveness probe
  GET /version   build information`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.listen != "" {
				cfg.Listen = opts.listen
			}

			srv := bridge.NewServer(bridge.ServerConfig{
				Addr:          cfg.Listen,
				DefaultLayout: cfg.DefaultLayout(),
				Debounce:      cfg.Debounce(),
				ZoomAnimation: cfg.ZoomAnimation(),
				MinZoom:       cfg.Zoom.Min,
				MaxZoom:       cfg.Zoom.Max,
				Logger:        c.Logger,
				NewRenderer: func(ctx context.Context) (engine.Renderer, error) {
					return c.newRenderer(ctx, cfg, opts.noCache)
				},
			})

			c.Logger.Info("Serving editor bridge", "addr", cfg.Listen, "layout", cfg.Layout)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&opts.listen, "listen", "l", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the render cache")

	return cmd
}
