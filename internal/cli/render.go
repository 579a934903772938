package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphpad/graphpad/pkg/config"
	"github.com/graphpad/graphpad/pkg/engine"
	"github.com/graphpad/graphpad/pkg/visual"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file path (derived from input if empty)
	engine  string // layout engine name
	noCache bool   // bypass the render cache
}

// renderCommand creates the render command for one-shot DOT-to-SVG rendering.
//
// Default settings:
//   - engine: from config (dot unless overridden)
//   - output: input path with extension replaced by .svg
//   - cache: on, so repeated renders of unchanged sources are instant
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <file.gv>",
		Short: "Render a DOT file to SVG",
		Long: `Render a Graphviz DOT file to SVG once and exit.

Examples:
  graphpad render graph.gv                    # graph.svg next to the input
  graphpad render graph.gv -o out.svg         # explicit output path
  graphpad render graph.gv --engine neato     # non-default layout engine`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if opts.engine == "" {
				opts.engine = cfg.Layout
			}
			return c.runRender(cmd.Context(), args[0], cfg, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (input path with .svg if empty)")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "layout engine: dot, neato, fdp, sfdp, circo, twopi, osage, patchwork")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the render cache")

	return cmd
}

// runRender reads the source file, renders it, and writes the exported SVG.
// The output passes through the same geometry capture as interactive
// renders, so file output and editor snapshot exports are byte-compatible.
func (c *CLI) runRender(ctx context.Context, input string, cfg config.Config, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	layout, err := engine.ParseLayout(opts.engine)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(source)) == "" {
		return fmt.Errorf("%s is empty, nothing to render", input)
	}

	renderer, err := c.newRenderer(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer renderer.Close()

	spin := newSpinner(ctx, "Laying out %s with %s", input, layout)
	spin.Start()

	prog := newProgress(logger)
	svg, err := renderer.Render(ctx, string(source), layout)
	if err != nil {
		spin.StopWithError("%s", err)
		return err
	}

	v, err := visual.Parse(svg)
	if err != nil {
		spin.StopWithError("%s", err)
		return err
	}

	outputPath := opts.output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}
	spin.UpdateMessage("Writing %s", outputPath)
	err = os.WriteFile(outputPath, []byte(v.Snapshot()), 0o644)
	spin.Stop()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d bytes of SVG", len(svg)))

	printSuccess("Rendered %s", input)
	printFile(outputPath)
	return nil
}
