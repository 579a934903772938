package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphpad/graphpad/pkg/buildinfo"
	"github.com/graphpad/graphpad/pkg/engine"
)

// versionCommand creates the version command, which reports both the
// graphpad build and the embedded Graphviz engine version.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print graphpad and engine version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeyValue("graphpad", buildinfo.Version)
			printKeyValue("commit", buildinfo.Commit)
			printKeyValue("built", buildinfo.Date)

			gv, err := engine.NewGraphviz(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize engine: %w", err)
			}
			defer gv.Close()

			ev, err := gv.Version(cmd.Context())
			if err != nil {
				return fmt.Errorf("query engine version: %w", err)
			}
			printKeyValue("engine", ev)
			return nil
		},
	}
}
