package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mdcrawl/mdcrawl/internal/report"
	"github.com/mdcrawl/mdcrawl/internal/runstate"
)

// newRunsCmd creates the 'runs' subcommand: list past runs from the history
// index.
func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past runs, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			if svc.hist == nil {
				return errors.New("run history is disabled in the configuration")
			}
			rows, err := svc.hist.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"runs": rows})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

// newReportCmd creates the 'report' subcommand: render a markdown summary of
// one run from its manifest.
func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <run-dir-or-manifest>",
		Short: "Render a markdown summary of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, "manifest.json")
			}
			m, err := runstate.LoadManifest(path)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}
			return report.WriteMarkdown(cmd.OutOrStdout(), m)
		},
	}
	return cmd
}
