package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/cotestpilot/internal/config"
	"github.com/nao1215/cotestpilot/internal/report"
)

// NewReportCmd creates the report command.
// This command regenerates reports from results saved by previous checks,
// so a run can be re-rendered in a different format without re-checking.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report from saved check results",
		Long: `Report renders the check results saved in the output directory as a
single aggregated report. This makes it possible to re-render a run in a
different format, or to summarize several check invocations that shared
an output directory, without calling the vision API again.

Examples:
  # Render all saved results as a human-readable report
  cotestpilot report

  # Render only results tagged with a label
  cotestpilot report --label smoke

  # Write an HTML report next to the saved screenshots
  cotestpilot report --html -o cotestpilot_results/report.html

  # Render results from a custom output directory as Markdown
  cotestpilot report -d ./results --markdown`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().StringP("dir", "d", config.DefaultOutputDir,
		"Directory holding saved check results")
	cmd.Flags().StringP("label", "l", "",
		"Only include results tagged with this label")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --html)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --html)")
	cmd.Flags().BoolP("html", "H", false,
		"Output standalone HTML report (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	label, err := cmd.Flags().GetString("label")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.OutputDir = dir
	cfg.Verbose = getVerboseFlag(cmd)

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	cfg.HTMLReport, err = cmd.Flags().GetBool("html")
	if err != nil {
		return err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	formats := 0
	for _, enabled := range []bool{cfg.JSONReport, cfg.MarkdownReport, cfg.HTMLReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return config.ErrConflictingReportFormats
	}

	store := report.NewStore(dir)
	results, err := store.LoadByLabel(label)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		if label != "" {
			return fmt.Errorf("no saved results with label %q in %s", label, dir)
		}
		return fmt.Errorf("no saved results in %s (run 'cotestpilot check' first)", dir)
	}

	// HTML reports reference screenshots by relative path, so warn when
	// the report is written somewhere the images are not.
	if cfg.HTMLReport && cfg.ReportFile != "" {
		if filepath.Dir(cfg.ReportFile) != filepath.Clean(dir) {
			fmt.Fprintf(os.Stderr,
				"Warning: HTML report written outside %s; screenshot links may not resolve.\n", dir)
		}
	}

	return outputReport(cfg, results)
}
