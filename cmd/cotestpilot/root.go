package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for coTestPilot.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cotestpilot",
		Short: "AI-assisted exploratory checking for web pages",
		Long: `coTestPilot captures web pages with a headless browser and asks a
vision-capable AI model to review each screenshot through the eyes of
different testing personas. Responses are parsed into structured bug
reports, aggregated, and saved for later comparison.

Set GEMINI_API_KEY in the environment (or pass --api-key) before running
a check.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewPersonasCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
