package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/cotestpilot/internal/persona"
)

// NewPersonasCmd creates the personas command.
func NewPersonasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the available testing personas",
		Long: `Personas lists the testing personas available for checks, including any
custom personas merged from a persona file.

Each persona reviews pages from a different perspective. Checks select
personas by exact name or by keywords matching their biography, so the
biographies shown here are also the search text.

Examples:
  # List built-in personas
  cotestpilot personas

  # Include custom personas from a file
  cotestpilot personas --file my_personas.json

  # Output as JSON
  cotestpilot personas --json`,
		Args: cobra.NoArgs,
		RunE: runPersonasCmd,
	}

	cmd.Flags().StringP("file", "f", "",
		"JSON file with additional persona definitions")
	cmd.Flags().BoolP("json", "j", false,
		"Output personas in JSON format")

	return cmd
}

// runPersonasCmd executes the personas command.
func runPersonasCmd(cmd *cobra.Command, _ []string) error {
	personaFile, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	registry, err := persona.NewRegistry()
	if err != nil {
		return err
	}
	if personaFile != "" {
		if err := registry.LoadFile(personaFile); err != nil {
			return err
		}
	}

	personas := registry.All()

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(personas)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Available personas (%d):\n\n", len(personas))
	for _, p := range personas {
		name := p.Name
		if name == persona.DefaultPersonaName {
			name += " (default)"
		}
		fmt.Fprintf(out, "  %s\n", name)
		for _, line := range wrapText(p.Biography, 72) {
			fmt.Fprintf(out, "    %s\n", line)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, "Select personas with 'cotestpilot check --personas <name or keyword>'.")

	return nil
}

// wrapText wraps s into lines of at most width characters, breaking on
// word boundaries.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}
