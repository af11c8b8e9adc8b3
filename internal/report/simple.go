package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/cotestpilot/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and severity indicators.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one check result in human-readable format.
func (w *SimpleWriter) Write(result *model.CheckResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeResult(&sb, result)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteBatch outputs multiple check results in human-readable format.
func (w *SimpleWriter) WriteBatch(results []*model.CheckResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	for _, result := range results {
		w.writeResult(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report banner.
func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        COTESTPILOT CHECK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeResult writes one check result with its summary and findings.
func (w *SimpleWriter) writeResult(sb *strings.Builder, result *model.CheckResult) {
	sb.WriteString(fmt.Sprintf("URL:        %s\n", result.URL))
	if result.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:      %s\n", result.Title))
	}
	sb.WriteString(fmt.Sprintf("Check Date: %s\n", result.Timestamp.Format("2006-01-02 15:04:05 MST")))
	if result.Label != "" {
		sb.WriteString(fmt.Sprintf("Label:      %s\n", result.Label))
	}
	if len(result.Personas) > 0 {
		sb.WriteString(fmt.Sprintf("Personas:   %s\n", strings.Join(result.Personas, ", ")))
	}

	if result.ErrorMessage != "" {
		sb.WriteString(fmt.Sprintf("Status:     ERROR - %s\n", result.ErrorMessage))
	} else {
		sb.WriteString("Status:     Complete\n")
	}
	sb.WriteString("\n")

	w.writeSummary(sb, result)
	w.writeBugs(sb, result)
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.CheckResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SEVERITY SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  HIGH:     %d\n", result.HighCount))
	sb.WriteString(fmt.Sprintf("  MEDIUM:   %d\n", result.MediumCount))
	sb.WriteString(fmt.Sprintf("  LOW:      %d\n", result.LowCount))
	sb.WriteString(fmt.Sprintf("  COSMETIC: %d\n", result.CosmeticCount))
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("  TOTAL:    %d bugs\n", result.TotalBugs()))
	sb.WriteString("\n")
}

// writeBugs writes all bugs grouped by severity.
func (w *SimpleWriter) writeBugs(sb *strings.Builder, result *model.CheckResult) {
	if !result.HasBugs() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("BUGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	// Write bugs in order of severity (high first)
	for _, severity := range model.Severities() {
		bugs := result.BugsBySeverity(severity)
		if len(bugs) == 0 && !w.showEmpty {
			continue
		}

		w.writeBugsForSeverity(sb, severity, bugs)
	}
}

// writeBugsForSeverity writes bugs of a specific severity level.
func (w *SimpleWriter) writeBugsForSeverity(sb *strings.Builder, severity model.Severity, bugs []model.Bug) {
	// Severity header with visual indicator
	indicator := w.getSeverityIndicator(severity)
	sb.WriteString(fmt.Sprintf("[%s] %s\n", indicator, severity.String()))

	if len(bugs) == 0 {
		sb.WriteString("  No bugs\n\n")
		return
	}

	for _, bug := range bugs {
		sb.WriteString(fmt.Sprintf("  * %s\n", bug.Title))
		if bug.Persona != "" {
			sb.WriteString(fmt.Sprintf("    Reported by: %s (confidence %.2f)\n", bug.Persona, bug.Confidence))
		}
		if bug.RelatedContext != "" {
			sb.WriteString(fmt.Sprintf("    Context: %s\n", bug.RelatedContext))
		}
		if w.verbose {
			if bug.Description != "" {
				sb.WriteString(fmt.Sprintf("    Description: %s\n", bug.Description))
			}
			if bug.WhyFix != "" {
				sb.WriteString(fmt.Sprintf("    Why fix: %s\n", bug.WhyFix))
			}
			if bug.HowToFix != "" {
				sb.WriteString(fmt.Sprintf("    How to fix: %s\n", bug.HowToFix))
			}
		}
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityHigh:
		return "!!!"
	case model.SeverityMedium:
		return "!!"
	case model.SeverityLow:
		return "!"
	case model.SeverityCosmetic:
		return "-"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by coTestPilot\n")
	sb.WriteString("https://github.com/nao1215/cotestpilot\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
