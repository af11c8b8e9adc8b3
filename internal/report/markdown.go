package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/cotestpilot/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one check result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CheckResult) (int, error) {
	return w.WriteBatch([]*model.CheckResult{result})
}

// WriteBatch outputs multiple check results as one Markdown document.
func (w *MarkdownWriter) WriteBatch(results []*model.CheckResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("coTestPilot Check Report")
	md.PlainText("")

	w.writeOverview(md, results)

	for _, result := range results {
		w.writeResult(md, result)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeOverview writes the aggregate severity summary across all results.
func (w *MarkdownWriter) writeOverview(md *markdown.Markdown, results []*model.CheckResult) {
	var high, medium, low, cosmetic, total int
	for _, r := range results {
		high += r.HighCount
		medium += r.MediumCount
		low += r.LowCount
		cosmetic += r.CosmeticCount
		total += r.TotalBugs()
	}

	md.H2("Severity Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 High", strconv.Itoa(high)},
			{"🟠 Medium", strconv.Itoa(medium)},
			{"🟡 Low", strconv.Itoa(low)},
			{"⚪ Cosmetic", strconv.Itoa(cosmetic)},
			{"**Total**", "**" + strconv.Itoa(total) + "**"},
		},
	})
	md.PlainText("")

	if total > 0 {
		w.writePieChart(md, high, medium, low, cosmetic)
	}

	w.writeAlert(md, high, medium, total)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, high, medium, low, cosmetic int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Bug Severity Distribution"),
		piechart.WithShowData(true),
	)

	if high > 0 {
		chart.LabelAndIntValue("High", uint64(high))
	}
	if medium > 0 {
		chart.LabelAndIntValue("Medium", uint64(medium))
	}
	if low > 0 {
		chart.LabelAndIntValue("Low", uint64(low))
	}
	if cosmetic > 0 {
		chart.LabelAndIntValue("Cosmetic", uint64(cosmetic))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, high, medium, total int) {
	switch {
	case high > 0:
		md.Cautionf(
			"High severity bugs detected! %d bug(s) prevent core functionality and require immediate attention.",
			high,
		)
	case medium > 0:
		md.Warningf(
			"Medium severity bugs detected. %d bug(s) significantly impact the user experience.",
			medium,
		)
	case total > 0:
		md.Note("Only low severity and cosmetic bugs detected.")
	default:
		md.Tip("No bugs detected.")
	}
	md.PlainText("")
}

// writeResult writes one check result section.
func (w *MarkdownWriter) writeResult(md *markdown.Markdown, result *model.CheckResult) {
	md.H2(result.URL)
	md.PlainText("")

	// Basic info table
	rows := [][]string{
		{"URL", "`" + result.URL + "`"},
		{"Check Date", result.Timestamp.Format("2006-01-02 15:04:05 MST")},
		{"Personas", strings.Join(result.Personas, ", ")},
		{"Status", w.getStatusText(result)},
	}
	if result.Title != "" {
		rows = append([][]string{{"Title", result.Title}}, rows...)
	}
	if result.Label != "" {
		rows = append(rows, []string{"Label", result.Label})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeBugs(md, result)
}

// getStatusText returns the status text based on result state.
func (w *MarkdownWriter) getStatusText(result *model.CheckResult) string {
	if result.ErrorMessage != "" {
		return "❌ Error - " + result.ErrorMessage
	}
	return "✅ Complete"
}

// writeBugs writes all bugs grouped by severity.
func (w *MarkdownWriter) writeBugs(md *markdown.Markdown, result *model.CheckResult) {
	if !result.HasBugs() {
		md.PlainText("No bugs detected on this page.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityHigh, "### 🔴 High"},
		{model.SeverityMedium, "### 🟠 Medium"},
		{model.SeverityLow, "### 🟡 Low"},
		{model.SeverityCosmetic, "### ⚪ Cosmetic"},
	}

	for _, sev := range severities {
		bugs := result.BugsBySeverity(sev.level)
		if len(bugs) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeBugsTable(md, bugs)
	}
}

// writeBugsTable writes a table of bugs with details.
func (w *MarkdownWriter) writeBugsTable(md *markdown.Markdown, bugs []model.Bug) {
	headers := []string{"Title", "Persona", "Confidence", "How To Fix"}

	rows := make([][]string, len(bugs))
	for i, b := range bugs {
		persona := b.Persona
		if persona == "" {
			persona = "-"
		}
		howToFix := b.HowToFix
		if howToFix == "" {
			howToFix = "-"
		}

		rows[i] = []string{
			b.Title,
			persona,
			fmt.Sprintf("%.2f", b.Confidence),
			truncateString(howToFix, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: headers,
		Rows:   rows,
	})
	md.PlainText("")

	// Add detailed descriptions for all bugs
	for _, b := range bugs {
		if b.Description != "" {
			detail := b.Description
			if b.WhyFix != "" {
				detail += "\n\nWhy fix: " + b.WhyFix
			}
			md.Details(b.Title, detail)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [coTestPilot](https://github.com/nao1215/cotestpilot)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
