package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cotestpilot/internal/config"
	"github.com/nao1215/cotestpilot/internal/database"
	"github.com/nao1215/cotestpilot/internal/model"
)

// Constants for risk direction and summary messages.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
	noBugsMessage          = "No bugs"
)

// NewCompareCmd creates the compare command.
// This command compares check results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare check results with historical data",
		Long: `Compare displays differences between the current and previous check results.

This command retrieves historical check data from the database and shows:
- New bugs that appeared since the last check
- Resolved bugs that are no longer reported
- Changes in severity counts

The comparison requires at least two checks in the database for the specified
URL. Use 'cotestpilot check' to perform checks and save results.

Examples:
  # Compare latest two checks for a page
  cotestpilot compare https://staging.example.com

  # List all check history for a page
  cotestpilot compare --list https://staging.example.com

  # Compare with a specific historical check by ID
  cotestpilot compare --with-check-id 5 https://staging.example.com

  # Compare checks since a specific date
  cotestpilot compare --since "2026-01-01" https://staging.example.com

  # Output comparison in JSON format
  cotestpilot compare --json https://staging.example.com

  # List all checked URLs in the database
  cotestpilot compare --list-urls`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List check history for the specified URL")
	cmd.Flags().BoolP("list-urls", "L", false,
		"List all checked URLs in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-check-id", "i", 0,
		"Compare with a specific check by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first check after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	// Handle --list-urls flag first (requires database but no URL)
	listURLs, err := cmd.Flags().GetBool("list-urls")
	if err != nil {
		return err
	}

	// Validate arguments before opening database (unless --list-urls)
	// This prevents database lock issues when validation fails
	var url string
	if !listURLs {
		if len(args) == 0 {
			return errors.New("url is required (use --list-urls to see available URLs)")
		}
		url = args[0]
	}

	// Use XDG data directory for database
	dbDir := config.XDGDataDir()

	// Open database
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Handle --list-urls flag
	if listURLs {
		return listCheckedURLs(ctx, db)
	}

	// Handle --list flag
	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listCheckHistory(ctx, db, url)
	}

	// Get output format flags
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Get comparison target flags
	withCheckID, err := cmd.Flags().GetInt64("with-check-id")
	if err != nil {
		return err
	}
	sinceDate, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}

	// Perform comparison
	return runComparison(ctx, db, url, withCheckID, sinceDate, jsonOutput, markdownOutput)
}

// listCheckedURLs lists all URLs that have check records in the database.
func listCheckedURLs(ctx context.Context, db *database.CheckDB) error {
	urls, err := db.ListCheckedURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list URLs: %w", err)
	}

	if len(urls) == 0 {
		fmt.Println("No checked URLs found in the database.")
		fmt.Println("\nUse 'cotestpilot check <url>' to check a page.")
		return nil
	}

	fmt.Printf("Checked URLs (%d):\n\n", len(urls))
	for _, url := range urls {
		fmt.Printf("  • %s\n", url)
	}
	fmt.Println("\nUse 'cotestpilot compare --list <url>' to see check history for a page.")

	return nil
}

// listCheckHistory lists all check records for a specific URL.
func listCheckHistory(ctx context.Context, db *database.CheckDB, url string) error {
	reports, err := db.GetCheckHistoryWithMetadata(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to get check history: %w", err)
	}

	if len(reports) == 0 {
		fmt.Printf("No check history found for %s\n", url)
		fmt.Println("\nUse 'cotestpilot check' to check this page.")
		return nil
	}

	fmt.Printf("Check history for %s (%d checks):\n\n", url, len(reports))
	fmt.Printf("  %-6s  %-20s  %-12s  %s\n", "ID", "Date", "Label", "Bug Summary")
	fmt.Println("  " + strings.Repeat("-", 64))

	for _, meta := range reports {
		fmt.Printf("  %-6d  %-20s  %-12s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			meta.Label,
			formatBugSummary(meta.SeveritySummary),
		)
	}

	fmt.Println("\nUse 'cotestpilot compare <url>' to compare the latest two checks.")
	fmt.Println("Use 'cotestpilot compare --with-check-id <id> <url>' to compare with a specific check.")

	return nil
}

// formatBugSummary formats the severity summary map into a human-readable string.
func formatBugSummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary["high"]; v > 0 {
		parts = append(parts, fmt.Sprintf("H:%d", v))
	}
	if v := summary["medium"]; v > 0 {
		parts = append(parts, fmt.Sprintf("M:%d", v))
	}
	if v := summary["low"]; v > 0 {
		parts = append(parts, fmt.Sprintf("L:%d", v))
	}
	if v := summary["cosmetic"]; v > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", v))
	}

	if len(parts) == 0 {
		return noBugsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison performs the actual comparison between check reports.
func runComparison(ctx context.Context, db *database.CheckDB, url string, withCheckID int64, sinceDate string, jsonOutput, markdownOutput bool) error {
	// Get the check history
	reports, err := db.GetCheckHistory(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to get check history: %w", err)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no check history found for %s", url)
	}

	if len(reports) < 2 && withCheckID == 0 && sinceDate == "" {
		return fmt.Errorf("at least 2 checks are required for comparison (found %d)", len(reports))
	}

	// Determine which reports to compare
	var currentReport, previousReport *model.CheckResult

	// Latest report is always the current one
	currentReport = reports[0]

	if withCheckID > 0 {
		// Find the report with the specified ID
		previousReport, err = db.GetCheckReportByID(ctx, withCheckID)
		if err != nil {
			return fmt.Errorf("failed to get check with ID %d: %w", withCheckID, err)
		}
		if previousReport == nil {
			return fmt.Errorf("check with ID %d not found", withCheckID)
		}
		// Validate that the check ID belongs to the same URL
		if previousReport.URL != url {
			return fmt.Errorf("check ID %d belongs to %s, not %s", withCheckID, previousReport.URL, url)
		}
	} else if sinceDate != "" {
		// Parse the date and find the first (oldest) report at or after the specified date
		parsedDate, err := time.Parse("2006-01-02", sinceDate)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}

		// Reports are sorted by timestamp DESC (newest first), so iterate in reverse
		// to find the first (oldest) report at or after the date
		for i := len(reports) - 1; i >= 0; i-- {
			r := reports[i]
			if r.Timestamp.After(parsedDate) || r.Timestamp.Equal(parsedDate) {
				previousReport = r
				break
			}
		}
		if previousReport == nil {
			return fmt.Errorf("no checks found since %s", sinceDate)
		}
		// If only one check matches and it's the current report, we can't compare
		if previousReport == currentReport {
			return fmt.Errorf("only one check found since %s; at least 2 checks are required for comparison", sinceDate)
		}
	} else {
		// Default: compare with the previous check
		previousReport = reports[1]
	}

	// Generate comparison result
	comparison := compareReports(previousReport, currentReport)

	// Output the result
	if jsonOutput {
		return outputComparisonJSON(comparison)
	}
	if markdownOutput {
		return outputComparisonMarkdown(comparison)
	}
	return outputComparisonText(comparison)
}

// ComparisonResult holds the result of comparing two check reports.
type ComparisonResult struct {
	// URL is the checked page URL.
	URL string `json:"url"`

	// PreviousCheck contains metadata about the previous check.
	PreviousCheck CheckMetadata `json:"previous_check"`

	// CurrentCheck contains metadata about the current check.
	CurrentCheck CheckMetadata `json:"current_check"`

	// NewBugs contains bugs that are new in the current check.
	NewBugs []model.Bug `json:"new_bugs,omitempty"`

	// ResolvedBugs contains bugs that were in the previous check but not in current.
	ResolvedBugs []model.Bug `json:"resolved_bugs,omitempty"`

	// UnchangedCount is the number of bugs reported by both checks.
	UnchangedCount int `json:"unchanged_count"`

	// RiskChange describes the overall change in severity counts.
	RiskChange RiskChange `json:"risk_change"`
}

// CheckMetadata contains metadata about a check for comparison display.
type CheckMetadata struct {
	// DateChecked is when the check was performed.
	DateChecked time.Time `json:"date_checked"`

	// TotalBugs is the total number of bugs in this check.
	TotalBugs int `json:"total_bugs"`

	// HighCount is the number of high severity bugs.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity bugs.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity bugs.
	LowCount int `json:"low_count"`

	// CosmeticCount is the number of cosmetic bugs.
	CosmeticCount int `json:"cosmetic_count"`
}

// RiskChange describes the change in severity counts between checks.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// HighDelta is the change in high severity bug count.
	HighDelta int `json:"high_delta"`

	// MediumDelta is the change in medium severity bug count.
	MediumDelta int `json:"medium_delta"`

	// LowDelta is the change in low severity bug count.
	LowDelta int `json:"low_delta"`

	// CosmeticDelta is the change in cosmetic bug count.
	CosmeticDelta int `json:"cosmetic_delta"`
}

// compareReports compares two check reports and generates a comparison result.
//
// Bugs are matched by persona, title, and severity. Model-generated titles
// are not perfectly stable between runs, so a reworded bug shows up as one
// resolved plus one new rather than unchanged; the severity deltas still
// tell the real story.
func compareReports(previous, current *model.CheckResult) *ComparisonResult {
	result := &ComparisonResult{
		URL: current.URL,
		PreviousCheck: CheckMetadata{
			DateChecked:   previous.Timestamp,
			TotalBugs:     previous.TotalBugs(),
			HighCount:     previous.HighCount,
			MediumCount:   previous.MediumCount,
			LowCount:      previous.LowCount,
			CosmeticCount: previous.CosmeticCount,
		},
		CurrentCheck: CheckMetadata{
			DateChecked:   current.Timestamp,
			TotalBugs:     current.TotalBugs(),
			HighCount:     current.HighCount,
			MediumCount:   current.MediumCount,
			LowCount:      current.LowCount,
			CosmeticCount: current.CosmeticCount,
		},
	}

	// Build bug maps for comparison
	previousBugs := make(map[string]model.Bug)
	currentBugs := make(map[string]model.Bug)

	for _, b := range previous.Bugs {
		previousBugs[bugKey(b)] = b
	}
	for _, b := range current.Bugs {
		currentBugs[bugKey(b)] = b
	}

	// Find new bugs (in current but not in previous)
	for key, bug := range currentBugs {
		if _, exists := previousBugs[key]; !exists {
			result.NewBugs = append(result.NewBugs, bug)
		}
	}

	// Find resolved bugs (in previous but not in current)
	for key, bug := range previousBugs {
		if _, exists := currentBugs[key]; !exists {
			result.ResolvedBugs = append(result.ResolvedBugs, bug)
		} else {
			result.UnchangedCount++
		}
	}

	// Map iteration order is random; sort so repeated runs produce the
	// same output and diffs stay stable.
	sortBugs(result.NewBugs)
	sortBugs(result.ResolvedBugs)

	// Calculate risk change
	result.RiskChange = calculateRiskChange(result.PreviousCheck, result.CurrentCheck)

	return result
}

// sortBugs orders bugs worst first: by severity descending, then title.
func sortBugs(bugs []model.Bug) {
	sort.Slice(bugs, func(i, j int) bool {
		if bugs[i].Severity != bugs[j].Severity {
			return bugs[i].Severity > bugs[j].Severity
		}
		return bugs[i].Title < bugs[j].Title
	})
}

// bugKey generates a unique key for a bug for comparison purposes.
func bugKey(b model.Bug) string {
	return b.Persona + "|" + b.Title + "|" + b.Severity.String()
}

// calculateRiskChange calculates the change in severity counts between two checks.
func calculateRiskChange(previous, current CheckMetadata) RiskChange {
	change := RiskChange{
		HighDelta:     current.HighCount - previous.HighCount,
		MediumDelta:   current.MediumCount - previous.MediumCount,
		LowDelta:      current.LowCount - previous.LowCount,
		CosmeticDelta: current.CosmeticCount - previous.CosmeticCount,
	}

	// Determine overall direction based on weighted score
	// High severity changes have more weight
	previousScore := previous.HighCount*50 + previous.MediumCount*10 + previous.LowCount*5 + previous.CosmeticCount
	currentScore := current.HighCount*50 + current.MediumCount*10 + current.LowCount*5 + current.CosmeticCount

	if currentScore < previousScore {
		change.Direction = riskDirectionImproved
	} else if currentScore > previousScore {
		change.Direction = riskDirectionWorsened
	} else {
		change.Direction = riskDirectionUnchanged
	}

	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult) error {
	fmt.Printf("# Check Comparison: %s\n\n", result.URL)

	// Risk change summary
	fmt.Println("## Summary")
	fmt.Printf("\n**Status:** %s\n\n", formatRiskDirection(result.RiskChange.Direction))

	// Check metadata table
	fmt.Println("| Metric | Previous | Current | Change |")
	fmt.Println("|--------|----------|---------|--------|")
	fmt.Printf("| Date | %s | %s | - |\n",
		result.PreviousCheck.DateChecked.Format("2006-01-02 15:04"),
		result.CurrentCheck.DateChecked.Format("2006-01-02 15:04"))
	fmt.Printf("| High | %d | %d | %s |\n",
		result.PreviousCheck.HighCount,
		result.CurrentCheck.HighCount,
		formatDelta(result.RiskChange.HighDelta))
	fmt.Printf("| Medium | %d | %d | %s |\n",
		result.PreviousCheck.MediumCount,
		result.CurrentCheck.MediumCount,
		formatDelta(result.RiskChange.MediumDelta))
	fmt.Printf("| Low | %d | %d | %s |\n",
		result.PreviousCheck.LowCount,
		result.CurrentCheck.LowCount,
		formatDelta(result.RiskChange.LowDelta))
	fmt.Printf("| Cosmetic | %d | %d | %s |\n",
		result.PreviousCheck.CosmeticCount,
		result.CurrentCheck.CosmeticCount,
		formatDelta(result.RiskChange.CosmeticDelta))
	fmt.Printf("| **Total** | **%d** | **%d** | **%s** |\n",
		result.PreviousCheck.TotalBugs,
		result.CurrentCheck.TotalBugs,
		formatDelta(result.CurrentCheck.TotalBugs-result.PreviousCheck.TotalBugs))

	// New bugs
	if len(result.NewBugs) > 0 {
		fmt.Printf("\n## New Bugs (%d)\n\n", len(result.NewBugs))
		for _, b := range result.NewBugs {
			fmt.Printf("- **[%s]** %s\n", b.Severity, b.Title)
			if b.Persona != "" {
				fmt.Printf("  - Reported by: %s\n", b.Persona)
			}
		}
	}

	// Resolved bugs
	if len(result.ResolvedBugs) > 0 {
		fmt.Printf("\n## Resolved Bugs (%d)\n\n", len(result.ResolvedBugs))
		for _, b := range result.ResolvedBugs {
			fmt.Printf("- ~~**[%s]** %s~~\n", b.Severity, b.Title)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\n---\n\n*%d bugs unchanged*\n", result.UnchangedCount)
	}

	return nil
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult) error {
	fmt.Printf("Check Comparison: %s\n", result.URL)
	fmt.Println(strings.Repeat("=", 60))

	// Risk change summary
	fmt.Printf("\nStatus: %s\n", formatRiskDirection(result.RiskChange.Direction))

	// Check dates
	fmt.Printf("\nPrevious check: %s\n", result.PreviousCheck.DateChecked.Format("2006-01-02 15:04:05"))
	fmt.Printf("Current check:  %s\n", result.CurrentCheck.DateChecked.Format("2006-01-02 15:04:05"))

	// Summary table
	fmt.Println("\nBug Summary:")
	fmt.Printf("  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "High",
		result.PreviousCheck.HighCount, result.CurrentCheck.HighCount,
		formatDelta(result.RiskChange.HighDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Medium",
		result.PreviousCheck.MediumCount, result.CurrentCheck.MediumCount,
		formatDelta(result.RiskChange.MediumDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Low",
		result.PreviousCheck.LowCount, result.CurrentCheck.LowCount,
		formatDelta(result.RiskChange.LowDelta))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Cosmetic",
		result.PreviousCheck.CosmeticCount, result.CurrentCheck.CosmeticCount,
		formatDelta(result.RiskChange.CosmeticDelta))
	fmt.Println("  " + strings.Repeat("-", 45))
	fmt.Printf("  %-10s  %-10d  %-10d  %-10s\n", "Total",
		result.PreviousCheck.TotalBugs, result.CurrentCheck.TotalBugs,
		formatDelta(result.CurrentCheck.TotalBugs-result.PreviousCheck.TotalBugs))

	// New bugs
	if len(result.NewBugs) > 0 {
		fmt.Printf("\nNew Bugs (%d):\n", len(result.NewBugs))
		for _, b := range result.NewBugs {
			fmt.Printf("  [+] [%s] %s\n", b.Severity, b.Title)
			if b.Persona != "" {
				fmt.Printf("      Reported by: %s\n", b.Persona)
			}
		}
	}

	// Resolved bugs
	if len(result.ResolvedBugs) > 0 {
		fmt.Printf("\nResolved Bugs (%d):\n", len(result.ResolvedBugs))
		for _, b := range result.ResolvedBugs {
			fmt.Printf("  [-] [%s] %s\n", b.Severity, b.Title)
		}
	}

	// Unchanged count
	if result.UnchangedCount > 0 {
		fmt.Printf("\nUnchanged: %d bugs\n", result.UnchangedCount)
	}

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (fewer or less severe bugs)"
	case riskDirectionWorsened:
		return "WORSENED (more or more severe bugs)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	} else if delta < 0 {
		return strconv.Itoa(delta)
	}
	return "0"
}
