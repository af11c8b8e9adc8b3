package model

import (
	"time"

	"github.com/google/uuid"
)

// PersonaFindings holds the bugs one persona reported for a single check.
type PersonaFindings struct {
	// Persona is the name of the testing persona.
	Persona string `json:"persona"`

	// Biography is the persona's expertise description, recorded so a
	// saved result is self-describing.
	Biography string `json:"biography,omitempty"`

	// Bugs are the parsed issues in the order the model reported them.
	Bugs []Bug `json:"bugs"`

	// RawResponse is the unparsed model response text, kept for
	// debugging and report rendering.
	RawResponse string `json:"raw_response,omitempty"`

	// Error is set when the model call or parsing failed for this
	// persona. Other personas' findings are unaffected.
	Error string `json:"error,omitempty"`
}

// CheckResult is the outcome of one AI check of a single page state.
// One CheckResult is created per check invocation and is immutable after
// construction; AddFindings is only called while the checker assembles it.
//
// Design decision: We keep both the per-persona findings and a flattened
// bug list. The per-persona view preserves attribution for reports, while
// the flattened list is what callers iterate and what severity counts are
// derived from.
type CheckResult struct {
	// ID uniquely identifies this check run.
	ID string `json:"id"`

	// Timestamp is when the check was performed.
	Timestamp time.Time `json:"timestamp"`

	// URL is the checked page URL.
	URL string `json:"url"`

	// Title is the document title at check time.
	Title string `json:"title,omitempty"`

	// Label is an optional caller-supplied tag for grouping results.
	Label string `json:"label,omitempty"`

	// ScreenshotPath is the saved screenshot file, if any.
	ScreenshotPath string `json:"screenshot,omitempty"`

	// Results holds the findings of each persona in resolution order.
	Results []PersonaFindings `json:"testers_results"`

	// Bugs is the flattened, ordered list of all reported issues.
	Bugs []Bug `json:"bugs"`

	// Personas lists the persona names used, in resolution order.
	Personas []string `json:"personas,omitempty"`

	// === Severity Summary ===

	// HighCount is the number of high severity bugs.
	HighCount int `json:"high_count"`

	// MediumCount is the number of medium severity bugs.
	MediumCount int `json:"medium_count"`

	// LowCount is the number of low severity bugs.
	LowCount int `json:"low_count"`

	// CosmeticCount is the number of cosmetic bugs.
	CosmeticCount int `json:"cosmetic_count"`

	// === Check State ===

	// OutputFile is the JSON results file this check was appended to,
	// if saving was enabled.
	OutputFile string `json:"output_file,omitempty"`

	// Error contains any error that aborted the check.
	// Per-persona failures are recorded on PersonaFindings instead.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCheckResult creates a new check result for the given URL.
func NewCheckResult(url string) *CheckResult {
	return &CheckResult{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		URL:       url,
		Results:   make([]PersonaFindings, 0),
		Bugs:      make([]Bug, 0),
	}
}

// AddFindings appends one persona's findings and folds its bugs into the
// flattened list and the severity counts. Bug order within a persona is
// preserved, and personas appear in the order they were resolved.
func (r *CheckResult) AddFindings(pf PersonaFindings) {
	r.Results = append(r.Results, pf)
	r.Personas = append(r.Personas, pf.Persona)

	for _, bug := range pf.Bugs {
		if bug.Persona == "" {
			bug.Persona = pf.Persona
		}
		r.Bugs = append(r.Bugs, bug)

		switch bug.Severity {
		case SeverityHigh:
			r.HighCount++
		case SeverityMedium:
			r.MediumCount++
		case SeverityLow:
			r.LowCount++
		case SeverityCosmetic:
			r.CosmeticCount++
		}
	}
}

// TotalBugs returns the total number of reported bugs.
func (r *CheckResult) TotalBugs() int {
	return len(r.Bugs)
}

// HasBugs returns true if any bugs were reported.
func (r *CheckResult) HasBugs() bool {
	return len(r.Bugs) > 0
}

// BugsBySeverity returns bugs filtered by severity, preserving order.
func (r *CheckResult) BugsBySeverity(severity Severity) []Bug {
	var result []Bug
	for _, b := range r.Bugs {
		if b.Severity == severity {
			result = append(result, b)
		}
	}
	return result
}

// MaxSeverity returns the highest severity among reported bugs.
// The second return value is false when there are no bugs.
func (r *CheckResult) MaxSeverity() (Severity, bool) {
	if len(r.Bugs) == 0 {
		return SeverityCosmetic, false
	}
	maxSev := SeverityCosmetic
	for _, b := range r.Bugs {
		if b.Severity > maxSev {
			maxSev = b.Severity
		}
	}
	return maxSev, true
}

// SeveritySummary returns the per-severity counts keyed by lowercase
// severity name. The database stores this alongside the full report so
// history listings don't need to load full results.
func (r *CheckResult) SeveritySummary() map[string]int {
	return map[string]int{
		"high":     r.HighCount,
		"medium":   r.MediumCount,
		"low":      r.LowCount,
		"cosmetic": r.CosmeticCount,
	}
}
