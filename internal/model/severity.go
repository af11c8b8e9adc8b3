package model

import (
	"strconv"
	"strings"
)

// Severity represents the impact level of a reported bug.
// The ordering allows sorting and comparing findings by impact.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed. The numeric values match the 0-3 scale
// the vision prompt asks the model to use.
type Severity int

const (
	// SeverityCosmetic indicates minor visual or text issues that don't
	// impact functionality or understanding.
	SeverityCosmetic Severity = iota

	// SeverityLow indicates issues that cause minor inconvenience but
	// don't prevent core functionality.
	SeverityLow

	// SeverityMedium indicates issues that significantly impact user
	// experience or partially break functionality.
	SeverityMedium

	// SeverityHigh indicates critical issues that prevent core
	// functionality or severely impact user experience or the business.
	SeverityHigh
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityCosmetic:
		return "COSMETIC"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a model-reported severity value into a Severity.
// Vision models are inconsistent: the same prompt can come back with
// "high", "High", "3", or 3. We accept severity names and the 0-3 numeric
// scale from the prompt, in any case and with surrounding whitespace.
//
// Unknown or empty values map to SeverityLow. Defaulting low rather than
// failing keeps a single malformed field from discarding an otherwise
// valid bug report.
func ParseSeverity(value string) Severity {
	v := strings.ToLower(strings.TrimSpace(value))

	switch v {
	case "cosmetic":
		return SeverityCosmetic
	case "low", "minor":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high", "critical", "severe":
		return SeverityHigh
	}

	// Numeric scale used in the vision prompt (0 = cosmetic .. 3 = high).
	if n, err := strconv.Atoi(v); err == nil {
		switch {
		case n <= 0:
			return SeverityCosmetic
		case n == 1:
			return SeverityLow
		case n == 2:
			return SeverityMedium
		default:
			return SeverityHigh
		}
	}

	return SeverityLow
}

// Severities returns all severity levels ordered from highest to lowest.
// Report writers iterate this to render the most important findings first.
func Severities() []Severity {
	return []Severity{SeverityHigh, SeverityMedium, SeverityLow, SeverityCosmetic}
}
