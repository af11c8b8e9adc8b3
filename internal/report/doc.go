// Package report renders check results for humans and tools.
//
// Four formats are supported: human-readable text for terminals, JSON
// for tool integration, GitHub Flavored Markdown for documentation, and
// standalone HTML for sharing with screenshots. The Store persists raw
// results and screenshots to disk so reports can be regenerated later.
package report
