// Package database provides SQLite-based persistence for check results.
// Storing results lets the compare command diff the latest two checks of
// a page and lets history listings run without re-reading result files.
package database
