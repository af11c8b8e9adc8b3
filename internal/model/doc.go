// Package model defines the core data structures for coTestPilot.
//
// This package contains the check result types, bug reports with severity
// levels, testing personas, and captured page state. It has no dependencies
// on other internal packages, allowing it to be imported by all layers
// without circular dependencies.
package model
