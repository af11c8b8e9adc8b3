// Package config provides configuration structures and utilities for coTestPilot.
// It defines the main configuration options for page checking, persona selection,
// vision model access, and report generation preferences.
package config
