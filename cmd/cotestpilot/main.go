// Package main provides the entry point for the coTestPilot CLI.
//
// coTestPilot drives a headless browser to capture web pages and asks a
// vision-capable AI model to review them through the eyes of different
// testing personas, turning the responses into structured bug reports.
//
// Usage:
//
//	cotestpilot check <url>
//	cotestpilot check --personas accessibility <url>
//
// See --help for all available options.
package main

// main is the entry point for coTestPilot.
func main() {
	Execute()
}
