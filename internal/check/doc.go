// Package check orchestrates a single AI page check: capture the page,
// run one vision analysis per resolved persona, and aggregate the parsed
// findings into a check result.
//
// The Checker depends on small interfaces for page capture and vision
// analysis so tests can exercise the orchestration without a browser or
// a model API. BatchProcessor runs many checks concurrently with a
// bounded worker count.
package check
