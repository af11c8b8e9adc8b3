// Package persona manages testing personas and resolves caller-supplied
// tester identifiers to persona definitions.
//
// A built-in set of personas is embedded in the binary so the tool works
// without any configuration. Additional personas can be merged from a JSON
// file or from the YAML configuration file; a loaded persona with a
// built-in name replaces the built-in definition.
package persona
