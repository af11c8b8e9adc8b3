package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoTarget is returned when no target URL or list file is specified.
	// This error occurs when neither --list nor a positional argument provides a target.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrMissingAPIKey is returned when no vision model API key is available.
	// The key comes from the GEMINI_API_KEY environment variable or the --api-key flag.
	ErrMissingAPIKey = errors.New("missing API key: set GEMINI_API_KEY or use --api-key")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	// A timeout of zero or negative would cause immediate navigation failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent checks, effectively stopping
	// the checking process.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when more than one of --json,
	// --markdown, and --html is specified. Only one output format can be used
	// at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: only one of --json, --markdown, and --html can be used")

	// ErrInvalidCheckInterval is returned when the minimum check interval is negative.
	// A negative interval is invalid; use 0 to disable rate limiting.
	ErrInvalidCheckInterval = errors.New("invalid check interval: must be non-negative")

	// ErrInvalidRetries is returned when the retry count is negative.
	// A negative count is invalid; use 0 to disable retries.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidConfidence is returned when the confidence threshold is
	// outside [0, 1]. Bugs below the threshold are discarded, so values
	// above 1 would silently drop every finding.
	ErrInvalidConfidence = errors.New("invalid confidence threshold: must be between 0 and 1")

	// ErrInvalidMaxTextBytes is returned when the page text budget is negative.
	// A negative budget is invalid; use 0 to use the default limit.
	ErrInvalidMaxTextBytes = errors.New("invalid max text bytes: must be non-negative")

	// ErrInvalidRetentionDays is returned when the screenshot retention
	// window is negative. Use 0 to disable pruning.
	ErrInvalidRetentionDays = errors.New("invalid screenshot retention days: must be non-negative")
)
