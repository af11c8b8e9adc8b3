package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen based on typical vision model API characteristics
// and sensible browser automation timings.
const (
	// DefaultModel is the vision-capable model used for page analysis.
	// Flash-class models are fast and cheap enough to run once per persona
	// per check without dominating test suite runtime.
	DefaultModel = "gemini-2.5-flash"

	// DefaultMinCheckInterval is the minimum interval between vision API calls.
	// 10 seconds keeps a test suite that calls Check on every page well under
	// typical API rate limits without requiring the caller to think about them.
	DefaultMinCheckInterval = 10 * time.Second

	// DefaultMaxRetries is the number of retries after a failed API call.
	// Vision endpoints fail transiently often enough that retrying is worth it,
	// but three attempts is where waiting stops paying for itself.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the pause between retry attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultNavigationTimeout is the maximum time to wait for a page to load
	// before a check fails. 30 seconds covers slow staging environments while
	// still failing fast enough to be usable inside a test suite.
	DefaultNavigationTimeout = 30 * time.Second

	// DefaultBatchSize of 3 concurrent checks balances throughput against
	// API rate limits. Each check issues one vision call per persona, so
	// higher values multiply quickly.
	DefaultBatchSize = 3

	// DefaultMaxTextBytes limits the page text included in the prompt.
	// 20KB is sufficient for most pages while keeping prompts within
	// model context budgets.
	DefaultMaxTextBytes = 20 * 1024 // 20KB

	// DefaultConfidenceThreshold filters out low-confidence findings.
	// Bugs the model reports with confidence below this value are discarded
	// before aggregation.
	DefaultConfidenceThreshold = 0.7

	// DefaultViewportWidth and DefaultViewportHeight are the browser
	// viewport dimensions used when capturing screenshots.
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800

	// DefaultOutputDir is the directory for JSON result files and screenshots,
	// relative to the working directory.
	DefaultOutputDir = "cotestpilot_results"

	// DefaultScreenshotRetentionDays is how long screenshots are kept in
	// the output directory. Screenshots are by far the largest artifact a
	// check produces; the JSON results are kept indefinitely.
	DefaultScreenshotRetentionDays = 30

	// AppName is the application name used for XDG directory paths.
	AppName = "cotestpilot"
)

// Config holds all configuration options for coTestPilot.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., BrowserConfig, VisionConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
// If the configuration grows significantly, consider refactoring into sub-structs.
type Config struct {
	// Targets is the list of page URLs to check.
	// Must contain at least one URL.
	Targets []string

	// APIKey authenticates against the vision model API.
	// Populated from the GEMINI_API_KEY environment variable or --api-key.
	APIKey string

	// Model is the vision model identifier sent with each analysis request.
	Model string

	// Personas is the list of tester identifiers to check with.
	// Each entry matches a persona name exactly or a substring of a persona
	// biography (both case-insensitive). Empty means the default persona.
	Personas []string

	// PersonaFile is an optional JSON file with additional persona
	// definitions merged over the built-in set.
	PersonaFile string

	// CustomPrompt is free-form guidance added to every persona's prompt.
	// Site-specific custom prompts from the config file override it per URL.
	CustomPrompt string

	// Label is an optional tag attached to every check result,
	// used to group results from one test run.
	Label string

	// MinCheckInterval is the minimum interval between vision API calls.
	// Zero disables rate limiting.
	MinCheckInterval time.Duration

	// MaxRetries is the number of retries after a failed vision API call.
	MaxRetries int

	// RetryDelay is the pause between retry attempts.
	RetryDelay time.Duration

	// NavigationTimeout is the maximum time to wait for page navigation
	// and load before a check fails.
	NavigationTimeout time.Duration

	// BatchSize is the number of concurrent checks when processing multiple URLs.
	// Higher values increase throughput but may exceed API rate limits.
	BatchSize int

	// MaxTextBytes is the maximum page text size in bytes included in prompts.
	// Text larger than this is truncated. Set to 0 to use the default (20KB).
	MaxTextBytes int

	// ConfidenceThreshold discards bugs reported below this confidence.
	// Must be in [0, 1].
	ConfidenceThreshold float64

	// ViewportWidth and ViewportHeight are the browser viewport dimensions.
	ViewportWidth  int
	ViewportHeight int

	// FullPageScreenshot captures the entire scrollable page instead of
	// just the viewport.
	FullPageScreenshot bool

	// BrowserURL is the DevTools websocket URL of an already-running browser.
	// When empty, a headless browser is launched automatically.
	BrowserURL string

	// OutputDir is the directory for JSON result files and screenshots.
	OutputDir string

	// ScreenshotRetentionDays is how long screenshots in the output
	// directory are kept before being pruned. Zero disables pruning.
	ScreenshotRetentionDays int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport and HTMLReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// When true, outputs GitHub Flavored Markdown with tables, alerts, and pie charts.
	// Mutually exclusive with JSONReport and HTMLReport.
	MarkdownReport bool

	// HTMLReport enables standalone HTML report output with embedded screenshots.
	// Mutually exclusive with JSONReport and MarkdownReport.
	HTMLReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .cotestpilot in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	// This is populated by LoadConfigFile and used during checking.
	SiteConfigs *File

	// DBDir is the directory path for storing the SQLite database.
	// When set, check results are saved to the database for historical comparison.
	// When empty, check results are not persisted to the database.
	// Defaults to XDG data directory (~/.local/share/cotestpilot on Linux).
	DBDir string

	// SaveToDB indicates whether to save check results to the database.
	// This is automatically set to true when DBDir is configured.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, viewport).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Model:                   DefaultModel,
		MinCheckInterval:        DefaultMinCheckInterval,
		MaxRetries:              DefaultMaxRetries,
		RetryDelay:              DefaultRetryDelay,
		NavigationTimeout:       DefaultNavigationTimeout,
		BatchSize:               DefaultBatchSize,
		MaxTextBytes:            DefaultMaxTextBytes,
		ConfidenceThreshold:     DefaultConfidenceThreshold,
		ViewportWidth:           DefaultViewportWidth,
		ViewportHeight:          DefaultViewportHeight,
		OutputDir:               DefaultOutputDir,
		ScreenshotRetentionDays: DefaultScreenshotRetentionDays,
	}
}

// XDGDataDir returns the XDG data directory for coTestPilot.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/cotestpilot
// On macOS: ~/Library/Application Support/cotestpilot
// On Windows: %LOCALAPPDATA%\cotestpilot
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for coTestPilot.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/cotestpilot
// On macOS: ~/Library/Application Support/cotestpilot
// On Windows: %APPDATA%\cotestpilot
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for coTestPilot.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.cache/cotestpilot
// On macOS: ~/Library/Caches/cotestpilot
// On Windows: %LOCALAPPDATA%\cotestpilot\cache
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any checking begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// We must have at least one target to check
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	// The vision API cannot be called without a key
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// BatchSize must be positive; zero would mean no checking
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// Report formats are mutually exclusive
	formats := 0
	for _, enabled := range []bool{c.JSONReport, c.MarkdownReport, c.HTMLReport} {
		if enabled {
			formats++
		}
	}
	if formats > 1 {
		return ErrConflictingReportFormats
	}

	// MinCheckInterval must be non-negative
	if c.MinCheckInterval < 0 {
		return ErrInvalidCheckInterval
	}

	// MaxRetries must be non-negative
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	// ConfidenceThreshold must be a valid probability
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return ErrInvalidConfidence
	}

	// MaxTextBytes must be non-negative; 0 means use the default
	if c.MaxTextBytes < 0 {
		return ErrInvalidMaxTextBytes
	}

	// Retention must be non-negative; 0 disables pruning
	if c.ScreenshotRetentionDays < 0 {
		return ErrInvalidRetentionDays
	}

	return nil
}
