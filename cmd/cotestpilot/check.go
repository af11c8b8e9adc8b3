package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/cotestpilot/internal/browser"
	"github.com/nao1215/cotestpilot/internal/check"
	"github.com/nao1215/cotestpilot/internal/config"
	"github.com/nao1215/cotestpilot/internal/database"
	"github.com/nao1215/cotestpilot/internal/log"
	"github.com/nao1215/cotestpilot/internal/model"
	"github.com/nao1215/cotestpilot/internal/persona"
	"github.com/nao1215/cotestpilot/internal/report"
	"github.com/nao1215/cotestpilot/internal/vision"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Check web pages for bugs using AI testing personas",
		Long: `Check captures each page with a headless browser and asks a vision-capable
AI model to review the screenshot and page text through the eyes of one or
more testing personas. Each persona reviews the page independently and
reports issues it finds; results are aggregated, saved, and rendered as a
report.

Personas are matched by name or by keywords in their biography, so
"--personas accessibility" selects every persona whose expertise mentions
accessibility.

Examples:
  # Check a single page with the default persona
  cotestpilot check https://staging.example.com

  # Check several pages with specific personas
  cotestpilot check --personas Jason,accessibility https://a.example.com https://b.example.com

  # Output a Markdown report to a file
  cotestpilot check --markdown -o report.md https://staging.example.com

  # Use a custom configuration file
  cotestpilot check -c myconfig.yaml https://staging.example.com

Configuration file (.cotestpilot) example:
  defaults:
    personas:
      - Jason
  sites:
    https://staging.example.com/checkout:
      label: checkout
      waitSelector: "#payment-form"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	// Persona flags
	cmd.Flags().StringSliceP("personas", "p", nil,
		"Tester personas to check with (names or biography keywords)")
	cmd.Flags().StringP("persona-file", "P", "",
		"JSON file with additional persona definitions")
	cmd.Flags().String("prompt", "",
		"Extra guidance added to every persona's prompt")

	// Vision API flags
	cmd.Flags().StringP("api-key", "k", "",
		"Vision API key (default: GEMINI_API_KEY environment variable)")
	cmd.Flags().StringP("model", "M", config.DefaultModel,
		"Vision model identifier")
	cmd.Flags().DurationP("interval", "i", config.DefaultMinCheckInterval,
		"Minimum interval between vision API calls (0 disables rate limiting)")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Number of retries after a failed API call")
	cmd.Flags().Float64P("confidence", "C", config.DefaultConfidenceThreshold,
		"Discard bugs reported below this confidence (0-1)")

	// Browser flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Timeout for page navigation and load")
	cmd.Flags().BoolP("full-page", "F", false,
		"Capture the entire scrollable page instead of just the viewport")
	cmd.Flags().StringP("browser-url", "B", "",
		"DevTools websocket URL of an already-running browser")
	cmd.Flags().Int("width", config.DefaultViewportWidth, "Browser viewport width")
	cmd.Flags().Int("height", config.DefaultViewportHeight, "Browser viewport height")

	// Batch checking flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent checks")

	// Result flags
	cmd.Flags().StringP("label", "l", "",
		"Label attached to every result for grouping")
	cmd.Flags().StringP("output-dir", "d", config.DefaultOutputDir,
		"Directory for JSON result files and screenshots")
	cmd.Flags().Bool("no-db", false,
		"Skip saving results to the history database")
	cmd.Flags().Int("retention-days", config.DefaultScreenshotRetentionDays,
		"Remove saved screenshots older than this many days (0 keeps them forever)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .cotestpilot in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown and --html)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json and --html)")
	cmd.Flags().BoolP("html", "H", false,
		"Output standalone HTML report (mutually exclusive with --json and --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with API key masking
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.Personas, err = cmd.Flags().GetStringSlice("personas")
	if err != nil {
		return nil, err
	}

	cfg.PersonaFile, err = cmd.Flags().GetString("persona-file")
	if err != nil {
		return nil, err
	}

	cfg.CustomPrompt, err = cmd.Flags().GetString("prompt")
	if err != nil {
		return nil, err
	}

	cfg.APIKey, err = cmd.Flags().GetString("api-key")
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	cfg.Model, err = cmd.Flags().GetString("model")
	if err != nil {
		return nil, err
	}

	cfg.MinCheckInterval, err = cmd.Flags().GetDuration("interval")
	if err != nil {
		return nil, err
	}

	cfg.MaxRetries, err = cmd.Flags().GetInt("retries")
	if err != nil {
		return nil, err
	}

	cfg.ConfidenceThreshold, err = cmd.Flags().GetFloat64("confidence")
	if err != nil {
		return nil, err
	}

	cfg.NavigationTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.FullPageScreenshot, err = cmd.Flags().GetBool("full-page")
	if err != nil {
		return nil, err
	}

	cfg.BrowserURL, err = cmd.Flags().GetString("browser-url")
	if err != nil {
		return nil, err
	}

	cfg.ViewportWidth, err = cmd.Flags().GetInt("width")
	if err != nil {
		return nil, err
	}

	cfg.ViewportHeight, err = cmd.Flags().GetInt("height")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.Label, err = cmd.Flags().GetString("label")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.ScreenshotRetentionDays, err = cmd.Flags().GetInt("retention-days")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.HTMLReport, err = cmd.Flags().GetBool("html")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}

	// Save to database using XDG data directory unless disabled
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	cfg.Verbose = getVerboseFlag(cmd)

	// Get positional arguments (page URLs)
	cfg.Targets = args

	return cfg, nil
}

// runCheck executes the check.
func runCheck(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting check",
		"targets", cfg.Targets,
		"personas", cfg.Personas,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.CheckDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Assemble the persona registry: built-ins, then config file
	// definitions, then the persona file
	registry, err := persona.NewRegistry()
	if err != nil {
		return err
	}
	if cfg.SiteConfigs != nil && len(cfg.SiteConfigs.Personas) > 0 {
		if err := registry.Merge(cfg.SiteConfigs.Personas); err != nil {
			return fmt.Errorf("invalid persona in config file: %w", err)
		}
	}
	if cfg.PersonaFile != "" {
		if err := registry.LoadFile(cfg.PersonaFile); err != nil {
			return err
		}
	}

	fmt.Println("Starting headless browser...")
	session, err := browser.NewSession(ctx,
		browser.WithViewport(cfg.ViewportWidth, cfg.ViewportHeight),
		browser.WithNavigationTimeout(cfg.NavigationTimeout),
		browser.WithFullPageScreenshot(cfg.FullPageScreenshot),
		browser.WithControlURL(cfg.BrowserURL),
		browser.WithSessionLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}()

	client, err := vision.NewGeminiClient(ctx, cfg.APIKey,
		vision.WithModel(cfg.Model),
		vision.WithRateLimiter(vision.NewRateLimiter(cfg.MinCheckInterval)),
		vision.WithMaxRetries(cfg.MaxRetries),
		vision.WithRetryDelay(cfg.RetryDelay),
		vision.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// The recorder keeps each page's screenshot so it can be stored
	// next to the result file after the check completes.
	recorder := newScreenshotRecorder(session)

	checker := check.NewChecker(recorder, client, registry,
		check.WithConfidenceThreshold(cfg.ConfidenceThreshold),
		check.WithMaxTextBytes(cfg.MaxTextBytes),
		check.WithCheckerLogger(logger),
	)

	store := report.NewStore(cfg.OutputDir)
	if cfg.ScreenshotRetentionDays > 0 {
		retention := time.Duration(cfg.ScreenshotRetentionDays) * 24 * time.Hour
		removed, err := store.PruneScreenshots(retention)
		if err != nil {
			logger.Warn("failed to prune old screenshots", "error", err)
		} else if removed > 0 {
			logger.Info("pruned old screenshots", "removed", removed, "retentionDays", cfg.ScreenshotRetentionDays)
		}
	}

	requests := buildRequests(cfg)

	// Use batch processor for parallel checking if multiple targets
	if len(requests) > 1 && cfg.BatchSize > 1 {
		return runBatchCheck(ctx, cfg, checker, recorder, store, db, requests, logger)
	}

	// Single target or sequential checking
	return runSequentialCheck(ctx, cfg, checker, recorder, store, db, requests, logger)
}

// buildRequests turns the configured targets into check requests,
// applying site-specific configuration per URL.
func buildRequests(cfg *config.Config) []check.Request {
	requests := make([]check.Request, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		req := check.Request{
			URL:          target,
			Label:        cfg.Label,
			Personas:     cfg.Personas,
			CustomPrompt: cfg.CustomPrompt,
		}
		if cfg.SiteConfigs != nil {
			site := cfg.SiteConfigs.GetSiteConfig(target)
			if site.Label != "" {
				req.Label = site.Label
			}
			if len(site.Personas) > 0 && len(cfg.Personas) == 0 {
				req.Personas = site.Personas
			}
			if site.CustomPrompt != "" {
				req.CustomPrompt = site.CustomPrompt
			}
			req.WaitSelector = site.WaitSelector
			req.Rules = site.Rules
			req.FullPage = site.FullPage
		}
		requests = append(requests, req)
	}
	return requests
}

// runSequentialCheck checks targets one at a time.
func runSequentialCheck(ctx context.Context, cfg *config.Config, checker *check.Checker, recorder *screenshotRecorder, store *report.Store, db *database.CheckDB, requests []check.Request, logger *slog.Logger) error {
	results := make([]*model.CheckResult, 0, len(requests))
	for _, req := range requests {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Checking %s...\n", req.URL)
		startTime := time.Now()

		result, err := checker.Run(ctx, req)
		if err != nil {
			logger.Error("check failed", "url", req.URL, "error", err)
			fmt.Fprintf(os.Stderr, "Check error for %s: %v\n", req.URL, err)
			continue
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Check completed in %s (%d bugs)\n\n",
			elapsed.Round(time.Millisecond), result.TotalBugs())

		persistResult(ctx, cfg, recorder, store, db, result, logger)
		results = append(results, result)
	}

	return outputReport(cfg, results)
}

// runBatchCheck checks multiple targets concurrently using BatchProcessor.
func runBatchCheck(ctx context.Context, cfg *config.Config, checker *check.Checker, recorder *screenshotRecorder, store *report.Store, db *database.CheckDB, requests []check.Request, logger *slog.Logger) error {
	fmt.Printf("Starting batch check of %d pages (concurrency: %d)...\n\n",
		len(requests), cfg.BatchSize)

	startTime := time.Now()

	bp := check.NewBatchProcessor(checker,
		check.WithConcurrency(cfg.BatchSize),
		check.WithBatchLogger(logger),
	)

	// Process with callback for streaming output
	var mu sync.Mutex
	results := make([]*model.CheckResult, len(requests))
	err := bp.ProcessBatchWithCallback(ctx, requests, func(result *model.CheckResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Printf("[%d/%d] Check completed: %s (%d bugs)\n",
			index+1, len(requests), result.URL, result.TotalBugs())

		persistResult(ctx, cfg, recorder, store, db, result, logger)
		results[index] = result
	})
	if err != nil {
		return err
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch check completed in %s\n\n", elapsed.Round(time.Millisecond))

	// Drop slots for checks that never produced a result
	completed := make([]*model.CheckResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			completed = append(completed, r)
		}
	}
	return outputReport(cfg, completed)
}

// persistResult writes the result and its screenshot to the output
// directory and, when enabled, to the history database. Persistence
// failures are logged, not fatal: the check itself succeeded.
func persistResult(ctx context.Context, cfg *config.Config, recorder *screenshotRecorder, store *report.Store, db *database.CheckDB, result *model.CheckResult, logger *slog.Logger) {
	screenshot := recorder.take(result.URL)
	if err := store.Save(result, screenshot); err != nil {
		logger.Error("failed to save check result", "url", result.URL, "error", err)
	}

	if db == nil {
		return
	}
	if err := db.SaveCheckReport(ctx, result); err != nil {
		logger.Error("failed to save check report to database", "url", result.URL, "error", err)
		return
	}
	logger.Info("check report saved to database", "url", result.URL)

	if !cfg.Verbose {
		return
	}
	logger.Debug("result persisted",
		"url", result.URL,
		"output_file", result.OutputFile,
		"screenshot", result.ScreenshotPath)
}

// outputReport renders the collected results in the requested format.
func outputReport(cfg *config.Config, results []*model.CheckResult) error {
	if len(results) == 0 {
		return errors.New("no checks completed")
	}

	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with secure permissions (0600)
		// Reports may contain page content that should only be readable by the owner
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	writer, err := selectWriter(cfg, output)
	if err != nil {
		return err
	}
	_, err = writer.WriteBatch(results)
	return err
}

// selectWriter picks the report writer matching the configured format.
func selectWriter(cfg *config.Config, output *os.File) (report.Writer, error) {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint()), nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), nil
	case cfg.HTMLReport:
		w, err := report.NewHTMLWriter(output)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose)), nil
	}
}

// screenshotRecorder wraps a Capturer and remembers the screenshot of
// each captured page so it can be saved after the check completes.
// Safe for concurrent use by batch checks.
type screenshotRecorder struct {
	inner check.Capturer

	mu    sync.Mutex
	shots map[string][]byte
}

func newScreenshotRecorder(inner check.Capturer) *screenshotRecorder {
	return &screenshotRecorder{
		inner: inner,
		shots: make(map[string][]byte),
	}
}

// Capture delegates to the wrapped Capturer and records the screenshot
// under both the requested and the final (post-redirect) URL.
func (r *screenshotRecorder) Capture(ctx context.Context, req browser.CaptureRequest) (*model.PageState, error) {
	state, err := r.inner.Capture(ctx, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.shots[req.URL] = state.Screenshot
	if state.URL != "" {
		r.shots[state.URL] = state.Screenshot
	}
	r.mu.Unlock()

	return state, nil
}

// take returns and removes the recorded screenshot for url.
func (r *screenshotRecorder) take(url string) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	shot := r.shots[url]
	delete(r.shots, url)
	return shot
}
