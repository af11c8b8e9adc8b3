package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// This test ensures that defaults are documented through tests and that changes
// to defaults are intentional (tests will fail if defaults change unexpectedly).
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	// Verify each default value explicitly
	// This serves as living documentation of the defaults
	t.Run("default Model is gemini-2.5-flash", func(t *testing.T) {
		t.Parallel()
		if cfg.Model != "gemini-2.5-flash" {
			t.Errorf("expected Model to be 'gemini-2.5-flash', got '%s'", cfg.Model)
		}
	})

	t.Run("default MinCheckInterval is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.MinCheckInterval != 10*time.Second {
			t.Errorf("expected MinCheckInterval to be 10s, got %v", cfg.MinCheckInterval)
		}
	})

	t.Run("default MaxRetries is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 3 {
			t.Errorf("expected MaxRetries to be 3, got %d", cfg.MaxRetries)
		}
	})

	t.Run("default NavigationTimeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.NavigationTimeout != 30*time.Second {
			t.Errorf("expected NavigationTimeout to be 30s, got %v", cfg.NavigationTimeout)
		}
	})

	t.Run("default BatchSize is 3", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 3 {
			t.Errorf("expected BatchSize to be 3, got %d", cfg.BatchSize)
		}
	})

	t.Run("default ConfidenceThreshold is 0.7", func(t *testing.T) {
		t.Parallel()
		if cfg.ConfidenceThreshold != 0.7 {
			t.Errorf("expected ConfidenceThreshold to be 0.7, got %v", cfg.ConfidenceThreshold)
		}
	})

	t.Run("default viewport is 1280x800", func(t *testing.T) {
		t.Parallel()
		if cfg.ViewportWidth != 1280 || cfg.ViewportHeight != 800 {
			t.Errorf("expected viewport 1280x800, got %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
		}
	})

	t.Run("default OutputDir is cotestpilot_results", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputDir != "cotestpilot_results" {
			t.Errorf("expected OutputDir to be 'cotestpilot_results', got '%s'", cfg.OutputDir)
		}
	})

	t.Run("default ScreenshotRetentionDays is 30", func(t *testing.T) {
		t.Parallel()
		if cfg.ScreenshotRetentionDays != 30 {
			t.Errorf("expected ScreenshotRetentionDays to be 30, got %d", cfg.ScreenshotRetentionDays)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	// Tests can modify specific fields to test validation rules.
	validConfig := func() *Config {
		return &Config{
			Targets:             []string{"https://example.com"},
			APIKey:              "test-key",
			NavigationTimeout:   30 * time.Second,
			BatchSize:           3,
			ConfidenceThreshold: 0.7,
		}
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("empty targets returns ErrNoTarget", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Targets = nil

		err := cfg.Validate()
		if !errors.Is(err, ErrNoTarget) {
			t.Errorf("expected ErrNoTarget, got %v", err)
		}
	})

	t.Run("missing API key returns ErrMissingAPIKey", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.APIKey = ""

		err := cfg.Validate()
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("expected ErrMissingAPIKey, got %v", err)
		}
	})

	t.Run("zero timeout returns ErrInvalidTimeout", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.NavigationTimeout = 0

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("zero batch size returns ErrInvalidBatchSize", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = 0

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", err)
		}
	})

	t.Run("json and markdown both enabled returns ErrConflictingReportFormats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true
		cfg.MarkdownReport = true

		err := cfg.Validate()
		if !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("markdown and html both enabled returns ErrConflictingReportFormats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MarkdownReport = true
		cfg.HTMLReport = true

		err := cfg.Validate()
		if !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("html only is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.HTMLReport = true

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("negative check interval returns ErrInvalidCheckInterval", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MinCheckInterval = -1 * time.Second

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidCheckInterval) {
			t.Errorf("expected ErrInvalidCheckInterval, got %v", err)
		}
	})

	t.Run("zero check interval is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MinCheckInterval = 0

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("negative retries returns ErrInvalidRetries", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxRetries = -1

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidRetries) {
			t.Errorf("expected ErrInvalidRetries, got %v", err)
		}
	})

	t.Run("confidence above one returns ErrInvalidConfidence", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ConfidenceThreshold = 1.5

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfidence) {
			t.Errorf("expected ErrInvalidConfidence, got %v", err)
		}
	})

	t.Run("negative confidence returns ErrInvalidConfidence", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ConfidenceThreshold = -0.1

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidConfidence) {
			t.Errorf("expected ErrInvalidConfidence, got %v", err)
		}
	})

	t.Run("negative max text bytes returns ErrInvalidMaxTextBytes", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.MaxTextBytes = -1

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidMaxTextBytes) {
			t.Errorf("expected ErrInvalidMaxTextBytes, got %v", err)
		}
	})

	t.Run("negative retention days returns ErrInvalidRetentionDays", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ScreenshotRetentionDays = -1

		err := cfg.Validate()
		if !errors.Is(err, ErrInvalidRetentionDays) {
			t.Errorf("expected ErrInvalidRetentionDays, got %v", err)
		}
	})
}

// TestFileGetSiteConfig tests the GetSiteConfig method.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when no prefix matches", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Label:    "smoke",
				Personas: []string{"Jason"},
			},
			Sites: map[string]SiteConfig{},
		}

		cfg := file.GetSiteConfig("https://unknown.example.com/page")
		if cfg.Label != "smoke" {
			t.Errorf("expected label 'smoke', got %q", cfg.Label)
		}
		if len(cfg.Personas) != 1 || cfg.Personas[0] != "Jason" {
			t.Errorf("expected default personas, got %v", cfg.Personas)
		}
	})

	t.Run("returns site-specific config", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Label: "smoke",
			},
			Sites: map[string]SiteConfig{
				"https://shop.example.com": {
					Label:        "checkout",
					WaitSelector: "#cart",
				},
			},
		}

		cfg := file.GetSiteConfig("https://shop.example.com/cart")
		if cfg.Label != "checkout" {
			t.Errorf("expected label 'checkout', got %q", cfg.Label)
		}
		if cfg.WaitSelector != "#cart" {
			t.Errorf("expected wait selector '#cart', got %q", cfg.WaitSelector)
		}
	})

	t.Run("longest prefix wins", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Sites: map[string]SiteConfig{
				"https://example.com":       {Label: "site"},
				"https://example.com/admin": {Label: "admin"},
			},
		}

		cfg := file.GetSiteConfig("https://example.com/admin/users")
		if cfg.Label != "admin" {
			t.Errorf("expected label 'admin', got %q", cfg.Label)
		}
	})

	t.Run("site rules merge over default rules", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				CustomPrompt: "Global guidance.",
				Rules: map[string]string{
					"no-lorem-ipsum": "flag any placeholder text",
					"brand-color":    "the primary button must be green",
				},
			},
			Sites: map[string]SiteConfig{
				"https://example.com": {
					CustomPrompt: "Staging site, ignore the debug banner.",
					Rules: map[string]string{
						"brand-color": "the primary button must be blue",
					},
				},
			},
		}

		cfg := file.GetSiteConfig("https://example.com/page")
		if cfg.CustomPrompt != "Staging site, ignore the debug banner." {
			t.Errorf("expected site custom prompt, got %q", cfg.CustomPrompt)
		}
		if cfg.Rules["no-lorem-ipsum"] != "flag any placeholder text" {
			t.Errorf("expected default rule to survive, got %v", cfg.Rules)
		}
		if cfg.Rules["brand-color"] != "the primary button must be blue" {
			t.Errorf("expected site rule to override, got %v", cfg.Rules)
		}
	})

	t.Run("empty site fields fall back to defaults", func(t *testing.T) {
		t.Parallel()

		file := &File{
			Defaults: SiteConfig{
				Label:    "smoke",
				Personas: []string{"Jason"},
			},
			Sites: map[string]SiteConfig{
				"https://example.com": {
					WaitSelector: "#app", // no label or personas
				},
			},
		}

		cfg := file.GetSiteConfig("https://example.com/")
		if cfg.Label != "smoke" {
			t.Errorf("expected default label, got %q", cfg.Label)
		}
		if len(cfg.Personas) != 1 || cfg.Personas[0] != "Jason" {
			t.Errorf("expected default personas, got %v", cfg.Personas)
		}
		if cfg.WaitSelector != "#app" {
			t.Errorf("expected site wait selector, got %q", cfg.WaitSelector)
		}
	})
}

// TestLoadConfigFile tests loading the YAML configuration file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads valid config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		content := `defaults:
  personas:
    - Jason
sites:
  "https://example.com":
    label: production
    waitSelector: "#main"
personas:
  - name: Dana
    biography: Database reliability engineer focused on data consistency.
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cf.Defaults.Personas[0] != "Jason" {
			t.Errorf("expected default persona Jason, got %v", cf.Defaults.Personas)
		}
		site := cf.Sites["https://example.com"]
		if site.Label != "production" || site.WaitSelector != "#main" {
			t.Errorf("unexpected site config: %+v", site)
		}
		if len(cf.Personas) != 1 || cf.Personas[0].Name != "Dana" {
			t.Errorf("expected persona Dana, got %v", cf.Personas)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites: [not a map"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid yaml, got nil")
		}
	})

	t.Run("nil sites map is initialized", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults:\n  label: smoke\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the config file search order.
func TestFindConfigFile(t *testing.T) {
	t.Run("explicit path that exists is returned", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "custom.yml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("explicit path that does not exist returns empty", func(t *testing.T) {
		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}
