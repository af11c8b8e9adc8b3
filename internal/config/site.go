package config

import "github.com/nao1215/cotestpilot/internal/model"

// SiteConfig holds site-specific configuration for a single URL prefix.
// This allows customizing check behavior per page or per environment.
type SiteConfig struct {
	// Label overrides the global label for results from this site.
	Label string `yaml:"label,omitempty"`

	// Personas overrides the global tester identifiers for this site.
	Personas []string `yaml:"personas,omitempty"`

	// WaitSelector is a CSS selector to wait for before capturing the page.
	// Useful for pages that render their content asynchronously.
	WaitSelector string `yaml:"waitSelector,omitempty"`

	// FullPage overrides the global full-page screenshot setting.
	FullPage *bool `yaml:"fullPage,omitempty"`

	// CustomPrompt overrides the global custom prompt for this site.
	CustomPrompt string `yaml:"customPrompt,omitempty"`

	// Rules are named check rules added to every persona's prompt for
	// this site, e.g. "no-lorem-ipsum": "flag any placeholder text".
	Rules map[string]string `yaml:"rules,omitempty"`
}

// File represents the structure of the .cotestpilot configuration file.
type File struct {
	// Sites maps URL prefixes to their site-specific configurations.
	// The longest matching prefix wins.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Personas are additional persona definitions merged over the
	// built-in set. A persona here with a built-in name replaces it.
	Personas []model.Persona `yaml:"personas,omitempty"`
}

// GetSiteConfig returns the configuration for a specific URL.
// It merges the longest-prefix site configuration with defaults.
func (cf *File) GetSiteConfig(url string) SiteConfig {
	// Start with defaults
	result := cf.Defaults

	// Find the longest matching URL prefix
	var bestPrefix string
	for prefix := range cf.Sites {
		if len(prefix) > len(bestPrefix) && hasPrefix(url, prefix) {
			bestPrefix = prefix
		}
	}
	if bestPrefix == "" {
		return result
	}

	siteConfig := cf.Sites[bestPrefix]
	if siteConfig.Label != "" {
		result.Label = siteConfig.Label
	}
	if len(siteConfig.Personas) > 0 {
		result.Personas = siteConfig.Personas
	}
	if siteConfig.WaitSelector != "" {
		result.WaitSelector = siteConfig.WaitSelector
	}
	if siteConfig.FullPage != nil {
		result.FullPage = siteConfig.FullPage
	}
	if siteConfig.CustomPrompt != "" {
		result.CustomPrompt = siteConfig.CustomPrompt
	}
	if len(siteConfig.Rules) > 0 {
		// Site rules add to the default rules instead of replacing them,
		// with same-named rules overridden per site.
		merged := make(map[string]string, len(result.Rules)+len(siteConfig.Rules))
		for name, rule := range result.Rules {
			merged[name] = rule
		}
		for name, rule := range siteConfig.Rules {
			merged[name] = rule
		}
		result.Rules = merged
	}

	return result
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
