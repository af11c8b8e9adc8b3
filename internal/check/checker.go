package check

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/cotestpilot/internal/browser"
	"github.com/nao1215/cotestpilot/internal/model"
	"github.com/nao1215/cotestpilot/internal/persona"
	"github.com/nao1215/cotestpilot/internal/vision"
)

// Capturer captures the state of a page for analysis.
// *browser.Session is the production implementation.
type Capturer interface {
	Capture(ctx context.Context, req browser.CaptureRequest) (*model.PageState, error)
}

// Request describes one page check.
type Request struct {
	// URL is the page to check.
	URL string

	// Label is an optional tag attached to the result.
	Label string

	// Personas are tester identifiers to resolve. Empty means the
	// default persona.
	Personas []string

	// WaitSelector is an optional CSS selector to wait for before
	// capturing the page.
	WaitSelector string

	// FullPage overrides the capturer's screenshot mode for this check.
	// Nil keeps the capturer default.
	FullPage *bool

	// Rules are named check rules added to every persona's prompt,
	// e.g. "no-lorem-ipsum": "flag any placeholder text".
	Rules map[string]string

	// CustomPrompt is free-form guidance added to every persona's prompt.
	CustomPrompt string
}

// Checker runs AI page checks.
//
// Design decision: The page is captured once per check and the same
// snapshot is shared by all personas. Capturing per persona would be
// slower and would let the page change between personas, making their
// findings incomparable.
type Checker struct {
	capturer Capturer
	analyzer vision.Analyzer
	registry *persona.Registry

	confidenceThreshold float64
	maxTextBytes        int
	logger              *slog.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithConfidenceThreshold discards bugs reported below this confidence.
func WithConfidenceThreshold(threshold float64) CheckerOption {
	return func(c *Checker) {
		if threshold >= 0 && threshold <= 1 {
			c.confidenceThreshold = threshold
		}
	}
}

// WithMaxTextBytes limits the page text included in prompts.
func WithMaxTextBytes(n int) CheckerOption {
	return func(c *Checker) {
		if n > 0 {
			c.maxTextBytes = n
		}
	}
}

// WithCheckerLogger sets the logger for check lifecycle events.
func WithCheckerLogger(logger *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a Checker.
func NewChecker(capturer Capturer, analyzer vision.Analyzer, registry *persona.Registry, opts ...CheckerOption) *Checker {
	c := &Checker{
		capturer:            capturer,
		analyzer:            analyzer,
		registry:            registry,
		confidenceThreshold: 0.7,
		maxTextBytes:        20 * 1024,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one page check and returns the aggregated result.
//
// A capture failure aborts the check. A failed analysis for one persona
// is recorded on that persona's findings and does not abort the others,
// so one flaky API call can't discard an entire check.
func (c *Checker) Run(ctx context.Context, req Request) (*model.CheckResult, error) {
	result := model.NewCheckResult(req.URL)
	result.Label = req.Label

	state, err := c.capturer.Capture(ctx, browser.CaptureRequest{
		URL:          req.URL,
		WaitSelector: req.WaitSelector,
		FullPage:     req.FullPage,
	})
	if err != nil {
		result.Error = err
		result.ErrorMessage = err.Error()
		return result, fmt.Errorf("capture page %s: %w", req.URL, err)
	}
	result.URL = state.URL
	result.Title = state.Title

	personas := c.registry.Resolve(req.Personas, c.logger)
	c.logger.Debug("starting page check",
		"url", state.URL,
		"personas", len(personas))

	for _, p := range personas {
		findings := c.runPersona(ctx, p, state, req)
		result.AddFindings(findings)

		if err := ctx.Err(); err != nil {
			result.Error = err
			result.ErrorMessage = err.Error()
			return result, err
		}
	}

	c.logger.Debug("page check complete",
		"url", state.URL,
		"total_bugs", result.TotalBugs())

	return result, nil
}

// runPersona performs one vision analysis for a single persona.
func (c *Checker) runPersona(ctx context.Context, p model.Persona, state *model.PageState, req Request) model.PersonaFindings {
	findings := model.PersonaFindings{
		Persona:   p.Name,
		Biography: p.Biography,
	}

	prompt := BuildPrompt(p, state, PromptOptions{
		MaxTextBytes: c.maxTextBytes,
		Rules:        req.Rules,
		CustomPrompt: req.CustomPrompt,
	})
	raw, err := c.analyzer.Analyze(ctx, vision.Request{
		Prompt:     prompt,
		Screenshot: state.Screenshot,
	})
	if err != nil {
		c.logger.Warn("vision analysis failed",
			"persona", p.Name,
			"url", state.URL,
			"error", err)
		findings.Error = err.Error()
		return findings
	}
	findings.RawResponse = raw

	bugs, err := vision.ParseBugs(raw, c.confidenceThreshold)
	if err != nil {
		c.logger.Warn("failed to parse model response",
			"persona", p.Name,
			"url", state.URL,
			"error", err)
		findings.Error = err.Error()
		return findings
	}

	for i := range bugs {
		bugs[i].Persona = p.Name
	}
	findings.Bugs = bugs
	return findings
}
