package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/cotestpilot/internal/model"
)

// visibleTextJS extracts the rendered text of the page body.
const visibleTextJS = `() => document.body ? document.body.innerText : ""`

// Session owns one browser process and captures page state from it.
// It is safe for sequential use; concurrent captures share the browser
// but run in separate incognito contexts.
type Session struct {
	browser *rod.Browser
	launch  *launcher.Launcher

	viewportWidth  int
	viewportHeight int
	navTimeout     time.Duration
	fullPage       bool
	controlURL     string
	logger         *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithViewport sets the browser viewport dimensions.
func WithViewport(width, height int) SessionOption {
	return func(s *Session) {
		if width > 0 && height > 0 {
			s.viewportWidth = width
			s.viewportHeight = height
		}
	}
}

// WithNavigationTimeout sets the maximum time to wait for navigation
// and page load.
func WithNavigationTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.navTimeout = d
		}
	}
}

// WithFullPageScreenshot captures the entire scrollable page instead of
// just the viewport.
func WithFullPageScreenshot(fullPage bool) SessionOption {
	return func(s *Session) {
		s.fullPage = fullPage
	}
}

// WithControlURL connects to an already-running browser at the given
// DevTools websocket URL instead of launching one.
func WithControlURL(url string) SessionOption {
	return func(s *Session) {
		s.controlURL = url
	}
}

// WithSessionLogger sets the logger for browser lifecycle events.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession launches a headless browser (or connects to an existing one)
// and returns a Session ready to capture pages. Close must be called to
// release the browser process.
func NewSession(ctx context.Context, opts ...SessionOption) (*Session, error) {
	s := &Session{
		viewportWidth:  1280,
		viewportHeight: 800,
		navTimeout:     30 * time.Second,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	controlURL := s.controlURL
	if controlURL == "" {
		s.launch = launcher.New().Headless(true)
		url, err := s.launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = url
		s.logger.Debug("launched headless browser", "control_url", controlURL)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if s.launch != nil {
			s.launch.Cleanup()
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	s.browser = browser
	return s, nil
}

// Close shuts down the browser and cleans up the launcher's temp files.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launch != nil {
		s.launch.Cleanup()
	}
	return err
}

// CaptureRequest describes one page capture.
type CaptureRequest struct {
	// URL is the page to capture.
	URL string

	// WaitSelector is an optional CSS selector the capture waits for
	// before snapshotting, for pages that render asynchronously.
	WaitSelector string

	// FullPage overrides the session's screenshot mode for this capture.
	// Nil keeps the session default.
	FullPage *bool
}

// Capture navigates to the requested page and snapshots its state:
// visible text, markup, and a PNG screenshot.
func (s *Session) Capture(ctx context.Context, req CaptureRequest) (*model.PageState, error) {
	incognito, err := s.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("create incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			s.logger.Debug("close page", "error", closeErr)
		}
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.viewportWidth,
		Height:            s.viewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Timeout(s.navTimeout).Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", req.URL, err)
	}
	if err := page.Timeout(s.navTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for page load: %w", err)
	}
	if req.WaitSelector != "" {
		if _, err := page.Timeout(s.navTimeout).Element(req.WaitSelector); err != nil {
			return nil, fmt.Errorf("wait for selector %q: %w", req.WaitSelector, err)
		}
	}

	state := &model.PageState{
		URL:        req.URL,
		CapturedAt: time.Now(),
	}

	if info, err := page.Info(); err == nil {
		state.Title = info.Title
		if info.URL != "" {
			state.URL = info.URL
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read page markup: %w", err)
	}
	state.HTML = html

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{JS: visibleTextJS})
	if err != nil || res.Value.Str() == "" {
		// Broken pages can fail script evaluation; fall back to parsing
		// the markup we already have.
		state.Text = ExtractText(html)
	} else {
		state.Text = res.Value.Str()
	}

	fullPage := s.fullPage
	if req.FullPage != nil {
		fullPage = *req.FullPage
	}
	screenshot, err := page.Context(ctx).Screenshot(fullPage, nil)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	state.Screenshot = screenshot

	s.logger.Debug("captured page",
		"url", state.URL,
		"title", state.Title,
		"text_bytes", len(state.Text),
		"screenshot_bytes", len(state.Screenshot))

	return state, nil
}
