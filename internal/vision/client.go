package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model replies with no text.
var ErrEmptyResponse = errors.New("empty model response")

// Request is one vision analysis request: the prompt and the page
// screenshot it refers to.
type Request struct {
	// Prompt is the full analysis prompt, including persona framing
	// and the page text excerpt.
	Prompt string

	// Screenshot is the PNG screenshot of the page.
	Screenshot []byte
}

// Analyzer sends an analysis request to a vision model and returns the
// raw response text.
//
// Design decision: The interface returns unparsed text rather than
// parsed bugs so the response can be stored verbatim alongside the
// parsed findings. Parsing failures then leave evidence to debug from.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// GeminiClient is an Analyzer backed by the Gemini API.
type GeminiClient struct {
	client          *genai.Client
	model           string
	limiter         *RateLimiter
	maxRetries      int
	retryDelay      time.Duration
	maxOutputTokens int32
	logger          *slog.Logger
}

// Option configures a GeminiClient.
type Option func(*GeminiClient)

// WithModel sets the model identifier used for analysis requests.
func WithModel(model string) Option {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRateLimiter sets the rate limiter shared across analysis calls.
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(c *GeminiClient) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithMaxRetries sets the number of retries after a failed API call.
func WithMaxRetries(n int) Option {
	return func(c *GeminiClient) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the pause between retry attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *GeminiClient) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithMaxOutputTokens caps the response length.
func WithMaxOutputTokens(n int32) Option {
	return func(c *GeminiClient) {
		if n > 0 {
			c.maxOutputTokens = n
		}
	}
}

// WithLogger sets the logger for request lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *GeminiClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGeminiClient creates a GeminiClient authenticated with the given API key.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create vision model client: %w", err)
	}

	c := &GeminiClient{
		client:          client,
		model:           "gemini-2.5-flash",
		limiter:         NewRateLimiter(0),
		maxRetries:      3,
		retryDelay:      2 * time.Second,
		maxOutputTokens: 4096,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Analyze sends the prompt and screenshot to the model and returns the
// response text. Calls wait on the shared rate limiter and are retried
// with a fixed delay on failure.
func (c *GeminiClient) Analyze(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
	}
	if len(req.Screenshot) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Screenshot, "image/png"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  c.maxOutputTokens,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying vision analysis",
				"attempt", attempt,
				"max_retries", c.maxRetries,
				"error", lastErr)

			timer := time.NewTimer(c.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err != nil {
			lastErr = err
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = ErrEmptyResponse
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("vision analysis failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
