package check

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/cotestpilot/internal/model"
)

// BatchProcessor handles concurrent checking of multiple pages.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Checker because:
// 1. It keeps the Checker focused on single-check execution
// 2. It allows different batch strategies (e.g., per-site throttling)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// checker runs the individual checks. The Checker is safe for
	// concurrent use: the shared vision rate limiter serializes API
	// calls and each capture runs in its own incognito context.
	checker *Checker

	// concurrency is the maximum number of concurrent checks.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed check results.
	// Access is synchronized via mutex.
	results []*model.CheckResult
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent checks.
// Default is 3 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(checker *Checker, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		checker:     checker,
		concurrency: 3,
		results:     make([]*model.CheckResult, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch checks multiple pages concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each page gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all results collected, even for pages that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, requests []Request) ([]*model.CheckResult, error) {
	bp.logger.Info("starting batch checking",
		"total_pages", len(requests),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.CheckResult, len(requests))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("checking page",
				"url", req.URL,
				"index", i+1,
				"total", len(requests),
			)

			result, err := bp.checker.Run(ctx, req)

			// Store result regardless of error
			// The result contains error information if the check failed
			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("check failed",
					"url", req.URL,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other checks
				// The error is recorded in the result
				return nil
			}

			bp.logger.Info("check completed",
				"url", req.URL,
				"bugs", result.TotalBugs(),
			)

			return nil
		})
	}

	// Wait for all checks to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch checking complete",
		"total_pages", len(requests),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback checks multiple pages and calls a callback
// for each completed check. This is useful for streaming results.
//
// The callback receives the result and the index of the page in the
// original slice. The callback is called from the goroutine that completed
// the check, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	requests []Request,
	callback func(result *model.CheckResult, index int),
) error {
	bp.logger.Info("starting batch checking with callback",
		"total_pages", len(requests),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			result, _ := bp.checker.Run(ctx, req) //nolint:errcheck // Error is stored in result

			// Call the callback with the result
			callback(result, i)

			return nil
		})
	}

	return g.Wait()
}
