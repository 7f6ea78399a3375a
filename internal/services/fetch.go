package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soracane/lastgen/internal/shared"
)

// RetryPolicy retries a remote call a fixed number of times with a fixed
// delay between attempts. Only transient failures are retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// isTransient classifies an error as worth retrying: transport/HTTP failures
// and protocol violations (a well-formed response missing expected envelope
// keys counts as a failed attempt, not a successful empty one).
func isTransient(err error) bool {
	return errors.Is(err, shared.ErrAPIRequest) ||
		errors.Is(err, shared.ErrServiceUnavailable) ||
		errors.Is(err, shared.ErrProtocolViolation)
}

// Do runs fn until it succeeds, exhausts the retry budget, or fails with a
// non-transient error. op names the call for logging.
func (p RetryPolicy) Do(ctx context.Context, logger *log.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}

		logger.Error("request failed", "op", op, "attempt", attempt, "error", err)

		if attempt < attempts {
			select {
			case <-time.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}

// PageFetch fetches one page of a paginated endpoint, returning the page's
// records and the total page count reported by the response envelope.
type PageFetch[T any] func(ctx context.Context, page int) ([]T, int, error)

// fetchPageWithRetry wraps a single page fetch in the retry policy.
func fetchPageWithRetry[T any](ctx context.Context, logger *log.Logger, policy RetryPolicy, fetch PageFetch[T], page int) ([]T, int, error) {
	var records []T
	var total int

	err := policy.Do(ctx, logger, fmt.Sprintf("fetch page %d", page), func() error {
		var err error
		records, total, err = fetch(ctx, page)
		return err
	})

	return records, total, err
}

// FetchPages fetches every page of a paginated endpoint.
//
// Page 1 is fetched alone to learn the total page count; the remaining pages
// run with at most limit requests in flight. Results are assembled in
// page-number order regardless of completion order. A page that exhausts its
// retry budget contributes an empty result and a page-level error log; only a
// failure on page 1 (where the total is still unknown) fails the whole fetch.
func FetchPages[T any](ctx context.Context, logger *log.Logger, policy RetryPolicy, limit int, fetch PageFetch[T]) ([][]T, error) {
	first, total, err := fetchPageWithRetry(ctx, logger, policy, fetch, 1)
	if err != nil {
		return nil, err
	}

	if total < 1 {
		total = 1
	}
	pages := make([][]T, total)
	pages[0] = first

	if total == 1 {
		return pages, nil
	}

	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for page := 2; page <= total; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			records, _, err := fetchPageWithRetry(ctx, logger, policy, fetch, page)
			if err != nil {
				logger.Error("page abandoned", "page", page, "error", err)
				return
			}
			// Each goroutine writes its own slot; no shared index.
			pages[page-1] = records
		}(page)
	}
	wg.Wait()

	return pages, nil
}
