package browser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// navRetryBase is the backoff unit between navigation attempts; the k-th
// retry (k >= 1) waits navRetryBase << (k-1) first: 500ms, then 1s, 2s, ...
const navRetryBase = 500 * time.Millisecond

// Navigator loads URLs into pages under a wait policy with bounded retries.
type Navigator struct {
	cfg config.NavConfig
}

// BlockedResourceTypes exposes the configured resource-blocking list so
// the pool can mount the hijack router on new sessions.
func (n *Navigator) BlockedResourceTypes() []string {
	return n.cfg.BlockedResourceTypes
}

// NewNavigator creates a Navigator.
func NewNavigator(cfg config.NavConfig) *Navigator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Navigator{cfg: cfg}
}

// Navigate loads url into page and returns once the wait policy's condition
// is observed. Transient errors are retried with exponential backoff up to
// the configured attempt budget; the final failure is returned as a
// NAVIGATION_FAILED error. Context cancellation is never retried.
func (n *Navigator) Navigate(ctx context.Context, page *rod.Page, url string, wait models.WaitPolicy) error {
	var lastErr error

	for attempt := 0; attempt < n.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := navRetryBase << (attempt - 1)
			slog.Debug("retrying navigation", "url", url, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return models.NewServiceError(models.ErrCodeCanceled, "navigation canceled", ctx.Err())
			}
		}

		lastErr = n.navigateOnce(ctx, page, url, wait)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return models.NewServiceError(models.ErrCodeCanceled, "navigation canceled", lastErr)
		}
	}

	return models.NewServiceError(
		models.ErrCodeNavigation,
		"navigation failed after retries",
		lastErr,
	)
}

func (n *Navigator) navigateOnce(ctx context.Context, page *rod.Page, url string, wait models.WaitPolicy) error {
	attemptCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	p := page.Context(attemptCtx)

	// The request-idle listener must be registered before Navigate;
	// registering it afterwards misses in-flight requests and returns a
	// false idle immediately.
	var waitIdle func()
	if wait == models.WaitNetworkIdle {
		waitIdle = p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	}

	if err := p.Navigate(url); err != nil {
		return err
	}

	switch wait {
	case models.WaitNetworkIdle:
		waitIdle()
		return nil
	case models.WaitDOMContentLoaded:
		// DOM stability doubles as the DOMContentLoaded signal: the tree
		// has stopped mutating even if subresources are still loading.
		if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
		}
		return nil
	default: // models.WaitLoad
		return p.WaitLoad()
	}
}
