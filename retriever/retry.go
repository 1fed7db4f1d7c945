package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/deckfetch/config"
	"github.com/use-agent/deckfetch/models"
)

// opKind selects the backoff curve. Navigation failures are usually
// network weather, so they back off exponentially; capture failures are
// usually a slow renderer, where a flat pause is enough.
type opKind int

const (
	opNavigation opKind = iota
	opCapture
)

func (k opKind) String() string {
	if k == opCapture {
		return "capture"
	}
	return "navigation"
}

// retryPolicy retries transient failures up to maxAttempts total attempts.
// Terminal errors (anything models.IsTransient rejects) abort immediately:
// retrying a rejected credential or a bad reference cannot succeed and
// may cause side effects on the remote service.
type retryPolicy struct {
	maxAttempts  int
	navBase      time.Duration
	captureDelay time.Duration

	// sleep is swappable so tests can observe intervals without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRetryPolicy(cfg config.RetryConfig) *retryPolicy {
	return &retryPolicy{
		maxAttempts:  cfg.MaxAttempts,
		navBase:      cfg.NavigationBase,
		captureDelay: cfg.CaptureDelay,
		sleep:        sleepCtx,
	}
}

// delay returns the pause before the attempt following failure number
// `attempt` (1-based): navigation doubles each time (base, 2x, 4x, ...),
// capture stays flat.
func (p *retryPolicy) delay(kind opKind, attempt int) time.Duration {
	if kind == opCapture {
		return p.captureDelay
	}
	return p.navBase << (attempt - 1)
}

// do runs fn until it succeeds, exhausts maxAttempts, or fails terminally.
// Exhaustion is itself terminal: the transient cause is wrapped in a
// SCRAPE_FAILED error so callers never see a "transient" error that has
// already used up its retries.
func (p *retryPolicy) do(ctx context.Context, kind opKind, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !models.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == p.maxAttempts {
			break
		}

		d := p.delay(kind, attempt)
		slog.Warn("transient failure, retrying",
			"op", kind.String(),
			"attempt", attempt,
			"maxAttempts", p.maxAttempts,
			"backoff", d,
			"error", lastErr,
		)
		if err := p.sleep(ctx, d); err != nil {
			return lastErr
		}
	}
	return models.NewRetrievalError(
		models.ErrCodeScrape,
		fmt.Sprintf("%s failed after %d attempts", kind, p.maxAttempts),
		lastErr,
	)
}
