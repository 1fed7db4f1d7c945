package retriever

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/deckfetch/domhash"
	"github.com/use-agent/deckfetch/models"
	"golang.org/x/time/rate"
)

// fingerprintThreshold is the Hamming distance below which two page
// fingerprints count as "the same page". Live viewers mutate a handful of
// bits per snapshot (timers, visit beacons) without the page changing.
const fingerprintThreshold = 3

// viewerDriver is the slice of Session the capture loop needs. The loop's
// ordering and completeness behavior is tested against a fake driver;
// Session is the only production implementation.
type viewerDriver interface {
	// ResetToFirstPage puts the viewer on page 1.
	ResetToFirstPage(ctx context.Context) error

	// CapturePage screenshots the currently displayed page.
	CapturePage(ctx context.Context) ([]byte, error)

	// AdvancePage moves the viewer forward one page and verifies the
	// displayed content actually changed.
	AdvancePage(ctx context.Context) error
}

// captureAll walks the document front to back and captures every page.
//
// The result is all-or-nothing: any page that still fails after retries
// aborts the walk with an error carrying that page's index. Captures are
// appended strictly in page order, so indexes in the returned slice are
// dense and increasing — a partial document is never silently returned.
func captureAll(
	ctx context.Context,
	d viewerDriver,
	pageCount int,
	policy *retryPolicy,
	limiter *rate.Limiter,
	progress ProgressFunc,
) ([]models.PageCapture, error) {
	if err := d.ResetToFirstPage(ctx); err != nil {
		return nil, err
	}

	captures := make([]models.PageCapture, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, models.NewPageError(models.ErrCodeScrape,
					"canceled while pacing captures", page, err)
			}
		}

		var png []byte
		err := policy.do(ctx, opCapture, func() error {
			var capErr error
			png, capErr = d.CapturePage(ctx)
			return capErr
		})
		if err != nil {
			return nil, pinPage(err, page)
		}

		captures = append(captures, models.PageCapture{
			Index:      page,
			PNG:        png,
			CapturedAt: time.Now(),
		})
		if progress != nil {
			progress(page, pageCount)
		}

		// No advance past the last page: the viewer wraps or no-ops on
		// overshoot and either would poison a change-verified advance.
		if page == pageCount {
			break
		}
		if err := policy.do(ctx, opNavigation, func() error {
			return d.AdvancePage(ctx)
		}); err != nil {
			return nil, pinPage(err, page+1)
		}
	}
	return captures, nil
}

// pinPage stamps the failing page index onto a RetrievalError that does
// not carry one yet.
func pinPage(err error, page int) error {
	if re, ok := err.(*models.RetrievalError); ok && re.Page == 0 {
		re.Page = page
		return re
	}
	return models.NewPageError(models.ErrCodeScrape, "page capture failed", page, err)
}

// ResetToFirstPage sends the viewer back to page 1. The viewer honors the
// Home key; after auth and discovery the page is normally already on the
// first page, so a failed keystroke only logs.
func (s *Session) ResetToFirstPage(ctx context.Context) error {
	p := s.page.Context(ctx)
	if err := p.Keyboard.Press(input.Home); err != nil {
		slog.Debug("home key reset failed, assuming first page", "error", err)
	}
	return sleepCtx(ctx, s.retrCfg.SettleDelay)
}

// CapturePage waits for the render to settle and screenshots the viewport.
func (s *Session) CapturePage(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.retrCfg.CaptureTimeout)
	defer cancel()

	p := s.page.Context(ctx)
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("capture: DOM not stable, capturing anyway", "error", err)
	}
	if err := sleepCtx(ctx, s.retrCfg.SettleDelay); err != nil {
		return nil, models.NewRetrievalError(models.ErrCodeCaptureTimeout,
			"canceled while settling before capture", err)
	}

	png, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, models.NewRetrievalError(models.ErrCodeCaptureTimeout,
			"page screenshot failed", err)
	}
	return png, nil
}

// AdvancePage moves the viewer forward one page: click the next-page
// control when one exists, otherwise fall back to ArrowRight. The advance
// only counts once the page fingerprint moves — a swallowed keystroke
// would otherwise duplicate the current page and shift every page after it.
func (s *Session) AdvancePage(ctx context.Context) error {
	before, err := s.pageFingerprint(ctx)
	if err != nil {
		return err
	}

	p := s.page.Context(ctx)
	clicked := false
	for _, sel := range nextPageSelectors {
		has, el, hasErr := p.Timeout(time.Second).Has(sel)
		if hasErr != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			clicked = true
			break
		}
	}
	if !clicked {
		if err := p.Keyboard.Press(input.ArrowRight); err != nil {
			return models.NewRetrievalError(models.ErrCodePageLoad,
				"could not send page-advance input", err)
		}
	}

	// Poll until the fingerprint moves or the capture timeout expires.
	deadline := time.Now().Add(s.retrCfg.CaptureTimeout)
	for {
		if err := sleepCtx(ctx, 250*time.Millisecond); err != nil {
			return categorizeError(err, "canceled while waiting for page to advance")
		}
		after, err := s.pageFingerprint(ctx)
		if err != nil {
			return err
		}
		if domhash.Changed(before, after, fingerprintThreshold) {
			return nil
		}
		if time.Now().After(deadline) {
			return models.NewRetrievalError(models.ErrCodePageLoad,
				"page did not advance after navigation input", nil)
		}
	}
}

func (s *Session) pageFingerprint(ctx context.Context) (uint64, error) {
	html, err := s.PageHTML(ctx)
	if err != nil {
		return 0, err
	}
	return domhash.Fingerprint(html), nil
}
