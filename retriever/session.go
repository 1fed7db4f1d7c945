package retriever

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/deckfetch/config"
	"github.com/use-agent/deckfetch/models"
	"github.com/ysmood/gson"
)

// Session owns one browser process and the single page used for a
// retrieval. It is not safe for concurrent use; one retrieval drives one
// session from open to close.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter

	browserCfg config.BrowserConfig
	retrCfg    config.RetrieverConfig

	closeOnce sync.Once
}

// OpenSession launches a browser, creates the retrieval page and applies
// viewport, user agent, stealth and tracker blocking. The caller must call
// Close exactly once; Close is idempotent so a defer alongside explicit
// error-path closes is safe.
//
// Setup order matters: stealth injection and the hijack router only apply
// to navigations that happen after they are installed, so everything is
// wired here before Navigate is ever called.
func OpenSession(browserCfg config.BrowserConfig, retrCfg config.RetrieverConfig) (*Session, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewRetrievalError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Debug("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewRetrievalError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	s := &Session{
		browser:    browser,
		browserCfg: browserCfg,
		retrCfg:    retrCfg,
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, models.NewRetrievalError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	s.page = page

	if err := s.configurePage(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// configurePage applies viewport, UA, stealth JS and headers to the fresh
// page, and mounts the tracker-blocking router.
func (s *Session) configurePage() error {
	cfg := s.browserCfg

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(s.page); err != nil {
		return models.NewRetrievalError(
			models.ErrCodeBrowserCrash,
			"failed to set viewport",
			err,
		)
	}

	if cfg.UserAgent != "" {
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: cfg.UserAgent,
		}); err != nil {
			return models.NewRetrievalError(
				models.ErrCodeBrowserCrash,
				"failed to set user agent",
				err,
			)
		}
	}

	if cfg.Stealth {
		if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", err,
			)
		}
	}

	// The viewer serves localized markup; pin a language so the gate and
	// page-indicator selectors keep matching.
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		}),
	}.Call(s.page)

	if cfg.BlockTrackers {
		s.router = setupHijack(s.page)
	}
	return nil
}

// Navigate loads the document URL and waits for the DOM to stop mutating.
// The viewer's analytics beacons never let the network go idle, so the
// wait strategy is DOM stability with a fixed settle pause, not
// request-idle.
func (s *Session) Navigate(ctx context.Context, ref models.DocumentRef) error {
	ctx, cancel := context.WithTimeout(ctx, s.retrCfg.NavigationTimeout)
	defer cancel()

	p := s.page.Context(ctx)
	if err := p.Navigate(ref.URL); err != nil {
		return categorizeError(err, "navigation to document failed")
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
	if err := sleepCtx(ctx, s.retrCfg.SettleDelay); err != nil {
		return categorizeError(err, "canceled while settling after navigation")
	}

	s.dismissConsent(ctx)
	return nil
}

// PageHTML returns the current rendered HTML.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to read page HTML")
	}
	return html, nil
}

// Title returns document.title, or "" if it cannot be read.
func (s *Session) Title(ctx context.Context) string {
	return evalStringOrEmpty(s.page.Context(ctx), `() => document.title`)
}

// Close stops the hijack router and kills the browser process. Idempotent:
// extra calls are no-ops, so both the deferred and the error-path close of
// a retrieval are safe.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			slog.Debug("closing browser")
			if err := s.browser.Close(); err != nil {
				slog.Warn("browser close failed", "error", err)
			}
		}
	})
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// sleepCtx sleeps for d or returns early with the context's error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// categorizeError wraps raw browser errors into typed RetrievalErrors so
// the retry policy can tell transient load failures from everything else.
func categorizeError(err error, msg string) *models.RetrievalError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRetrievalError(models.ErrCodePageLoad, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewRetrievalError(models.ErrCodeScrape, "operation canceled", err)
	default:
		return models.NewRetrievalError(models.ErrCodePageLoad, msg, err)
	}
}
