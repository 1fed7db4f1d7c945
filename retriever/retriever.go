// Package retriever drives a headless browser through a DocSend viewer:
// validate the reference, clear any access gate, discover the page count
// and capture every page in order.
package retriever

import (
	"context"
	"log/slog"

	"github.com/use-agent/deckfetch/config"
	"github.com/use-agent/deckfetch/models"
	"golang.org/x/time/rate"
)

// ProgressFunc is invoked after each successful page capture.
type ProgressFunc func(page, total int)

// retrievalSession is the browser surface Retrieve drives: navigation,
// gate handling, page discovery and the capture loop, plus teardown.
// *Session is the production implementation.
type retrievalSession interface {
	viewerDriver
	Navigate(ctx context.Context, ref models.DocumentRef) error
	PageHTML(ctx context.Context) (string, error)
	SubmitCredentials(ctx context.Context, gate models.AuthGateType, creds models.Credentials) error
	DiscoverPageCount(ctx context.Context) (int, error)
	Title(ctx context.Context) string
	Close()
}

// Retriever runs document retrievals. Stateless between calls; each
// Retrieve owns a fresh browser session.
type Retriever struct {
	cfg *config.Config

	// openSession is swappable so tests can drive Retrieve against a
	// scripted session instead of a live browser.
	openSession func(config.BrowserConfig, config.RetrieverConfig) (retrievalSession, error)
}

func New(cfg *config.Config) *Retriever {
	return &Retriever{
		cfg: cfg,
		openSession: func(b config.BrowserConfig, r config.RetrieverConfig) (retrievalSession, error) {
			s, err := OpenSession(b, r)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// Retrieve fetches every page of the referenced document.
//
// Lifecycle:
//
//  1. Validate reference     – pure, fails fast before any browser cost
//  2. Open session           – browser launch, stealth, tracker blocking
//  3. DEFER: close           – session teardown on every exit path
//  4. Navigate               – retried with exponential backoff
//  5. Gate handling          – classify snapshot, one-shot submission
//  6. Page count discovery   – polled, terminal failure if absent
//  7. Capture loop           – ordered, all-or-nothing, paced
//
// The returned result always satisfies len(Captures) == PageCount.
func (r *Retriever) Retrieve(
	ctx context.Context,
	rawURL string,
	creds models.Credentials,
	progress ProgressFunc,
) (*models.RetrievalResult, error) {
	// ── 1. Validate reference ────────────────────────────────────────
	ref, err := ParseReference(rawURL)
	if err != nil {
		return nil, err
	}
	slog.Info("starting retrieval", "document", ref.ID)

	// ── 2. Open session ──────────────────────────────────────────────
	session, err := r.openSession(r.cfg.Browser, r.cfg.Retriever)
	if err != nil {
		return nil, err
	}
	// ── 3. Guaranteed teardown ───────────────────────────────────────
	defer session.Close()

	policy := newRetryPolicy(r.cfg.Retry)

	// ── 4. Navigate (retried) ────────────────────────────────────────
	if err := policy.do(ctx, opNavigation, func() error {
		return session.Navigate(ctx, ref)
	}); err != nil {
		return nil, err
	}

	// ── 5. Gate handling ─────────────────────────────────────────────
	html, err := session.PageHTML(ctx)
	if err != nil {
		return nil, err
	}
	gate := ClassifyGate(html)
	slog.Info("access gate classified", "gate", gate.String())

	switch gate {
	case models.GateNone:
		if !HasDocumentContent(html) {
			// Ambiguous: no gate markers and no document markup yet.
			// Proceed — discovery below surfaces the real failure if the
			// document never renders.
			slog.Warn("no gate and no document content detected, proceeding")
		}
		if creds.Email != "" || creds.Passcode != "" {
			slog.Info("credentials supplied but document is not gated, ignoring")
		}
	default:
		if err := session.SubmitCredentials(ctx, gate, creds); err != nil {
			return nil, err
		}
	}

	// ── 6. Page count discovery ──────────────────────────────────────
	pageCount, err := session.DiscoverPageCount(ctx)
	if err != nil {
		return nil, err
	}

	// ── 7. Capture loop ──────────────────────────────────────────────
	var limiter *rate.Limiter
	if cps := r.cfg.Retriever.CapturesPerSecond; cps > 0 {
		limiter = rate.NewLimiter(rate.Limit(cps), 1)
	}
	captures, err := captureAll(ctx, session, pageCount, policy, limiter, progress)
	if err != nil {
		return nil, err
	}

	title := session.Title(ctx)
	slog.Info("retrieval complete", "document", ref.ID, "pages", len(captures))

	return &models.RetrievalResult{
		PageCount: pageCount,
		PageTitle: title,
		Captures:  captures,
	}, nil
}
