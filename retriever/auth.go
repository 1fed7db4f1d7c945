package retriever

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/deckfetch/models"
)

// ClassifyGate inspects rendered HTML and decides which access-control
// screen (if any) stands in front of the document. Pure: it never touches
// the browser, so it is deterministic for a given snapshot.
//
// Passcode markers are checked first — a passcode gate also renders an
// email field, so the reverse order would misclassify it as email-only.
// When neither gate matches, the answer is GateNone even if no document
// content is visible yet; the caller proceeds and lets page discovery
// surface the real failure.
func ClassifyGate(html string) models.AuthGateType {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.GateNone
	}
	if matchesAny(doc, passcodeMarkers) {
		return models.GatePasscode
	}
	if matchesAny(doc, emailMarkers) {
		return models.GateEmail
	}
	return models.GateNone
}

// DetectRejection reports whether the HTML shows a credential-rejection
// message. Only markers with visible text count; viewers render empty
// error containers even on pristine forms.
func DetectRejection(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, sel := range rejectionMarkers {
		found := false
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.TrimSpace(s.Text()) != "" {
				found = true
				return false
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}

// HasDocumentContent reports whether the HTML contains rendered document
// markup. Used to log the ambiguous "no gate, no content" state.
func HasDocumentContent(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return matchesAny(doc, documentMarkers)
}

func matchesAny(doc *goquery.Document, selectors []string) bool {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// SubmitCredentials fills and submits the auth gate form, then waits for
// the gate to clear. One shot: a rejected submission fails immediately
// with AUTH_REJECTED, never retried — resubmitting registers duplicate
// visitor events with the document owner.
func (s *Session) SubmitCredentials(ctx context.Context, gate models.AuthGateType, creds models.Credentials) error {
	switch gate {
	case models.GateEmail:
		if creds.Email == "" {
			return models.NewRetrievalError(models.ErrCodeAuthRequired,
				"document requires an email address (--email)", nil)
		}
	case models.GatePasscode:
		if creds.Email == "" || creds.Passcode == "" {
			return models.NewRetrievalError(models.ErrCodeAuthRequired,
				"document requires an email address and passcode (--email, --passcode)", nil)
		}
	default:
		return nil
	}

	slog.Info("submitting credentials", "gate", gate.String())

	if err := s.fillFirst(ctx, emailInputSelectors, creds.Email); err != nil {
		return models.NewRetrievalError(models.ErrCodeAuthRejected,
			"could not locate the email field on the access form", err)
	}
	if gate == models.GatePasscode {
		if err := s.fillFirst(ctx, passcodeInputSelectors, creds.Passcode); err != nil {
			return models.NewRetrievalError(models.ErrCodeAuthRejected,
				"could not locate the passcode field on the access form", err)
		}
	}
	if err := s.clickFirst(ctx, submitSelectors); err != nil {
		return models.NewRetrievalError(models.ErrCodeAuthRejected,
			"could not locate the access form submit button", err)
	}

	return s.waitGateCleared(ctx)
}

// waitGateCleared polls the page after submission until the gate markers
// disappear, a rejection message shows up, or the settle timeout expires.
func (s *Session) waitGateCleared(ctx context.Context) error {
	deadline := time.Now().Add(s.retrCfg.AuthSettleTimeout)
	for {
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return models.NewRetrievalError(models.ErrCodeAuthRejected,
				"canceled while waiting for access form to clear", err)
		}

		html, err := s.PageHTML(ctx)
		if err != nil {
			return err
		}
		if DetectRejection(html) {
			return models.NewRetrievalError(models.ErrCodeAuthRejected,
				"the document viewer rejected the supplied credentials", nil)
		}
		if ClassifyGate(html) == models.GateNone {
			slog.Info("access form cleared")
			return nil
		}

		if time.Now().After(deadline) {
			return models.NewRetrievalError(models.ErrCodeAuthRejected,
				"access form did not clear after submission", nil)
		}
	}
}

// fillFirst types value into the first present selector from the list.
func (s *Session) fillFirst(ctx context.Context, selectors []string, value string) error {
	el, err := s.findFirst(ctx, selectors)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	// Select-all first so Input replaces any prefilled value.
	_ = el.SelectAllText()
	return el.Input(value)
}

// clickFirst clicks the first present selector from the list.
func (s *Session) clickFirst(ctx context.Context, selectors []string) error {
	el, err := s.findFirst(ctx, selectors)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// findFirst probes each selector with a short per-probe timeout and returns
// the first element found. rod's Element blocks until a match appears, so
// the probe must be time-boxed or a missing selector would hang the whole
// submission.
func (s *Session) findFirst(ctx context.Context, selectors []string) (*rod.Element, error) {
	p := s.page.Context(ctx)
	for _, sel := range selectors {
		has, el, err := p.Timeout(2 * time.Second).Has(sel)
		if err != nil || !has {
			continue
		}
		return el, nil
	}
	return nil, &elementNotFoundError{selectors: selectors}
}

type elementNotFoundError struct {
	selectors []string
}

func (e *elementNotFoundError) Error() string {
	return "no element matched: " + strings.Join(e.selectors, ", ")
}
