package retriever

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// dismissConsent clears cookie banners so they do not appear in captures.
// Best effort: click a known accept button if one is present, then strip
// any surviving fixed-position consent overlays via JS. Never fails a
// retrieval — a banner in the corner beats no document at all.
func (s *Session) dismissConsent(ctx context.Context) {
	p := s.page.Context(ctx)
	for _, sel := range consentSelectors {
		has, el, err := p.Timeout(time.Second).Has(sel)
		if err != nil || !has {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			break
		}
	}

	const js = `() => {
		const selectors = [
			'[class*="cookie"]', '[id*="cookie"]',
			'[class*="consent"]', '[id*="consent"]',
			'[class*="gdpr"]', '[id*="gdpr"]',
		];
		for (const sel of selectors) {
			document.querySelectorAll(sel).forEach(el => {
				const style = window.getComputedStyle(el);
				if (style.position === 'fixed' || style.position === 'sticky') {
					el.remove();
				}
			});
		}
		document.documentElement.style.overflow = '';
		document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}
