package retriever

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/deckfetch/models"
)

// pageIndicatorPattern matches "3 of 24", "3/24" and similar indicator text.
var pageIndicatorPattern = regexp.MustCompile(`(\d+)\s*(?:of|/)\s*(\d+)`)

// parseIndicatorText extracts the total page count from one indicator
// string. Returns 0 when the text does not carry a plausible count.
func parseIndicatorText(text string) int {
	m := pageIndicatorPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	total, err := strconv.Atoi(m[2])
	if err != nil {
		return 0
	}
	return total
}

// scanForPageCount inspects rendered HTML for the viewer's page indicator
// and returns the total page count, or 0 when none is found. Pure.
//
// maxPages is a sanity ceiling: indicator-shaped text like "1 of 2024"
// from unrelated markup must not send the capture loop on a 2024-page
// walk. A total of 1 is accepted — single-page documents are real.
func scanForPageCount(html string, maxPages int) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	// Indicator selectors first; trusted even when the number is large-ish.
	for _, sel := range pageIndicatorSelectors {
		count := 0
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if total := parseIndicatorText(s.Text()); total >= 1 && total <= maxPages {
				count = total
				return false
			}
			return true
		})
		if count > 0 {
			return count
		}
	}

	// Fallback: scan the whole body text for indicator-shaped fragments.
	bodyText := doc.Find("body").Text()
	if total := parseIndicatorText(bodyText); total >= 1 && total <= maxPages {
		return total
	}
	return 0
}

// DiscoverPageCount polls the live page for its total page count. The
// indicator renders asynchronously after the first page, so a single read
// is not enough; polling stops at the first hit or when ctx expires.
//
// A count of 0 with a nil error never escapes: failure to find a count
// within the window is a terminal SCRAPE_FAILED, because capturing an
// unknown number of pages silently would violate the completeness
// guarantee.
func (s *Session) DiscoverPageCount(ctx context.Context) (int, error) {
	deadline := time.Now().Add(s.retrCfg.NavigationTimeout)
	for {
		html, err := s.PageHTML(ctx)
		if err != nil {
			return 0, err
		}
		if total := scanForPageCount(html, s.retrCfg.MaxPages); total > 0 {
			slog.Info("page count discovered", "pages", total)
			return total, nil
		}

		if time.Now().After(deadline) {
			return 0, models.NewRetrievalError(
				models.ErrCodeScrape,
				"could not determine the document's page count",
				nil,
			)
		}
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return 0, categorizeError(err, "canceled during page count discovery")
		}
	}
}
