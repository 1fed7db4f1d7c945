package retriever

import "testing"

func TestParseIndicatorText(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"1 of 12", 12},
		{"3 / 24", 24},
		{"3/24", 24},
		{"Page 2 of 8", 8},
		{"1 of 1", 1},
		{"", 0},
		{"Loading...", 0},
		{"12", 0},
		{"of 12", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := parseIndicatorText(tt.text); got != tt.want {
				t.Errorf("parseIndicatorText(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestScanForPageCount(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{
			"indicator element",
			`<html><body><span class="page-number">1 of 12</span></body></html>`,
			12,
		},
		{
			"slash form",
			`<html><body><div class="page-count">3 / 24</div></body></html>`,
			24,
		},
		{
			"single page document",
			`<html><body><span class="page-number">1 of 1</span></body></html>`,
			1,
		},
		{
			"body text fallback",
			`<html><body><div>Viewing page 2 of 8</div></body></html>`,
			8,
		},
		{
			"no indicator",
			`<html><body><div class="document-container"></div></body></html>`,
			0,
		},
		{
			"count above sanity ceiling rejected",
			`<html><body><span class="page-number">1 of 2024</span></body></html>`,
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scanForPageCount(tt.html, 100); got != tt.want {
				t.Errorf("scanForPageCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Indicator elements are trusted first; stray "N of M" text elsewhere in
// the body must not override them.
func TestScanForPageCountPrefersIndicator(t *testing.T) {
	html := `<html><body>
		<div>slide 1 of 3 in the preview strip</div>
		<span class="page-number">1 of 12</span>
	</body></html>`
	// Both parse; the selector hit wins over body-text order.
	if got := scanForPageCount(html, 100); got != 12 {
		t.Errorf("scanForPageCount() = %d, want 12", got)
	}
}
