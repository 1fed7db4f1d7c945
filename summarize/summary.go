// Package summarize produces a structured company analysis and funded-peer
// scan from a retrieved pitch deck: OCR the first pages, send the text to
// Perplexity in a single call, parse the JSON reply and render markdown.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/use-agent/deckfetch/models"
	"github.com/use-agent/deckfetch/ocr"
)

// Sectors is the closed set of sector tags the analysis may use.
var Sectors = []string{
	"cybersecurity",
	"enterprise_tech",
	"consumer_tech",
	"consumer_goods",
	"fintech",
	"industrials",
	"robotics",
	"space_tech",
	"developer_tooling",
}

const (
	maxPeers = 10

	// maxDescriptionRunes caps the company description; counted in runes so
	// truncation never splits a multi-byte character.
	maxDescriptionRunes = 200
)

// CompanyAnalysis is the structured company information extracted from
// the deck.
type CompanyAnalysis struct {
	CompanyName     string `json:"company_name"`
	Description     string `json:"description"` // capped at maxDescriptionRunes
	HasCustomers    bool   `json:"has_customers"`
	CustomerDetails string `json:"customer_details"`
	PrimarySector   string `json:"primary_sector"`
	SecondarySector string `json:"secondary_sector"`
}

// FundedPeer is a recently funded comparable company.
type FundedPeer struct {
	CompanyName string `json:"company_name"`
	RoundType   string `json:"round_type"` // "Seed", "Series A", ...
	Amount      string `json:"amount"`     // "$10M"
	Date        string `json:"date"`       // "Jan 2024"
	Description string `json:"description"`
}

// StructuredSummary is the complete analysis output.
type StructuredSummary struct {
	Company     CompanyAnalysis `json:"company"`
	FundedPeers []FundedPeer    `json:"funded_peers"`
}

// Summarize OCRs up to maxOCRPages captures and asks the model for a
// company analysis plus peer scan in one call.
func (c *Client) Summarize(ctx context.Context, captures []models.PageCapture, maxOCRPages int) (*StructuredSummary, error) {
	text, err := extractText(ctx, captures, maxOCRPages)
	if err != nil {
		return nil, err
	}

	raw, err := c.complete(ctx, buildPrompt(text))
	if err != nil {
		return nil, err
	}
	return parseResponse(raw)
}

// extractText OCRs the first pages and joins the results with page
// markers. Pages that fail OCR are skipped; only a fully empty result is
// an error.
func extractText(ctx context.Context, captures []models.PageCapture, maxPages int) (string, error) {
	if !ocr.Available() {
		return "", models.NewRetrievalError(models.ErrCodeOCR,
			"tesseract is not installed (required for --summarize)", nil)
	}

	var parts []string
	for i, capture := range captures {
		if i >= maxPages {
			break
		}
		text, err := ocr.ImageToText(ctx, capture.PNG)
		if err != nil {
			slog.Debug("ocr failed for page, skipping", "page", capture.Index, "error", err)
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", capture.Index, trimmed))
		}
	}
	if len(parts) == 0 {
		return "", models.NewRetrievalError(models.ErrCodeOCR,
			"no text could be extracted from the captured pages", nil)
	}
	return strings.Join(parts, "\n\n"), nil
}

func buildPrompt(ocrText string) string {
	sectorsList := strings.Join(Sectors, ", ")
	return fmt.Sprintf(`You are a venture capital analyst researching the competitive landscape for a startup.

PITCH DECK CONTENT:
%s

---

## TASK 1: Company Analysis
Extract the following from the pitch deck:
- Company name
- What they do (200 chars max)
- Whether they have customers/traction
- Primary sector from: %s

## TASK 2: Funded Peer Discovery (CRITICAL)
Search GLOBALLY for similar companies that have raised funding in the past 24 months.

**Search Strategy:**
1. First, identify the CORE PROBLEM the company is solving
2. Identify the PRODUCT CATEGORY (e.g., "AI code review", "supply chain visibility", "developer security")
3. Search for companies addressing the SAME problem or building SIMILAR products worldwide

**Funding criteria:**
- Round types: Pre-Seed, Seed, Series A, Series B
- Timeframe: Raised within last 24 months
- Find up to 10 peers with verified funding data

---

Return ONLY valid JSON (no markdown):
{
  "company": {
    "company_name": "string",
    "description": "string (max 200 chars)",
    "has_customers": boolean,
    "customer_details": "string or null",
    "primary_sector": "one of: %s",
    "secondary_sector": "string or null"
  },
  "funded_peers": [
    {
      "company_name": "string",
      "round_type": "Pre-Seed/Seed/Series A/Series B",
      "amount": "$XM",
      "date": "Mon YYYY",
      "description": "One sentence about what they do"
    }
  ]
}`, ocrText, sectorsList, sectorsList)
}

// jsonBlockPattern finds the outermost JSON object in a reply that may be
// wrapped in markdown fences or reasoning text.
var jsonBlockPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// parseResponse extracts and validates the model's JSON reply.
func parseResponse(responseText string) (*StructuredSummary, error) {
	block := jsonBlockPattern.FindString(responseText)
	if block == "" {
		return nil, models.NewRetrievalError(models.ErrCodeSummaryFailure,
			"no JSON found in summary response", nil)
	}

	var summary StructuredSummary
	if err := json.Unmarshal([]byte(block), &summary); err != nil {
		return nil, models.NewRetrievalError(models.ErrCodeSummaryFailure,
			"invalid JSON in summary response", err)
	}
	if summary.Company.CompanyName == "" {
		return nil, models.NewRetrievalError(models.ErrCodeSummaryFailure,
			"summary response is missing the company name", nil)
	}

	summary.Company.PrimarySector = normalizeSector(summary.Company.PrimarySector, "enterprise_tech")
	summary.Company.SecondarySector = normalizeSector(summary.Company.SecondarySector, "")
	if r := []rune(summary.Company.Description); len(r) > maxDescriptionRunes {
		summary.Company.Description = string(r[:maxDescriptionRunes])
	}

	peers := summary.FundedPeers[:0]
	for _, peer := range summary.FundedPeers {
		if peer.CompanyName == "" {
			continue
		}
		peers = append(peers, peer)
		if len(peers) == maxPeers {
			break
		}
	}
	summary.FundedPeers = peers
	return &summary, nil
}

// normalizeSector lowercases and underscores a sector tag, falling back
// when the result is not in the allowed set.
func normalizeSector(sector, fallback string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sector)), " ", "_")
	for _, allowed := range Sectors {
		if s == allowed {
			return s
		}
	}
	return fallback
}

// FormatMarkdown renders the summary as a markdown report.
func FormatMarkdown(summary *StructuredSummary) string {
	company := summary.Company

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", company.CompanyName)

	b.WriteString("## Overview\n")
	b.WriteString(company.Description)
	b.WriteString("\n\n")

	b.WriteString("## Traction\n")
	if company.HasCustomers {
		b.WriteString("**Early Customers:** Yes\n")
	} else {
		b.WriteString("**Early Customers:** No\n")
	}
	if company.CustomerDetails != "" {
		b.WriteString(company.CustomerDetails)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("## Sector\n")
	fmt.Fprintf(&b, "**Primary:** %s\n", company.PrimarySector)
	secondary := company.SecondarySector
	if secondary == "" {
		secondary = "N/A"
	}
	fmt.Fprintf(&b, "**Secondary:** %s\n\n", secondary)

	b.WriteString("## Funded Peers (24-month lookback)\n")
	if len(summary.FundedPeers) > 0 {
		b.WriteString("| Company | Round | Amount | Date | Description |\n")
		b.WriteString("|---------|-------|--------|------|-------------|\n")
		for _, peer := range summary.FundedPeers {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				peer.CompanyName, peer.RoundType, peer.Amount, peer.Date, peer.Description)
		}
	} else {
		b.WriteString("*No recent funding data found.*\n")
	}
	b.WriteString("\n*Data sourced via Perplexity AI. May not be exhaustive.*\n")

	return b.String()
}

// WriteSummary writes the markdown report next to the PDF, swapping the
// extension, and returns the written path.
func WriteSummary(summary *StructuredSummary, pdfPath string) (string, error) {
	mdPath := strings.TrimSuffix(pdfPath, ".pdf") + ".md"
	if err := os.WriteFile(mdPath, []byte(FormatMarkdown(summary)), 0o644); err != nil {
		return "", models.NewRetrievalError(models.ErrCodeSummaryFailure,
			"failed to write summary file", err)
	}
	return mdPath, nil
}
