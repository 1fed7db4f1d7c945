// Package naming derives a document name for the output file from the
// viewer's page title, falling back to OCR text from the first page.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const maxNameLength = 100

// DefaultName is used when no name can be derived from any source.
const DefaultName = "DocSend Document"

// titleSuffixes strip the viewer's branding from page titles.
var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\|\s*DocSend\s*$`),
	regexp.MustCompile(`(?i)\s*-\s*DocSend\s*$`),
	regexp.MustCompile(`(?i)\s*\|\s*Powered by DocSend\s*$`),
	regexp.MustCompile(`(?i)\s*on\s+DocSend\s*$`),
	regexp.MustCompile(`(?i)\s*DocSend\s*$`),
}

// titlePatterns pull a company name out of common title shapes.
// Ordered: "Name - Pitch Deck" before "Pitch Deck - Name".
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s*[-–—]\s*(?:Pitch\s*Deck|Deck|Presentation|Series\s*[A-Z])`),
	regexp.MustCompile(`(?i)(?:Pitch\s*Deck|Deck|Presentation|Series\s*[A-Z])\s*[-–—]\s*(.+)`),
}

// rejectTitles are title values too generic to name a file after.
var rejectTitles = map[string]struct{}{
	"docsend":       {},
	"document":      {},
	"untitled":      {},
	"view document": {},
	"loading":       {},
}

// ocrRejectPatterns match viewer chrome and slide boilerplate that OCR
// picks up ahead of the actual company name.
var ocrRejectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)requests?\s+your\s+action`),
	regexp.MustCompile(`(?i)continue\s+to\s+view`),
	regexp.MustCompile(`(?i)enter\s+your\s+email`),
	regexp.MustCompile(`(?i)verify\s+your\s+email`),
	regexp.MustCompile(`(?i)please\s+enter`),
	regexp.MustCompile(`(?i)click\s+here`),
	regexp.MustCompile(`(?i)powered\s+by`),
	regexp.MustCompile(`(?i)confidential`),
	regexp.MustCompile(`(?i)private\s+&\s+confidential`),
	regexp.MustCompile(`(?i)all\s+rights\s+reserved`),
	regexp.MustCompile(`(?i)copyright\s+\d{4}`),
	regexp.MustCompile(`©\s*\d{4}`),
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	collapseSpaces   = regexp.MustCompile(`[\s_]+`)
	numericLine      = regexp.MustCompile(`^[\d\s/.-]+$`)
	boilerplateLine  = regexp.MustCompile(`(?i)^(confidential|private|draft|page\s*\d+)$`)
)

// FromTitle parses a document name from the viewer page title.
// Returns "" when the title carries no usable name.
func FromTitle(title string) string {
	cleaned := strings.TrimSpace(title)
	for _, suffix := range titleSuffixes {
		cleaned = suffix.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" || isRejected(cleaned) {
		return ""
	}

	for _, pattern := range titlePatterns {
		if m := pattern.FindStringSubmatch(cleaned); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) >= 2 && !isRejected(name) {
				return name
			}
		}
	}
	return cleaned
}

// FromOCRText scans OCR output from the first page for a line that looks
// like a company name. The name is normally the largest text on a cover
// slide and lands in the first few lines of OCR output.
func FromOCRText(text string) string {
	lines := strings.Split(text, "\n")
	checked := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		checked++
		if checked > 5 {
			break
		}
		if len(line) < 2 || len(line) > 60 {
			continue
		}
		if numericLine.MatchString(line) || boilerplateLine.MatchString(line) {
			continue
		}
		if matchesReject(line) {
			continue
		}
		return line
	}
	return ""
}

// Sanitize turns a raw name into a filename-safe string, never empty.
func Sanitize(name string) string {
	s := invalidFileChars.ReplaceAllString(name, "")
	s = collapseSpaces.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .")
	if r := []rune(s); len(r) > maxNameLength {
		s = strings.TrimSpace(string(r[:maxNameLength]))
	}
	if s == "" {
		return DefaultName
	}
	return s
}

// UniquePath returns path if it is free, otherwise appends " (N)" before
// the extension until the name does not collide.
func UniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, counter, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func isRejected(name string) bool {
	_, ok := rejectTitles[strings.ToLower(name)]
	return ok
}

func matchesReject(line string) bool {
	for _, pattern := range ocrRejectPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}
