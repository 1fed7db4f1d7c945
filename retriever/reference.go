package retriever

import (
	"regexp"

	"github.com/use-agent/deckfetch/models"
)

// referencePattern is the known shape of a DocSend viewer URL. The final
// group is the opaque document identifier.
var referencePattern = regexp.MustCompile(`^https?://(www\.)?docsend\.com/view/([\w-]+)/?$`)

// ParseReference validates a raw input string and extracts the document
// identifier. Pure: no I/O, no browser. Anything that does not match the
// viewer's URL shape fails with INVALID_REFERENCE.
func ParseReference(raw string) (models.DocumentRef, error) {
	m := referencePattern.FindStringSubmatch(raw)
	if m == nil {
		return models.DocumentRef{}, models.NewRetrievalError(
			models.ErrCodeInvalidReference,
			"not a DocSend document URL (expected https://docsend.com/view/...)",
			nil,
		)
	}
	return models.DocumentRef{URL: raw, ID: m[2]}, nil
}
