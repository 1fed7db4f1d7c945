package models

import "time"

// DocumentRef is a validated DocSend document reference.
// Immutable once constructed by retriever.ParseReference.
type DocumentRef struct {
	// URL is the full, validated viewer URL.
	URL string

	// ID is the opaque document identifier segment of the URL.
	ID string
}

// Credentials holds the optional viewer credentials supplied by the caller.
// The zero value of a field means "not supplied". Credentials are never
// persisted and never appear in log output.
type Credentials struct {
	Email    string
	Passcode string
}

// AuthGateType is the closed set of access-control screens the viewer
// can put in front of a document.
type AuthGateType int

const (
	// GateNone means the document renders without credentials.
	GateNone AuthGateType = iota

	// GateEmail is an email-only gate.
	GateEmail

	// GatePasscode is an email + passcode gate.
	GatePasscode
)

func (t AuthGateType) String() string {
	switch t {
	case GateEmail:
		return "email"
	case GatePasscode:
		return "passcode"
	default:
		return "none"
	}
}

// PageCapture is a single rendered page image.
// Index is 1-based; within a RetrievalResult indexes are dense and
// strictly increasing.
type PageCapture struct {
	Index      int
	PNG        []byte
	CapturedAt time.Time
}

// RetrievalResult is the output of one successful retrieval.
type RetrievalResult struct {
	// PageCount is the total page count discovered from the viewer.
	// It is latched at discovery time and len(Captures) always equals it.
	PageCount int

	// PageTitle is the raw browser page title, handed to the naming
	// package for extraction; not parsed here.
	PageTitle string

	// Captures holds one entry per page, ordered by Index.
	Captures []PageCapture
}
