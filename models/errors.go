package models

import (
	"errors"
	"fmt"
)

// Error codes carried by RetrievalError. The CLI maps these to user-facing
// messages; internally they drive the retry policy's transient/terminal split.
const (
	ErrCodeInvalidReference = "INVALID_REFERENCE"
	ErrCodePageLoad         = "PAGE_LOAD_FAILED"
	ErrCodeAuthRequired     = "AUTH_REQUIRED"
	ErrCodeAuthRejected     = "AUTH_REJECTED"
	ErrCodeScrape           = "SCRAPE_FAILED"
	ErrCodeCaptureTimeout   = "CAPTURE_TIMEOUT"
	ErrCodeBrowserCrash     = "BROWSER_CRASH"
	ErrCodePDFBuild         = "PDF_BUILD_FAILED"
	ErrCodeOCR              = "OCR_FAILED"

	// Summarizer error codes.
	ErrCodeSummaryFailure     = "SUMMARY_FAILURE"
	ErrCodeSummaryAuthFailure = "SUMMARY_AUTH_FAILURE"
	ErrCodeSummaryRateLimited = "SUMMARY_RATE_LIMITED"
)

// RetrievalError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type RetrievalError struct {
	Code    string
	Message string
	Page    int   // failing page index, 1-based; 0 when not applicable
	Err     error // wrapped original error
}

func (e *RetrievalError) Error() string {
	switch {
	case e.Page > 0 && e.Err != nil:
		return fmt.Sprintf("%s: page %d: %s: %v", e.Code, e.Page, e.Message, e.Err)
	case e.Page > 0:
		return fmt.Sprintf("%s: page %d: %s", e.Code, e.Page, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// NewRetrievalError creates a new RetrievalError.
func NewRetrievalError(code, message string, err error) *RetrievalError {
	return &RetrievalError{Code: code, Message: message, Err: err}
}

// NewPageError creates a RetrievalError pinned to a failing page index.
func NewPageError(code, message string, page int, err error) *RetrievalError {
	return &RetrievalError{Code: code, Message: message, Page: page, Err: err}
}

// CodeOf returns the error code of err, or "" if err carries no RetrievalError.
func CodeOf(err error) string {
	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsTransient reports whether err is a failure class expected to sometimes
// resolve on its own and therefore eligible for retry. Invalid references and
// credential failures are never transient; retrying a rejected submission
// risks duplicate side effects on the remote service.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case ErrCodePageLoad, ErrCodeCaptureTimeout:
		return true
	default:
		return false
	}
}
