package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRetrievalErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *RetrievalError
		want string
	}{
		{
			"code and message",
			NewRetrievalError(ErrCodeScrape, "it broke", nil),
			"SCRAPE_FAILED: it broke",
		},
		{
			"wrapped cause",
			NewRetrievalError(ErrCodePageLoad, "nav failed", errors.New("timeout")),
			"PAGE_LOAD_FAILED: nav failed: timeout",
		},
		{
			"page index",
			NewPageError(ErrCodeCaptureTimeout, "too slow", 7, nil),
			"CAPTURE_TIMEOUT: page 7: too slow",
		},
		{
			"page index and cause",
			NewPageError(ErrCodeCaptureTimeout, "too slow", 7, errors.New("dead")),
			"CAPTURE_TIMEOUT: page 7: too slow: dead",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetrievalErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewRetrievalError(ErrCodeScrape, "wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewRetrievalError(ErrCodeAuthRejected, "bad passcode", nil)
	if got := CodeOf(err); got != ErrCodeAuthRejected {
		t.Errorf("CodeOf = %q", got)
	}

	// Codes survive further wrapping.
	wrapped := fmt.Errorf("retrieval: %w", err)
	if got := CodeOf(wrapped); got != ErrCodeAuthRejected {
		t.Errorf("CodeOf(wrapped) = %q", got)
	}

	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}

func TestIsTransient(t *testing.T) {
	transient := []string{ErrCodePageLoad, ErrCodeCaptureTimeout}
	terminal := []string{
		ErrCodeInvalidReference, ErrCodeAuthRequired, ErrCodeAuthRejected,
		ErrCodeScrape, ErrCodeBrowserCrash, ErrCodePDFBuild, ErrCodeOCR,
		ErrCodeSummaryFailure, ErrCodeSummaryAuthFailure, ErrCodeSummaryRateLimited,
	}

	for _, code := range transient {
		if !IsTransient(NewRetrievalError(code, "x", nil)) {
			t.Errorf("IsTransient(%s) = false, want true", code)
		}
	}
	for _, code := range terminal {
		if IsTransient(NewRetrievalError(code, "x", nil)) {
			t.Errorf("IsTransient(%s) = true, want false", code)
		}
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain errors must not be transient")
	}
}

// Credentials must never leak into error strings built elsewhere; the
// error type itself only ever carries code, page and message.
func TestErrorStringHasNoStructFields(t *testing.T) {
	err := NewPageError(ErrCodeAuthRejected, "rejected", 0, nil)
	if strings.Contains(err.Error(), "passcode=") || strings.Contains(err.Error(), "email=") {
		t.Error("error string leaks credential fields")
	}
}
