package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/deckfetch/config"
	"github.com/use-agent/deckfetch/models"
)

// fakeSession scripts a full retrieval session on top of fakeDriver's
// capture behavior, counting Close calls so lifecycle tests can assert
// teardown on every exit path.
type fakeSession struct {
	*fakeDriver

	navErr      error
	html        string
	submitErr   error
	pageCount   int
	discoverErr error
	title       string

	closes int
}

func (s *fakeSession) Navigate(ctx context.Context, ref models.DocumentRef) error {
	return s.navErr
}

func (s *fakeSession) PageHTML(ctx context.Context) (string, error) {
	return s.html, nil
}

func (s *fakeSession) SubmitCredentials(ctx context.Context, gate models.AuthGateType, creds models.Credentials) error {
	return s.submitErr
}

func (s *fakeSession) DiscoverPageCount(ctx context.Context) (int, error) {
	if s.discoverErr != nil {
		return 0, s.discoverErr
	}
	return s.pageCount, nil
}

func (s *fakeSession) Title(ctx context.Context) string { return s.title }

func (s *fakeSession) Close() { s.closes++ }

func newFakeSession() *fakeSession {
	return &fakeSession{
		fakeDriver: newTestDriver(),
		html:       openDocumentHTML,
		pageCount:  3,
		title:      "Acme Pitch Deck",
	}
}

// retrieverWith wires a Retriever to the given session, with fast retries.
func retrieverWith(s *fakeSession) (*Retriever, *int) {
	opened := 0
	r := New(&config.Config{
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			NavigationBase: time.Millisecond,
			CaptureDelay:   time.Millisecond,
		},
	})
	r.openSession = func(config.BrowserConfig, config.RetrieverConfig) (retrievalSession, error) {
		opened++
		return s, nil
	}
	return r, &opened
}

func TestRetrieveSuccessClosesSessionOnce(t *testing.T) {
	s := newFakeSession()
	r, _ := retrieverWith(s)

	res, err := r.Retrieve(context.Background(), "https://docsend.com/view/abc123", models.Credentials{}, nil)
	if err != nil {
		t.Fatalf("Retrieve() failed: %v", err)
	}
	if s.closes != 1 {
		t.Errorf("session closes = %d, want 1", s.closes)
	}
	if res.PageCount != 3 || len(res.Captures) != 3 {
		t.Errorf("result pages = %d, captures = %d, want 3 each", res.PageCount, len(res.Captures))
	}
	if res.PageTitle != "Acme Pitch Deck" {
		t.Errorf("PageTitle = %q", res.PageTitle)
	}
	for i, c := range res.Captures {
		if c.Index != i+1 {
			t.Errorf("captures[%d].Index = %d, want %d", i, c.Index, i+1)
		}
	}
}

func TestRetrieveInvalidReferenceSkipsSession(t *testing.T) {
	r, opened := retrieverWith(newFakeSession())

	_, err := r.Retrieve(context.Background(), "https://example.com/not-docsend", models.Credentials{}, nil)
	if code := models.CodeOf(err); code != models.ErrCodeInvalidReference {
		t.Fatalf("error code = %q, want %q", code, models.ErrCodeInvalidReference)
	}
	if *opened != 0 {
		t.Errorf("sessions opened = %d, want 0 (validation precedes browser launch)", *opened)
	}
}

func TestRetrieveClosesSessionOnEveryErrorPath(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *fakeSession)
		wantCode string
	}{
		{
			name: "navigation exhausted",
			mutate: func(s *fakeSession) {
				s.navErr = models.NewRetrievalError(models.ErrCodePageLoad, "load failed", nil)
			},
			wantCode: models.ErrCodeScrape,
		},
		{
			name: "credentials required",
			mutate: func(s *fakeSession) {
				s.html = emailGateHTML
				s.submitErr = models.NewRetrievalError(models.ErrCodeAuthRequired, "email required", nil)
			},
			wantCode: models.ErrCodeAuthRequired,
		},
		{
			name: "credentials rejected",
			mutate: func(s *fakeSession) {
				s.html = passcodeGateHTML
				s.submitErr = models.NewRetrievalError(models.ErrCodeAuthRejected, "bad passcode", nil)
			},
			wantCode: models.ErrCodeAuthRejected,
		},
		{
			name: "page count discovery failed",
			mutate: func(s *fakeSession) {
				s.discoverErr = models.NewRetrievalError(models.ErrCodeScrape, "no page indicator", nil)
			},
			wantCode: models.ErrCodeScrape,
		},
		{
			name: "capture exhausted",
			mutate: func(s *fakeSession) {
				s.failCaptures[2] = 99
			},
			wantCode: models.ErrCodeScrape,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession()
			tt.mutate(s)
			r, _ := retrieverWith(s)

			res, err := r.Retrieve(context.Background(), "https://docsend.com/view/abc123", models.Credentials{}, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if res != nil {
				t.Errorf("result = %v, want nil on failure", res)
			}
			if code := models.CodeOf(err); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
			if s.closes != 1 {
				t.Errorf("session closes = %d, want exactly 1", s.closes)
			}
		})
	}
}
