package retriever

import (
	"testing"

	"github.com/use-agent/deckfetch/models"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  string
		wantErr bool
	}{
		{"basic", "https://docsend.com/view/abc123", "abc123", false},
		{"www host", "https://www.docsend.com/view/abc123", "abc123", false},
		{"http scheme", "http://docsend.com/view/abc123", "abc123", false},
		{"trailing slash", "https://docsend.com/view/abc123/", "abc123", false},
		{"hyphen and underscore id", "https://docsend.com/view/a_b-c9", "a_b-c9", false},
		{"empty", "", "", true},
		{"not a url", "abc123", "", true},
		{"wrong host", "https://example.com/view/abc123", "", true},
		{"wrong path", "https://docsend.com/document/abc123", "", true},
		{"missing id", "https://docsend.com/view/", "", true},
		{"subdomain", "https://evil.docsend.com/view/abc123", "", true},
		{"extra path segment", "https://docsend.com/view/abc123/extra", "", true},
		{"query string", "https://docsend.com/view/abc123?x=1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseReference(%q) succeeded, want error", tt.url)
				}
				if code := models.CodeOf(err); code != models.ErrCodeInvalidReference {
					t.Errorf("error code = %q, want %q", code, models.ErrCodeInvalidReference)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference(%q) failed: %v", tt.url, err)
			}
			if ref.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", ref.ID, tt.wantID)
			}
			if ref.URL != tt.url {
				t.Errorf("URL = %q, want %q", ref.URL, tt.url)
			}
		})
	}
}

func TestParseReferenceErrorIsTerminal(t *testing.T) {
	_, err := ParseReference("https://example.com/view/abc")
	if err == nil {
		t.Fatal("expected error")
	}
	if models.IsTransient(err) {
		t.Error("invalid reference must not be transient")
	}
}
