package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/deckfetch/models"
)

func completionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestClientComplete(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("the analysis")))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "sonar-reasoning-pro", "pplx-test-key")
	got, err := c.complete(context.Background(), "analyze this")
	if err != nil {
		t.Fatalf("complete() failed: %v", err)
	}
	if got != "the analysis" {
		t.Errorf("content = %q", got)
	}
	if gotAuth != "Bearer pplx-test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "sonar-reasoning-pro" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.SearchRecencyFilter != "month" {
		t.Errorf("search_recency_filter = %q", gotReq.SearchRecencyFilter)
	}
	if len(gotReq.SearchDomainFilter) == 0 {
		t.Error("search_domain_filter not sent")
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "analyze this" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestClientStatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
	}{
		{http.StatusUnauthorized, models.ErrCodeSummaryAuthFailure},
		{http.StatusForbidden, models.ErrCodeSummaryAuthFailure},
		{http.StatusTooManyRequests, models.ErrCodeSummaryRateLimited},
		{http.StatusInternalServerError, models.ErrCodeSummaryFailure},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer srv.Close()

			c := NewClient(srv.Client(), srv.URL, "m", "k")
			_, err := c.complete(context.Background(), "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if code := models.CodeOf(err); code != tt.wantCode {
				t.Errorf("error code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "m", "k")
	if _, err := c.complete(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
