package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/deckfetch/models"
)

// Client is a lightweight OpenAI-compatible chat client pointed at
// Perplexity. It uses net/http directly — no third-party SDK needed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewClient creates a summarization client. Pass nil to use a default
// http.Client.
func NewClient(httpClient *http.Client, baseURL, model, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		model:      model,
		apiKey:     apiKey,
	}
}

// chatRequest is the chat completion request body. The search_* fields are
// Perplexity extensions that scope the model's web search to funding
// databases and startup press.
type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	SearchDomainFilter  []string      `json:"search_domain_filter,omitempty"`
	SearchRecencyFilter string        `json:"search_recency_filter,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatErrorResponse captures an API error from the provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// searchDomains scopes peer discovery to sources that carry verifiable
// funding data.
var searchDomains = []string{
	"crunchbase.com",
	"news.crunchbase.com",
	"pitchbook.com",
	"techcrunch.com",
	"vcnewsdaily.com",
	"techfundingnews.com",
	"sifted.eu",
	"fortune.com",
	"linkedin.com",
	"twitter.com",
	"eu-startups.com",
	"techinasia.com",
	"news.ycombinator.com",
}

// complete sends one user prompt and returns the raw completion text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		SearchDomainFilter:  searchDomains,
		SearchRecencyFilter: "month",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", models.NewRetrievalError(models.ErrCodeSummaryFailure, "summary request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewRetrievalError(models.ErrCodeSummaryFailure, "failed to read summary response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", models.NewRetrievalError(models.ErrCodeSummaryFailure, "failed to parse summary response", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", models.NewRetrievalError(models.ErrCodeSummaryFailure, "summary API returned no content", nil)
	}
	return chatResp.Choices[0].Message.Content, nil
}

// classifyAPIError maps HTTP status codes to appropriate error codes.
func classifyAPIError(statusCode int, body []byte) *models.RetrievalError {
	var errResp chatErrorResponse
	msg := "summary API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewRetrievalError(models.ErrCodeSummaryAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewRetrievalError(models.ErrCodeSummaryRateLimited, msg, nil)
	default:
		return models.NewRetrievalError(models.ErrCodeSummaryFailure,
			fmt.Sprintf("summary API returned %d: %s", statusCode, msg), nil)
	}
}
