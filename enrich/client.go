// Package enrich consumes the AI text-generation oracle as an optional
// source of product suggestions. Missing credentials degrade the whole
// package to a no-op; callers treat its output as one noisy signal.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sitescan/product-audit/models"
)

// EnrichmentError marks an oracle failure. It is always non-fatal: callers
// log it and continue with extraction-only results.
type EnrichmentError struct {
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Errorf("enrichment: %w", e.Err).Error()
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

const defaultBaseURL = "https://api.enrichment.example.com"

// maxExcerptLen bounds how much page text is shipped to the oracle.
const maxExcerptLen = 4000

// Client calls the enrichment oracle.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds an enrichment client. An empty apiKey yields a client
// whose Suggest always returns no suggestions.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithTransport swaps the underlying transport. Intended for tests.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

// Enabled reports whether oracle credentials are configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type suggestRequest struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	KnownIDs   []string `json:"known_ids"`
	KnownNames []string `json:"known_names"`
}

type suggestResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// Suggest asks the oracle for product suggestions for one page. The excerpt
// is truncated before sending; known identifiers and names are passed as
// hints so the oracle can complete partial records instead of inventing
// duplicates.
func (c *Client) Suggest(ctx context.Context, title, excerpt string, knownIDs, knownNames []string) ([]models.Suggestion, error) {
	if !c.Enabled() {
		return nil, nil
	}

	if len(excerpt) > maxExcerptLen {
		excerpt = excerpt[:maxExcerptLen]
	}
	payload, err := json.Marshal(suggestRequest{
		Title:      title,
		Excerpt:    excerpt,
		KnownIDs:   knownIDs,
		KnownNames: knownNames,
	})
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/suggestions", bytes.NewReader(payload))
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EnrichmentError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EnrichmentError{Err: err}
	}

	var decoded suggestResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &EnrichmentError{Err: err}
	}
	return decoded.Suggestions, nil
}
