// Package productapi is a client for the remote product-data oracle.
package productapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sitescan/product-audit/models"
)

// Client queries the product-data API by free text or external identifier.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a product-data client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
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

type lookupResponse struct {
	Results []struct {
		ASIN        string  `json:"asin"`
		Title       string  `json:"title"`
		Brand       string  `json:"brand"`
		Price       string  `json:"price"`
		Image       string  `json:"image"`
		Rating      float64 `json:"rating"`
		ReviewCount int     `json:"review_count"`
		Prime       bool    `json:"prime"`
	} `json:"results"`
}

// Lookup resolves a product by query text or identifier. A miss is not an
// error: ok is false and err is nil when the oracle has no match.
func (c *Client) Lookup(ctx context.Context, query string) (models.ProductInfo, bool, error) {
	target := fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.ProductInfo{}, false, fmt.Errorf("build lookup request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ProductInfo{}, false, fmt.Errorf("lookup %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ProductInfo{}, false, fmt.Errorf("lookup %q: status %d", query, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ProductInfo{}, false, fmt.Errorf("read lookup response: %w", err)
	}

	var decoded lookupResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return models.ProductInfo{}, false, fmt.Errorf("decode lookup response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return models.ProductInfo{}, false, nil
	}

	first := decoded.Results[0]
	return models.ProductInfo{
		ExternalID:  first.ASIN,
		Title:       first.Title,
		Brand:       first.Brand,
		Price:       first.Price,
		ImageURL:    first.Image,
		Rating:      first.Rating,
		ReviewCount: first.ReviewCount,
		Prime:       first.Prime,
	}, true, nil
}
