package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/sitescan/product-audit/cms"
	"github.com/sitescan/product-audit/config"
	"github.com/sitescan/product-audit/discover"
	"github.com/sitescan/product-audit/enrich"
	"github.com/sitescan/product-audit/fetch"
	"github.com/sitescan/product-audit/models"
	"github.com/sitescan/product-audit/resolve"
)

const siteSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/best-headphones</loc></url>
  <url><loc>https://example.com/travel-notes</loc></url>
  <url><loc>https://example.com/about-the-site</loc></url>
  <url><loc>https://example.com/banner.jpg</loc></url>
  <url><loc>https://example.com/manual.pdf</loc></url>
</urlset>`

const monetizedPage = `<html><body>
<div class="entry-content">
<h2>1. Best Overall: Sony WH-1000XM4</h2>
<p>Grab the <a href="https://www.amazon.com/dp/B0863TXGM3">Sony WH-1000XM4 Wireless Headphones</a> while stocks last.</p>
</div>
</body></html>`

const plainPage = `<html><body>
<div class="entry-content"><p>Notes from a long train ride through the mountains. No shopping here.</p></div>
</body></html>`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SiteURL = "https://example.com"
	cfg.CacheDir = t.TempDir()
	cfg.Workers = 4
	return cfg
}

func testAuditor(t *testing.T, cfg *config.Config) (*Auditor, *httpmock.MockTransport) {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	transport := httpmock.NewMockTransport()
	a.WithTransport(transport)
	return a, transport
}

func registerSite(transport *httpmock.MockTransport) {
	transport.RegisterResponder("HEAD", "https://example.com/sitemap.xml",
		httpmock.NewStringResponder(200, ""))
	transport.RegisterResponder("GET", "https://example.com/sitemap.xml",
		httpmock.NewStringResponder(200, siteSitemap))
	transport.RegisterResponder("GET", "https://example.com/best-headphones",
		httpmock.NewStringResponder(200, monetizedPage))
	transport.RegisterResponder("GET", "https://example.com/travel-notes",
		httpmock.NewStringResponder(200, plainPage))
	transport.RegisterResponder("GET", "https://example.com/about-the-site",
		httpmock.NewStringResponder(200, plainPage))
	transport.RegisterResponder("GET", `=~^https://productdata\.example\.com/v1/search`,
		httpmock.NewStringResponder(200, `{"results":[]}`))
}

func TestDiscoverReturnsContentPagesWithDefaults(t *testing.T) {
	a, transport := testAuditor(t, testConfig(t))
	registerSite(transport)

	pages, err := a.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("discovered %d pages, want 3 content pages", len(pages))
	}
	for _, page := range pages {
		if page.Status != models.StatusAnalyzing || page.Priority != models.PriorityMedium || page.Monetization != models.MonetizationUnknown {
			t.Fatalf("default classification = %s/%s/%s for %s", page.Status, page.Priority, page.Monetization, page.URL)
		}
		if strings.HasSuffix(page.URL, ".jpg") || strings.HasSuffix(page.URL, ".pdf") {
			t.Fatalf("asset URL survived discovery: %s", page.URL)
		}
	}
}

func TestRunResolvesAndReclassifies(t *testing.T) {
	a, transport := testAuditor(t, testConfig(t))
	registerSite(transport)

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PageCount != 3 {
		t.Fatalf("PageCount = %d, want 3", result.PageCount)
	}
	if result.ErrorCount != 0 {
		t.Fatalf("ErrorCount = %d (%v)", result.ErrorCount, result.ErrorsByType)
	}

	for _, page := range result.Pages {
		if page.Status != models.StatusAnalyzed {
			t.Fatalf("page %s status = %s", page.URL, page.Status)
		}
		if page.Body == "" {
			t.Fatalf("page %s has no resolved body", page.URL)
		}
		switch page.URL {
		case "https://example.com/best-headphones":
			if page.Monetization != models.MonetizationMonetized || page.Priority != models.PriorityHigh {
				t.Fatalf("monetized page classified %s/%s", page.Monetization, page.Priority)
			}
		default:
			if page.Monetization != models.MonetizationNone || page.Priority != models.PriorityLow {
				t.Fatalf("plain page %s classified %s/%s", page.URL, page.Monetization, page.Priority)
			}
		}
	}

	if len(result.Products) == 0 {
		t.Fatalf("no products extracted from the monetized page")
	}
	found := false
	for _, p := range result.Products {
		if p.ExternalID == "B0863TXGM3" {
			found = true
			if p.Description == "" {
				t.Fatalf("resolved product has no description")
			}
		}
	}
	if !found {
		t.Fatalf("marketplace identifier not in products: %+v", result.Products)
	}
}

func TestRunRecordsPageFailures(t *testing.T) {
	a, transport := testAuditor(t, testConfig(t))
	registerSite(transport)
	transport.RegisterResponder("GET", "https://example.com/travel-notes",
		httpmock.NewStringResponder(404, "gone"))

	result, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.PageCount != 2 {
		t.Fatalf("PageCount = %d, want 2 surviving pages", result.PageCount)
	}
	if result.ErrorCount != 1 {
		t.Fatalf("ErrorCount = %d, want 1", result.ErrorCount)
	}
	if len(result.FailedURLs) != 1 || result.FailedURLs[0] != "https://example.com/travel-notes" {
		t.Fatalf("FailedURLs = %v", result.FailedURLs)
	}
	if result.ErrorsByType["unreachable"] != 1 {
		t.Fatalf("ErrorsByType = %v, want unreachable counted", result.ErrorsByType)
	}

	for _, page := range result.Pages {
		if page.URL == "https://example.com/travel-notes" && page.Status != models.StatusFailed {
			t.Fatalf("failed page status = %s", page.Status)
		}
	}
}

func TestAddManualPageNormalizesAndRejectsDuplicates(t *testing.T) {
	a, _ := testAuditor(t, testConfig(t))

	page, err := a.AddManualPage("example.com/post")
	if err != nil {
		t.Fatalf("AddManualPage: %v", err)
	}
	if page.URL != "https://example.com/post" {
		t.Fatalf("URL = %q, scheme not coerced", page.URL)
	}
	if page.ID == "" {
		t.Fatalf("manual page has no identifier")
	}

	other, err := a.AddManualPage("example.com/other-post")
	if err != nil {
		t.Fatalf("AddManualPage second URL: %v", err)
	}
	if other.ID == page.ID {
		t.Fatalf("identifiers collide: %q", page.ID)
	}

	_, err = a.AddManualPage("https://example.com/post")
	var validation *discover.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("duplicate add error = %v, want validation error", err)
	}
}

func TestWriteBackUpdatesPost(t *testing.T) {
	cfg := testConfig(t)
	cfg.CMSBaseURL = "https://example.com"
	cfg.CMSUser = "editor"
	cfg.CMSToken = "app-password"
	a, transport := testAuditor(t, cfg)

	transport.RegisterResponder("GET", "https://example.com/wp-json/wp/v2/posts?slug=best-headphones",
		httpmock.NewStringResponder(200, `[{"id":12,"slug":"best-headphones","link":"https://example.com/best-headphones","status":"publish"}]`))
	transport.RegisterResponder("POST", "https://example.com/wp-json/wp/v2/posts/12",
		httpmock.NewStringResponder(200, `{"id":12,"link":"https://example.com/best-headphones"}`))

	page := &models.PageResource{URL: "https://example.com/best-headphones"}
	link, err := a.WriteBack(context.Background(), page, "<p>reworked</p>")
	if err != nil {
		t.Fatalf("WriteBack: %v", err)
	}
	if link != "https://example.com/best-headphones" {
		t.Fatalf("link = %q", link)
	}
}

func TestWriteBackNeedsCredentials(t *testing.T) {
	a, _ := testAuditor(t, testConfig(t))

	page := &models.PageResource{URL: "https://example.com/best-headphones"}
	_, err := a.WriteBack(context.Background(), page, "body")
	var validation *discover.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want validation error without credentials", err)
	}
}

func TestFailureLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: &discover.ValidationError{Field: "url", Reason: "empty"}, want: "invalid_input"},
		{err: &cms.APIError{Code: "rest_forbidden", HTTPStatus: 403}, want: "needs_credentials"},
		{err: &cms.APIError{Code: "rest_invalid", HTTPStatus: 400}, want: "cms"},
		{err: &resolve.AcquisitionError{URL: "https://example.com/x"}, want: "unreachable"},
		{err: &fetch.RelayExhaustionError{Attempted: 3}, want: "relays_exhausted"},
		{err: &fetch.NetworkError{URL: "https://example.com/x", Status: 404}, want: "not_found"},
		{err: &fetch.NetworkError{URL: "https://example.com/x", Status: 429}, want: "rate_limited"},
		{err: &fetch.NetworkError{URL: "https://example.com/x", Err: context.DeadlineExceeded}, want: "timeout"},
		{err: &enrich.EnrichmentError{Err: fmt.Errorf("oracle down")}, want: "enrichment"},
		{err: context.DeadlineExceeded, want: "timeout"},
		{err: fmt.Errorf("boom"), want: "other"},
	}
	for _, tt := range tests {
		if got := FailureLabel(tt.err); got != tt.want {
			t.Fatalf("FailureLabel(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFailureMessageIsReadable(t *testing.T) {
	msg := FailureMessage(&cms.APIError{Code: "rest_forbidden", HTTPStatus: 401})
	if msg == "" || strings.Contains(msg, "goroutine") {
		t.Fatalf("message = %q", msg)
	}
	if !strings.Contains(msg, "credentials") {
		t.Fatalf("message %q does not name the credential problem", msg)
	}
}
