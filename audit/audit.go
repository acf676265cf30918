// Package audit orchestrates the full pipeline: discovery, bounded
// per-page content resolution, classification, extraction and product
// resolution.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sitescan/product-audit/cache"
	"github.com/sitescan/product-audit/cms"
	"github.com/sitescan/product-audit/config"
	"github.com/sitescan/product-audit/discover"
	"github.com/sitescan/product-audit/enrich"
	"github.com/sitescan/product-audit/extract"
	"github.com/sitescan/product-audit/fetch"
	"github.com/sitescan/product-audit/models"
	"github.com/sitescan/product-audit/productapi"
	"github.com/sitescan/product-audit/resolve"
	"github.com/sitescan/product-audit/runner"
)

// marketMarkerPattern detects marketplace product links in resolved page
// bodies. Presence drives monetization and priority classification.
var marketMarkerPattern = regexp.MustCompile(`(?i)amazon\.[a-z.]+/(?:dp|gp/product)/|amzn\.to/|data-asin=`)

// Auditor drives an audit over one site.
type Auditor struct {
	cfg        *config.Config
	direct     *fetch.Direct
	relay      *fetch.Client
	cms        *cms.Client
	discoverer *discover.Discoverer
	resolver   *resolve.Resolver
	extractor  *extract.Extractor
	enricher   *enrich.Client
	oracle     *productapi.Client
	products   *extract.Resolver
	cache      *cache.Service
	Metrics    *Metrics

	pageCount  int64
	errorCount int64

	mu           sync.Mutex
	known        map[string]*models.PageResource
	failedURLs   []string
	errorsByType map[string]int
	cancelPrev   context.CancelFunc
}

// New wires an auditor from configuration. CMS access is optional; without
// credentials resolution falls back to scraping and discovery to markup
// parsing.
func New(cfg *config.Config) (*Auditor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	direct := fetch.NewDirect(cfg.UserAgent, cfg.Timeout, cfg.RespectRobotsTxt)
	relay := fetch.NewClient(fetch.DefaultRelays(), cfg.RelayTimeout, cfg.RelayDelay)

	var cmsClient *cms.Client
	if cfg.HasCMSCredentials() {
		cmsClient = cms.NewClient(cfg.CMSBaseURL, cfg.CMSUser, cfg.CMSToken, cfg.Timeout)
	}

	var store cache.Store
	if cfg.CacheDir != "" {
		fileStore, err := cache.NewFileStore(filepath.Clean(cfg.CacheDir))
		if err != nil {
			slog.Warn("cache persistence unavailable", slog.Any("error", err))
		} else {
			store = fileStore
		}
	}
	cacheService := cache.NewService(cache.Options{
		ProductTTL:   cfg.ProductCacheTTL,
		ProductSize:  cfg.ProductCacheSize,
		AnalysisTTL:  cfg.AnalysisCacheTTL,
		AnalysisSize: cfg.AnalysisCacheSize,
	}, store)

	oracle := productapi.NewClient(cfg.ProductAPIBaseURL, cfg.ProductAPIKey, cfg.Timeout)

	a := &Auditor{
		cfg:          cfg,
		direct:       direct,
		relay:        relay,
		cms:          cmsClient,
		discoverer:   discover.New(direct, relay, cmsClient),
		resolver:     resolve.New(cmsClient, relay, direct),
		extractor:    extract.NewExtractor(),
		enricher:     enrich.NewClient("", cfg.EnrichAPIKey, cfg.Timeout),
		oracle:       oracle,
		products:     extract.NewResolver(oracle, cacheService, cfg.ProductLimit),
		cache:        cacheService,
		Metrics:      NewMetrics(),
		known:        make(map[string]*models.PageResource),
		errorsByType: make(map[string]int),
	}
	relay.OnAttempt = a.Metrics.ObserveFetch
	return a, nil
}

// Cache exposes the cache service for lifecycle calls at startup.
func (a *Auditor) Cache() *cache.Service {
	return a.cache
}

// WithTransport points every outbound client at rt. Intended for tests.
func (a *Auditor) WithTransport(rt http.RoundTripper) {
	a.direct.WithTransport(rt)
	a.relay.WithTransport(rt)
	if a.cms != nil {
		a.cms.WithTransport(rt)
	}
	a.enricher.WithTransport(rt)
	a.oracle.WithTransport(rt)
}

// Discover resolves the configured site into its page list and registers
// every page in the working set.
func (a *Auditor) Discover(ctx context.Context) ([]*models.PageResource, error) {
	pages, err := a.discoverer.Discover(ctx, a.cfg.SiteURL)
	if err != nil {
		a.recordError(err, a.cfg.SiteURL)
		return nil, err
	}
	if len(pages) > a.cfg.MaxPages {
		pages = pages[:a.cfg.MaxPages]
	}

	a.mu.Lock()
	for _, page := range pages {
		a.known[page.URL] = page
	}
	a.mu.Unlock()

	slog.Info("discovery complete", slog.Int("pages", len(pages)))
	return pages, nil
}

// AddManualPage registers a single page outside discovery. Input without a
// scheme is coerced to https. A URL already in the working set is rejected
// as a duplicate.
func (a *Auditor) AddManualPage(raw string) (*models.PageResource, error) {
	normalized := fetch.NormalizeURL(raw)
	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return nil, &discover.ValidationError{Field: "url", Reason: "not a valid page address"}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.known[normalized]; exists {
		return nil, &discover.ValidationError{Field: "url", Reason: "already in the working set"}
	}

	page := discover.NewPageResource(normalized)
	a.known[normalized] = page
	return page, nil
}

// Run executes a full audit: discovery, bounded per-page processing, then
// product resolution over the merged result. Starting a run cancels any
// still-running previous one; at most one run writes results at a time.
func (a *Auditor) Run(ctx context.Context) (*models.AuditResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := a.supersede(ctx)
	defer cancel()

	start := time.Now()
	pages, err := a.Discover(ctx)
	if err != nil {
		return nil, err
	}

	perPage := make([][]*models.MergedProduct, len(pages))
	type job struct {
		idx  int
		page *models.PageResource
	}
	jobs := make([]job, len(pages))
	for i, page := range pages {
		jobs[i] = job{idx: i, page: page}
	}

	runner.Run(ctx, jobs, a.cfg.Workers, func(ctx context.Context, j job) error {
		products, err := a.auditPage(ctx, j.page)
		if err != nil {
			return err
		}
		perPage[j.idx] = products
		return nil
	})

	merged := combine(perPage)
	resolved, groups := a.products.Resolve(ctx, merged)

	result := &models.AuditResult{
		Pages:        pages,
		Products:     resolved,
		Groups:       groups,
		StartTime:    start,
		EndTime:      time.Now(),
		PageCount:    int(atomic.LoadInt64(&a.pageCount)),
		ErrorCount:   int(atomic.LoadInt64(&a.errorCount)),
		FailedURLs:   a.snapshotFailedURLs(),
		ErrorsByType: a.snapshotErrors(),
	}
	slog.Info("audit complete",
		slog.Int("pages", result.PageCount),
		slog.Int("products", len(resolved)),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("elapsed", result.EndTime.Sub(start)),
	)
	return result, nil
}

// auditPage resolves one page's content, classifies it and extracts its
// merged product list, memoized in the analysis cache by URL.
func (a *Auditor) auditPage(ctx context.Context, page *models.PageResource) ([]*models.MergedProduct, error) {
	resolution, err := a.resolver.Resolve(ctx, page.URL)
	if err != nil {
		page.Status = models.StatusFailed
		a.recordError(err, page.URL)
		a.Metrics.IncPage("failed")
		return nil, err
	}

	page.Body = resolution.Body
	page.Status = models.StatusAnalyzed
	atomic.AddInt64(&a.pageCount, 1)
	a.Metrics.IncPage("analyzed")

	classify(page)

	if cached, ok := a.cache.Analysis(page.URL); ok {
		a.Metrics.IncCacheLookup("analysis", "hit")
		return cached, nil
	}
	a.Metrics.IncCacheLookup("analysis", "miss")

	candidates := a.extractor.Extract(page.Body)
	for _, c := range candidates {
		a.Metrics.IncCandidate(c.OriginStrategy)
	}
	products := extract.Merge(candidates)
	products = a.enrichProducts(ctx, page, products)

	a.cache.SetAnalysis(page.URL, products)
	return products, nil
}

// enrichProducts folds oracle suggestions into the page's product list.
// Oracle failure is non-fatal: it is recorded and the extraction-only list
// is returned.
func (a *Auditor) enrichProducts(ctx context.Context, page *models.PageResource, products []*models.MergedProduct) []*models.MergedProduct {
	if !a.enricher.Enabled() {
		return products
	}

	ids := make([]string, 0, len(products))
	names := make([]string, 0, len(products))
	for _, p := range products {
		if p.ExternalID != "" {
			ids = append(ids, p.ExternalID)
		}
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}

	suggestions, err := a.enricher.Suggest(ctx, page.Title, excerpt(page.Body), ids, names)
	if err != nil {
		a.recordError(err, page.URL)
		slog.Warn("enrichment failed", slog.String("url", page.URL), slog.Any("error", err))
		return products
	}
	return extract.ApplySuggestions(products, suggestions, a.cfg.EnrichMinConfidence)
}

// WriteBack replaces the CMS post body behind the page with content and
// returns the canonical link. Requires CMS credentials.
func (a *Auditor) WriteBack(ctx context.Context, page *models.PageResource, content string) (string, error) {
	if a.cms == nil {
		return "", &discover.ValidationError{Field: "cms", Reason: "credentials not configured"}
	}

	slug := slugOf(page.URL)
	if slug == "" {
		return "", &discover.ValidationError{Field: "url", Reason: "no slug to look up"}
	}
	post, err := a.cms.GetPostBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	return a.cms.UpdatePost(ctx, post.ID, content)
}

// classify sets monetization and priority from marketplace marker
// presence in the resolved body.
func classify(page *models.PageResource) {
	if marketMarkerPattern.MatchString(page.Body) {
		page.Monetization = models.MonetizationMonetized
		page.Priority = models.PriorityHigh
		return
	}
	page.Monetization = models.MonetizationNone
	page.Priority = models.PriorityLow
}

// combine folds per-page merged lists into one site-wide list, preserving
// page order and the additive-only field rule.
func combine(perPage [][]*models.MergedProduct) []*models.MergedProduct {
	index := make(map[string]*models.MergedProduct)
	var out []*models.MergedProduct

	for _, products := range perPage {
		for _, p := range products {
			existing, ok := index[p.Key]
			if !ok {
				clone := *p
				clone.Sources = append([]string(nil), p.Sources...)
				index[p.Key] = &clone
				out = append(out, index[p.Key])
				continue
			}
			foldRecord(existing, p)
		}
	}
	return out
}

func foldRecord(dst, src *models.MergedProduct) {
	if dst.ExternalID == "" {
		dst.ExternalID = src.ExternalID
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Brand == "" {
		dst.Brand = src.Brand
	}
	if dst.Category == "" {
		dst.Category = src.Category
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if src.Confidence > dst.Confidence {
		dst.Confidence = src.Confidence
	}
	for _, source := range src.Sources {
		known := false
		for _, existing := range dst.Sources {
			if existing == source {
				known = true
				break
			}
		}
		if !known {
			dst.Sources = append(dst.Sources, source)
		}
	}
}

// excerpt trims the markup down to the text shipped to the enrichment
// oracle.
func excerpt(body string) string {
	text := extract.CleanText(stripTags(body))
	const limit = 2000
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(markup string) string {
	return tagPattern.ReplaceAllString(markup, " ")
}

// slugOf extracts the last path segment of a page URL.
func slugOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	trimmed := strings.Trim(parsed.EscapedPath(), "/")
	if trimmed == "" {
		return ""
	}
	segments := strings.Split(trimmed, "/")
	return segments[len(segments)-1]
}

// supersede cancels any still-running audit and installs this run's
// cancellation in its place.
func (a *Auditor) supersede(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if a.cancelPrev != nil {
		a.cancelPrev()
	}
	a.cancelPrev = cancel
	a.mu.Unlock()
	return ctx, cancel
}

func (a *Auditor) recordError(err error, url string) {
	atomic.AddInt64(&a.errorCount, 1)
	category := FailureLabel(err)

	a.mu.Lock()
	a.errorsByType[category]++
	a.failedURLs = append(a.failedURLs, url)
	a.mu.Unlock()

	a.Metrics.IncError(category)
}

func (a *Auditor) snapshotFailedURLs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.failedURLs))
	copy(out, a.failedURLs)
	return out
}

func (a *Auditor) snapshotErrors() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.errorsByType))
	for k, v := range a.errorsByType {
		out[k] = v
	}
	return out
}
