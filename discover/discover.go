// Package discover resolves a root input into the site's concrete page
// list: it locates the resource-list document, walks nested indexes, and
// filters out non-content entries.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/sitescan/product-audit/cms"
	"github.com/sitescan/product-audit/fetch"
	"github.com/sitescan/product-audit/models"
)

// ValidationError indicates the target yielded no usable entries or the
// input itself was malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Conventional resource-list locations probed when the input does not
// already point at one. First hit wins.
var probePaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/wp-sitemap.xml",
	"/post-sitemap.xml",
}

// assetExtensions is the denylist of non-content URL suffixes silently
// skipped during discovery.
var assetExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".svg", ".ico", ".bmp",
	".mp4", ".mp3", ".wav", ".avi", ".mov", ".webm",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".gz", ".tar", ".rar", ".7z",
	".css", ".js", ".json", ".txt",
	".woff", ".woff2", ".ttf", ".eot",
	".php",
}

// maxIndexDepth bounds recursion through nested sitemap indexes.
const maxIndexDepth = 3

// Discoverer turns a root URL or bare domain into a list of page resources.
type Discoverer struct {
	direct *fetch.Direct
	relay  *fetch.Client
	cms    *cms.Client // nil when unauthenticated
}

// New builds a discoverer. cmsClient may be nil.
func New(direct *fetch.Direct, relay *fetch.Client, cmsClient *cms.Client) *Discoverer {
	return &Discoverer{direct: direct, relay: relay, cms: cmsClient}
}

// Discover resolves root into discovered pages. It fails with
// ValidationError when the target yields zero usable entries.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]*models.PageResource, error) {
	normalized := fetch.NormalizeURL(root)
	if normalized == "" {
		return nil, &ValidationError{Field: "url", Reason: "empty input"}
	}
	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Host == "" {
		return nil, &ValidationError{Field: "url", Reason: "not a valid URL or domain"}
	}

	if d.cms != nil && parsed.Host == d.cms.Host() {
		pages, err := d.discoverViaCMS(ctx)
		if err == nil && len(pages) > 0 {
			return pages, nil
		}
		slog.Warn("authenticated listing unavailable, falling back to sitemap",
			slog.String("host", parsed.Host),
			slog.Any("error", err),
		)
	}

	listURL := d.locateResourceList(ctx, parsed)
	visited := make(map[string]bool)
	pages, err := d.walk(ctx, listURL, visited, 0)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, &ValidationError{Field: "sitemap", Reason: "no content entries after filtering"}
	}
	return pages, nil
}

// locateResourceList returns the input itself when it already looks like a
// resource list, otherwise probes conventional paths and falls back to a
// default suffix.
func (d *Discoverer) locateResourceList(ctx context.Context, parsed *url.URL) string {
	if LooksLikeResourceList(parsed.String()) {
		return parsed.String()
	}

	base := parsed.Scheme + "://" + parsed.Host
	for _, path := range probePaths {
		candidate := base + path
		if d.direct.Exists(ctx, candidate) {
			slog.Debug("resource list probe hit", slog.String("url", candidate))
			return candidate
		}
	}
	return base + probePaths[0]
}

// LooksLikeResourceList reports whether a URL already addresses a sitemap
// document.
func LooksLikeResourceList(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "sitemap") && strings.HasSuffix(lower, ".xml")
}

func (d *Discoverer) discoverViaCMS(ctx context.Context) ([]*models.PageResource, error) {
	var pages []*models.PageResource
	for page := 1; ; page++ {
		posts, err := d.cms.ListPosts(ctx, page, 100)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			break
		}
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			if post.Status != "publish" {
				continue
			}
			resource := NewPageResource(post.Link)
			if post.Title.Rendered != "" {
				resource.Title = post.Title.Rendered
			}
			pages = append(pages, resource)
		}
		if len(posts) < 100 {
			break
		}
	}
	return pages, nil
}

// walk fetches one resource-list document and either recurses into a
// nested index or extracts its leaf entries. An identical URL is never
// visited twice.
func (d *Discoverer) walk(ctx context.Context, listURL string, visited map[string]bool, depth int) ([]*models.PageResource, error) {
	if visited[listURL] || depth > maxIndexDepth {
		return nil, nil
	}
	visited[listURL] = true

	body, err := d.fetchDocument(ctx, listURL)
	if err != nil {
		return nil, err
	}

	doc, err := ParseResourceList(body)
	if err != nil {
		return nil, &ValidationError{Field: "sitemap", Reason: err.Error()}
	}

	if len(doc.Nested) > 0 {
		targets := preferPostLists(doc.Nested)
		var pages []*models.PageResource
		for _, nested := range targets {
			nestedPages, err := d.walk(ctx, nested, visited, depth+1)
			if err != nil {
				slog.Warn("nested resource list failed",
					slog.String("url", nested),
					slog.Any("error", err),
				)
				continue
			}
			pages = append(pages, nestedPages...)
		}
		return pages, nil
	}

	var pages []*models.PageResource
	for _, entry := range doc.Entries {
		if !IsContentURL(entry) {
			continue
		}
		pages = append(pages, NewPageResource(entry))
	}
	return pages, nil
}

func (d *Discoverer) fetchDocument(ctx context.Context, target string) (string, error) {
	body, err := d.direct.Get(ctx, target)
	if err == nil {
		return body, nil
	}
	slog.Debug("direct fetch failed, using relays",
		slog.String("url", target),
		slog.Any("error", err),
	)
	return d.relay.Fetch(ctx, target)
}

// preferPostLists narrows a nested index to the sub-lists whose names hint
// at post content, keeping everything when no name does.
func preferPostLists(nested []string) []string {
	var preferred []string
	for _, candidate := range nested {
		if strings.Contains(strings.ToLower(candidate), "post") {
			preferred = append(preferred, candidate)
		}
	}
	if len(preferred) > 0 {
		return preferred
	}
	return nested
}

// IsContentURL reports whether an entry survives the asset denylist.
func IsContentURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// NewPageResource builds a resource for a discovered entry: fresh unique
// identifier, best-effort title from the path segment, classification
// pending later analysis.
func NewPageResource(loc string) *models.PageResource {
	return &models.PageResource{
		ID:           uuid.NewString(),
		Title:        TitleFromPath(loc),
		URL:          loc,
		Status:       models.StatusAnalyzing,
		Priority:     models.PriorityMedium,
		Monetization: models.MonetizationUnknown,
		DiscoveredAt: time.Now(),
	}
}

// TitleFromPath derives a readable title from the last path segment:
// dashes and underscores become spaces, each word is capitalized.
func TitleFromPath(loc string) string {
	parsed, err := url.Parse(loc)
	if err != nil {
		return loc
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return parsed.Host
	}
	if dot := strings.LastIndex(last, "."); dot > 0 {
		last = last[:dot]
	}

	words := strings.FieldsFunc(last, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
