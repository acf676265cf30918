// Package resolve acquires page bodies through an ordered strategy chain:
// authenticated structured lookup, the same lookup through relays, then a
// raw-markup scrape with content-region heuristics.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sitescan/product-audit/cms"
	"github.com/sitescan/product-audit/fetch"
)

// AcquisitionError indicates every resolution strategy failed for a page.
type AcquisitionError struct {
	URL  string
	Errs []error
}

func (e *AcquisitionError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("acquisition: %s: all strategies failed: %s", e.URL, strings.Join(msgs, "; "))
}

// Resolution is the outcome of a successful strategy.
type Resolution struct {
	Body string
	// ID is the resolved post identifier when one could be determined,
	// empty otherwise.
	ID string
}

type strategy struct {
	name string
	run  func(ctx context.Context) (Resolution, error)
}

// Resolver chains the resolution strategies for one site.
type Resolver struct {
	cms    *cms.Client // nil when unauthenticated
	relay  *fetch.Client
	direct *fetch.Direct
}

// New builds a resolver. cmsClient may be nil, which skips the structured
// lookup strategies entirely.
func New(cmsClient *cms.Client, relay *fetch.Client, direct *fetch.Direct) *Resolver {
	return &Resolver{cms: cmsClient, relay: relay, direct: direct}
}

// Resolve returns the page body for targetURL, trying each strategy only
// when the previous one is unavailable or failed. Per-strategy failures are
// logged and swallowed; only exhaustion surfaces, as AcquisitionError.
func (r *Resolver) Resolve(ctx context.Context, targetURL string) (Resolution, error) {
	target := fetch.NormalizeURL(targetURL)
	slug := slugOf(target)

	var chain []strategy
	if r.cms != nil && slug != "" {
		chain = append(chain,
			strategy{name: "cms_direct", run: func(ctx context.Context) (Resolution, error) {
				return r.viaCMS(ctx, slug)
			}},
			strategy{name: "cms_relayed", run: func(ctx context.Context) (Resolution, error) {
				return r.viaRelayedCMS(ctx, slug)
			}},
		)
	}
	chain = append(chain, strategy{name: "scrape", run: func(ctx context.Context) (Resolution, error) {
		return r.viaScrape(ctx, target)
	}})

	var errs []error
	for _, s := range chain {
		resolution, err := s.run(ctx)
		if err == nil {
			return resolution, nil
		}
		slog.Debug("resolution strategy failed",
			slog.String("strategy", s.name),
			slog.String("url", target),
			slog.Any("error", err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return Resolution{}, &AcquisitionError{URL: target, Errs: errs}
}

func (r *Resolver) viaCMS(ctx context.Context, slug string) (Resolution, error) {
	post, err := r.cms.GetPostBySlug(ctx, slug)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Body: post.Content.Rendered, ID: fmt.Sprintf("%d", post.ID)}, nil
}

// viaRelayedCMS fetches the same structured endpoint through the racing
// relays, for sites whose API rejects direct connections.
func (r *Resolver) viaRelayedCMS(ctx context.Context, slug string) (Resolution, error) {
	raw, err := r.relay.Fetch(ctx, r.cms.SlugURL(slug))
	if err != nil {
		return Resolution{}, err
	}
	posts, err := cms.ParsePosts([]byte(raw))
	if err != nil {
		return Resolution{}, err
	}
	if len(posts) == 0 {
		return Resolution{}, fmt.Errorf("no post with slug %q", slug)
	}
	return Resolution{Body: posts[0].Content.Rendered, ID: fmt.Sprintf("%d", posts[0].ID)}, nil
}

func (r *Resolver) viaScrape(ctx context.Context, target string) (Resolution, error) {
	markup, err := r.direct.Get(ctx, target)
	if err != nil {
		slog.Debug("direct scrape failed, using relays",
			slog.String("url", target),
			slog.Any("error", err),
		)
		markup, err = r.relay.Fetch(ctx, target)
		if err != nil {
			return Resolution{}, err
		}
	}

	body, id, err := ExtractContent(markup)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Body: body, ID: id}, nil
}

func slugOf(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	return segments[len(segments)-1]
}
