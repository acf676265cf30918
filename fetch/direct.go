package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Direct fetches single resources over a direct connection. It fronts the
// relay client: callers try Direct first and fall back to racing relays
// when the direct path is blocked.
type Direct struct {
	base *colly.Collector
}

// NewDirect builds a direct fetcher with the shared transport tuning.
func NewDirect(userAgent string, timeout time.Duration, respectRobots bool) *Direct {
	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	collector.IgnoreRobotsTxt = !respectRobots
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Direct{base: collector}
}

// WithTransport swaps the underlying transport. Intended for tests.
func (d *Direct) WithTransport(rt http.RoundTripper) {
	d.base.WithTransport(rt)
}

// Get retrieves the body of rawURL over a direct connection.
func (d *Direct) Get(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := NormalizeURL(rawURL)
	collector := d.base.Clone()

	var body []byte
	var status int
	var respErr error

	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		respErr = err
	})

	if err := collector.Visit(target); err != nil {
		return "", &NetworkError{URL: target, Err: err}
	}
	collector.Wait()

	if respErr != nil {
		return "", &NetworkError{URL: target, Status: status, Err: respErr}
	}
	return string(body), nil
}

// Exists performs a lightweight existence check.
func (d *Direct) Exists(ctx context.Context, rawURL string) bool {
	if ctx.Err() != nil {
		return false
	}

	target := NormalizeURL(rawURL)
	collector := d.base.Clone()

	ok := false
	collector.OnResponse(func(r *colly.Response) {
		ok = r.StatusCode >= 200 && r.StatusCode < 300
	})

	if err := collector.Head(target); err != nil {
		return false
	}
	collector.Wait()
	return ok
}
