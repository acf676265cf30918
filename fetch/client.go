package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	memoCapacity = 128
	memoTTL      = 2 * time.Minute
	maxBodySize  = 8 << 20
)

// Client acquires remote bodies through the configured relay paths, racing
// them in parallel or walking them sequentially as a degraded mode.
type Client struct {
	httpClient *http.Client
	relays     []RelayTarget
	timeout    time.Duration
	delay      time.Duration
	memo       *expirable.LRU[string, string]

	// OnAttempt, when set, observes every relay attempt. Outcome is
	// "success" or "failure".
	OnAttempt func(relay, outcome string, elapsed time.Duration)
}

// NewClient builds a relay client. timeout bounds each individual attempt;
// delay separates sequential attempts.
func NewClient(relays []RelayTarget, timeout, delay time.Duration) *Client {
	if len(relays) == 0 {
		relays = DefaultRelays()
	}
	sorted := make([]RelayTarget, len(relays))
	copy(sorted, relays)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		relays:  sorted,
		timeout: timeout,
		delay:   delay,
		memo:    expirable.NewLRU[string, string](memoCapacity, nil, memoTTL),
	}
}

// WithTransport swaps the underlying transport. Intended for tests.
func (c *Client) WithTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

// Relays returns the configured relay count.
func (c *Client) Relays() int {
	return len(c.relays)
}

// Fetch races one request per relay target and returns the first successful
// parsed body. Remaining in-flight attempts are cancelled as soon as one
// succeeds. Fails with RelayExhaustionError only when every path fails.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	target := NormalizeURL(rawURL)
	if body, ok := c.memo.Get(target); ok {
		return body, nil
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		relay string
		body  string
		err   error
	}
	results := make(chan outcome, len(c.relays))

	for _, relay := range c.relays {
		go func(r RelayTarget) {
			body, err := c.attempt(raceCtx, r, target)
			results <- outcome{relay: r.Name, body: body, err: err}
		}(relay)
	}

	var errs []error
	for range c.relays {
		res := <-results
		if res.err == nil {
			cancel()
			c.memo.Add(target, res.body)
			return res.body, nil
		}
		slog.Debug("relay attempt failed",
			slog.String("relay", res.relay),
			slog.String("url", target),
			slog.Any("error", res.err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", res.relay, res.err))
	}

	return "", &RelayExhaustionError{Attempted: len(c.relays), Errs: errs}
}

// FetchSequential walks relays in priority order with a short pause between
// attempts, so a struggling set of relays is not hammered all at once.
func (c *Client) FetchSequential(ctx context.Context, rawURL string) (string, error) {
	target := NormalizeURL(rawURL)
	if body, ok := c.memo.Get(target); ok {
		return body, nil
	}

	var errs []error
	for i, relay := range c.relays {
		if i > 0 && c.delay > 0 {
			select {
			case <-ctx.Done():
				errs = append(errs, ctx.Err())
				return "", &RelayExhaustionError{Attempted: len(c.relays), Errs: errs}
			case <-time.After(c.delay):
			}
		}

		body, err := c.attempt(ctx, relay, target)
		if err == nil {
			c.memo.Add(target, body)
			return body, nil
		}
		slog.Debug("relay attempt failed",
			slog.String("relay", relay.Name),
			slog.String("url", target),
			slog.Any("error", err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", relay.Name, err))
	}

	return "", &RelayExhaustionError{Attempted: len(c.relays), Errs: errs}
}

// attempt issues one time-boxed request through a single relay. A non-2xx
// status or transport error counts as a failed attempt, never a fatal one.
func (c *Client) attempt(ctx context.Context, relay RelayTarget, target string) (string, error) {
	start := time.Now()
	body, err := c.doAttempt(ctx, relay, target)
	if c.OnAttempt != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.OnAttempt(relay.Name, outcome, time.Since(start))
	}
	return body, err
}

func (c *Client) doAttempt(ctx context.Context, relay RelayTarget, target string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	relayURL := relay.Transform(target)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, relayURL, nil)
	if err != nil {
		return "", &NetworkError{URL: relayURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{URL: relayURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{URL: relayURL, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &NetworkError{URL: relayURL, Err: err}
	}

	parsed, err := relay.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %s response: %w", relay.Name, err)
	}
	return parsed, nil
}
