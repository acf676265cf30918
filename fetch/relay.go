package fetch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// RelayTarget models one pass-through indirection path: how to rewrite the
// target URL for it and how to unwrap its response shape. The list is
// statically configured; calling code never special-cases individual relays.
type RelayTarget struct {
	Name      string
	Priority  int
	Transform func(target string) string
	Parse     func(raw []byte) (string, error)
}

func parsePlain(raw []byte) (string, error) {
	return string(raw), nil
}

// allOrigins wraps the proxied body in a JSON envelope.
func parseAllOrigins(raw []byte) (string, error) {
	var envelope struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("unwrap envelope: %w", err)
	}
	if envelope.Contents == "" {
		return "", fmt.Errorf("empty envelope contents")
	}
	return envelope.Contents, nil
}

// DefaultRelays returns the built-in relay list in priority order.
func DefaultRelays() []RelayTarget {
	return []RelayTarget{
		{
			Name:     "allorigins",
			Priority: 1,
			Transform: func(target string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
			},
			Parse: parseAllOrigins,
		},
		{
			Name:     "corsproxy",
			Priority: 2,
			Transform: func(target string) string {
				return "https://corsproxy.io/?url=" + url.QueryEscape(target)
			},
			Parse: parsePlain,
		},
		{
			Name:     "codetabs",
			Priority: 3,
			Transform: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
			},
			Parse: parsePlain,
		},
	}
}

// NormalizeURL coerces scheme-less inputs to https.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}
