package audit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sitescan/product-audit/cms"
	"github.com/sitescan/product-audit/discover"
	"github.com/sitescan/product-audit/enrich"
	"github.com/sitescan/product-audit/fetch"
	"github.com/sitescan/product-audit/resolve"
)

// FailureLabel maps any pipeline error onto a stable category label used
// for aggregation and metrics.
func FailureLabel(err error) string {
	if err == nil {
		return "unknown"
	}

	var validation *discover.ValidationError
	if errors.As(err, &validation) {
		return "invalid_input"
	}

	var apiErr *cms.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatus == http.StatusUnauthorized || apiErr.HTTPStatus == http.StatusForbidden {
			return "needs_credentials"
		}
		return "cms"
	}

	var acquisition *resolve.AcquisitionError
	if errors.As(err, &acquisition) {
		return "unreachable"
	}

	var exhaustion *fetch.RelayExhaustionError
	if errors.As(err, &exhaustion) {
		return "relays_exhausted"
	}

	var enrichment *enrich.EnrichmentError
	if errors.As(err, &enrichment) {
		return "enrichment"
	}

	var netErr *fetch.NetworkError
	if errors.As(err, &netErr) {
		switch netErr.Status {
		case http.StatusForbidden:
			return "forbidden"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusTooManyRequests:
			return "rate_limited"
		}
		if isTimeout(netErr.Err) {
			return "timeout"
		}
		return "network"
	}

	if isTimeout(err) {
		return "timeout"
	}
	return "other"
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// FailureMessage renders a single human-readable line for an error,
// classified by category. Raw chains stay in the logs.
func FailureMessage(err error) string {
	switch label := FailureLabel(err); label {
	case "invalid_input":
		return fmt.Sprintf("the target input is invalid or yielded nothing usable: %v", err)
	case "needs_credentials":
		return "the content API rejected the configured credentials; check user and application password"
	case "unreachable":
		return "the page could not be reached by any resolution strategy; the site may be blocking all paths"
	case "relays_exhausted":
		return "every relay path failed; the target may be down or blocking intermediaries"
	case "timeout":
		return "the request timed out; the target is slow or unreachable"
	case "rate_limited":
		return "the target is rate-limiting requests; retry later with fewer workers"
	case "forbidden":
		return "the target refused the request (403); direct access may be blocked"
	case "not_found":
		return "the target returned 404; the page may have been removed"
	case "enrichment":
		return "the enrichment oracle failed; results include extraction-only data"
	default:
		return fmt.Sprintf("the audit failed: %v", err)
	}
}
