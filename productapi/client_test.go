package productapi

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func TestLookupHit(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://productdata.test/v1/search?q=B000TEST01",
		httpmock.NewStringResponder(200, `{"results":[{"asin":"B000TEST01","title":"Acme Widget Pro","brand":"Acme","price":"$29.99","image":"https://img.test/w.jpg","rating":4.5,"review_count":1234,"prime":true}]}`))

	c := NewClient("https://productdata.test/v1", "key", 5*time.Second)
	c.WithTransport(transport)

	info, ok, err := c.Lookup(context.Background(), "B000TEST01")
	if err != nil || !ok {
		t.Fatalf("Lookup = (_, %v, %v)", ok, err)
	}
	if info.ExternalID != "B000TEST01" || info.Title != "Acme Widget Pro" || !info.Prime {
		t.Fatalf("info = %+v", info)
	}
}

func TestLookupMissIsNotError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://productdata.test/v1/search?q=unknown+thing",
		httpmock.NewStringResponder(200, `{"results":[]}`))

	c := NewClient("https://productdata.test/v1", "key", 5*time.Second)
	c.WithTransport(transport)

	_, ok, err := c.Lookup(context.Background(), "unknown thing")
	if err != nil {
		t.Fatalf("miss should not error: %v", err)
	}
	if ok {
		t.Fatalf("miss should report ok=false")
	}
}

func TestLookupServerError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://productdata.test/v1/search?q=query",
		httpmock.NewStringResponder(500, "boom"))

	c := NewClient("https://productdata.test/v1", "key", 5*time.Second)
	c.WithTransport(transport)

	if _, _, err := c.Lookup(context.Background(), "query"); err == nil {
		t.Fatalf("expected error for status 500")
	}
}
