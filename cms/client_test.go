package cms

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func newTestClient(transport *httpmock.MockTransport) *Client {
	c := NewClient("https://example.com", "admin", "app-password", 5*time.Second)
	c.WithTransport(transport)
	return c
}

func TestGetPostBySlug(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/wp-json/wp/v2/posts?slug=best-widgets",
		httpmock.NewStringResponder(200, `[{"id":12,"slug":"best-widgets","link":"https://example.com/best-widgets","status":"publish","title":{"rendered":"Best Widgets"},"content":{"rendered":"<p>body</p>"}}]`))

	post, err := newTestClient(transport).GetPostBySlug(context.Background(), "best-widgets")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if post.ID != 12 || post.Title.Rendered != "Best Widgets" || post.Content.Rendered != "<p>body</p>" {
		t.Fatalf("post = %+v", post)
	}
}

func TestGetPostBySlugEmptyList(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/wp-json/wp/v2/posts?slug=missing",
		httpmock.NewStringResponder(200, `[]`))

	if _, err := newTestClient(transport).GetPostBySlug(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for empty result")
	}
}

func TestListPostsSendsAuth(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/wp-json/wp/v2/posts?page=1&per_page=100&status=publish",
		func(req *http.Request) (*http.Response, error) {
			user, pass, ok := req.BasicAuth()
			if !ok || user != "admin" || pass != "app-password" {
				return httpmock.NewStringResponse(401, `{"code":"rest_forbidden","message":"auth required"}`), nil
			}
			return httpmock.NewStringResponse(200, `[{"id":1,"slug":"a","link":"https://example.com/a","status":"publish"}]`), nil
		})

	posts, err := newTestClient(transport).ListPosts(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "a" {
		t.Fatalf("posts = %+v", posts)
	}
}

func TestUpdatePostReturnsCanonicalLink(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "https://example.com/wp-json/wp/v2/posts/12",
		httpmock.NewStringResponder(200, `{"id":12,"link":"https://example.com/best-widgets"}`))

	link, err := newTestClient(transport).UpdatePost(context.Background(), 12, "<p>new body</p>")
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if link != "https://example.com/best-widgets" {
		t.Fatalf("link = %q", link)
	}
}

func TestUpdatePostStructuredError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", "https://example.com/wp-json/wp/v2/posts/12",
		httpmock.NewStringResponder(403, `{"code":"rest_cannot_edit","message":"Sorry, you are not allowed to edit this post."}`))

	_, err := newTestClient(transport).UpdatePost(context.Background(), 12, "body")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Code != "rest_cannot_edit" || apiErr.HTTPStatus != 403 {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestHost(t *testing.T) {
	c := NewClient("https://blog.example.com/", "", "", 0)
	if got := c.Host(); got != "blog.example.com" {
		t.Fatalf("Host = %q", got)
	}
}
