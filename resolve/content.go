package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors is the ordered list of content-region selectors tried
// against scraped markup. The longest matching region wins.
var contentSelectors = []string{
	".entry-content",
	".post-content",
	".article-content",
	".post-body",
	"article .content",
	"article",
	"main",
	"#content",
	".content",
}

var (
	shortlinkIDPattern = regexp.MustCompile(`[?&]p=(\d+)`)
	bodyClassIDPattern = regexp.MustCompile(`postid-(\d+)`)
)

// ExtractContent pulls the main content region and the page identifier out
// of raw markup. The identifier comes from the canonical short-link marker
// when present, then from the body-class marker; it may be empty. When no
// content selector matches, the whole document body is used.
func ExtractContent(markup string) (body, id string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", "", fmt.Errorf("parse markup: %w", err)
	}

	id = extractIdentifier(doc)

	longest := ""
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			region, err := s.Html()
			if err != nil {
				return
			}
			if len(region) > len(longest) {
				longest = region
			}
		})
	}
	if longest != "" {
		return longest, id, nil
	}

	whole, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(whole) == "" {
		return markup, id, nil
	}
	return whole, id, nil
}

func extractIdentifier(doc *goquery.Document) string {
	if href, ok := doc.Find(`link[rel="shortlink"]`).Attr("href"); ok {
		if m := shortlinkIDPattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	if class, ok := doc.Find("body").Attr("class"); ok {
		if m := bodyClassIDPattern.FindStringSubmatch(class); m != nil {
			return m[1]
		}
	}
	return ""
}
