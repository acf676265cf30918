package discover

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ResourceList is one parsed sitemap document: either an index of nested
// sub-lists or a flat set of leaf entry URLs.
type ResourceList struct {
	Nested  []string
	Entries []string
}

// ParseResourceList parses a sitemap or sitemap-index document.
func ParseResourceList(body string) (*ResourceList, error) {
	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse resource list: %w", err)
	}

	list := &ResourceList{}

	for _, node := range xmlquery.Find(doc, "//sitemapindex/sitemap/loc") {
		if loc := strings.TrimSpace(node.InnerText()); loc != "" {
			list.Nested = append(list.Nested, loc)
		}
	}
	if len(list.Nested) > 0 {
		return list, nil
	}

	for _, node := range xmlquery.Find(doc, "//urlset/url/loc") {
		if loc := strings.TrimSpace(node.InnerText()); loc != "" {
			list.Entries = append(list.Entries, loc)
		}
	}
	if len(list.Entries) == 0 {
		return nil, fmt.Errorf("document is not a recognizable resource list")
	}
	return list, nil
}
