// Package extract turns noisy page markup into a ranked, deduplicated
// product candidate list. Several independent pattern heuristics scan the
// same markup; their output is merged by normalized key and optionally
// enriched with oracle suggestions.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitescan/product-audit/models"
)

// Heuristic confidence weights, descending in reliability. Hand-tuned in
// the original tooling; kept as configurable constants rather than
// re-derived.
var (
	ConfidenceMarketLink = 1.0
	ConfidenceAnchorText = 0.95
	ConfidenceHeading    = 0.85
	ConfidenceBrandModel = 0.75
	ConfidenceListItem   = 0.7
)

// minNameLen rejects candidates too short to be product names.
const minNameLen = 4

// boilerplateDenylist rejects navigation, legal, social and cart phrases
// that every heuristic would otherwise surface.
var boilerplateDenylist = []string{
	"add to cart", "buy now", "shop now", "checkout", "view deal", "see price",
	"sign in", "log in", "sign up", "subscribe", "newsletter",
	"privacy policy", "terms of service", "cookie", "disclaimer", "affiliate",
	"facebook", "twitter", "instagram", "pinterest", "youtube", "share",
	"contact us", "about us", "read more", "learn more", "click here",
	"home", "menu", "search", "previous", "next", "my account", "wishlist",
	"table of contents", "skip to content", "leave a comment",
}

var (
	marketIDPattern   = regexp.MustCompile(`(?:/dp/|/gp/product/|/product/)([A-Z0-9]{10})`)
	marketHostPattern = regexp.MustCompile(`(?i)(?:amazon\.[a-z.]+|amzn\.to)`)
	headingCuePattern = regexp.MustCompile(`(?i)\b(best|top|review|rated|ranked)\b|#\d+|\bno\.\s*\d+`)
	listiclePrefix    = regexp.MustCompile(`^\s*(?:#?\d+\s*[.):\-–]\s*|no\.\s*\d+\s*[:\-–]?\s*)`)
	variantCuePattern = regexp.MustCompile(`(?i)\b(pro|max|plus|ultra|mini|lite|gen\s?\d+|mark\s?[ivx]+|series\s?\w+|v\d+|\d+\s?(?:gb|tb|inch|in|mm|oz|l|qt))\b`)
	properPhrase      = regexp.MustCompile(`\b([A-Z][A-Za-z0-9]+(?:[ -][A-Z0-9][A-Za-z0-9]+)+)\b`)
)

// knownBrands seeds the brand-plus-model heuristic. Configurable; the set
// mirrors the original tooling's table.
var knownBrands = []string{
	"Sony", "Samsung", "Apple", "Anker", "Logitech", "Bose", "Dyson",
	"Canon", "Nikon", "DeWalt", "Makita", "Bosch", "KitchenAid", "Ninja",
	"Instant Pot", "Cuisinart", "Garmin", "Fitbit", "JBL", "Asus", "Lenovo",
	"Dell", "Razer", "Corsair", "Philips", "Panasonic", "LG", "Shark",
}

var brandModelPattern = regexp.MustCompile(
	`\b(` + strings.Join(knownBrands, "|") + `)\s+([A-Z0-9][A-Za-z0-9-]*(?:\s+[A-Z0-9][A-Za-z0-9-]*){0,2})`)

// Extractor scans markup for product candidates.
type Extractor struct{}

// NewExtractor builds an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs every heuristic over the markup and returns the combined
// candidate set ordered by descending confidence. Extraction is
// deterministic: the same markup always yields the same ordered set.
func (e *Extractor) Extract(markup string) []models.ExtractedCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var candidates []models.ExtractedCandidate
	candidates = append(candidates, extractMarketLinks(doc)...)
	candidates = append(candidates, extractAnchorTexts(doc)...)
	candidates = append(candidates, extractHeadings(doc)...)
	candidates = append(candidates, extractListItems(doc)...)
	candidates = append(candidates, extractBrandModels(doc)...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// acceptName applies the shared denylist and length gate.
func acceptName(name string) bool {
	if len(name) < minNameLen {
		return false
	}
	lower := strings.ToLower(name)
	for _, phrase := range boilerplateDenylist {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// dedup drops candidates whose normalized text already appeared within the
// same heuristic.
type dedup map[string]bool

func (d dedup) seen(c models.ExtractedCandidate) bool {
	key := c.ExternalID + "|" + NormalizeName(c.Name)
	if d[key] {
		return true
	}
	d[key] = true
	return false
}

// extractMarketLinks surfaces explicit marketplace identifiers embedded in
// href attributes or data markers.
func extractMarketLinks(doc *goquery.Document) []models.ExtractedCandidate {
	var out []models.ExtractedCandidate
	seen := dedup{}

	emit := func(id, name string) {
		if name != "" && !acceptName(name) {
			name = ""
		}
		c := models.ExtractedCandidate{
			ExternalID:     id,
			Name:           CleanText(name),
			OriginStrategy: models.StrategyMarketLink,
			Confidence:     ConfidenceMarketLink,
		}
		if !seen.seen(c) {
			out = append(out, c)
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if m := marketIDPattern.FindStringSubmatch(href); m != nil {
			emit(m[1], s.Text())
		}
	})
	doc.Find("[data-asin]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("data-asin"); ok && len(id) == 10 {
			emit(strings.ToUpper(id), s.Text())
		}
	})
	return out
}

// extractAnchorTexts surfaces the anchor text of links pointing at the
// marketplace, with or without an embedded identifier.
func extractAnchorTexts(doc *goquery.Document) []models.ExtractedCandidate {
	var out []models.ExtractedCandidate
	seen := dedup{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !marketHostPattern.MatchString(href) {
			return
		}
		text := CleanText(s.Text())
		if !acceptName(text) {
			return
		}
		c := models.ExtractedCandidate{
			Name:           text,
			OriginStrategy: models.StrategyAnchorText,
			Confidence:     ConfidenceAnchorText,
		}
		if !seen.seen(c) {
			out = append(out, c)
		}
	})
	return out
}

// extractHeadings surfaces heading text carrying superlative or review
// cues, with listicle prefixes stripped.
func extractHeadings(doc *goquery.Document) []models.ExtractedCandidate {
	var out []models.ExtractedCandidate
	seen := dedup{}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if !headingCuePattern.MatchString(text) {
			return
		}
		name := CleanText(listiclePrefix.ReplaceAllString(text, ""))
		if !acceptName(name) {
			return
		}
		c := models.ExtractedCandidate{
			Name:           name,
			OriginStrategy: models.StrategyHeading,
			Confidence:     ConfidenceHeading,
		}
		if !seen.seen(c) {
			out = append(out, c)
		}
	})
	return out
}

// extractListItems surfaces list entries that pair a capitalized phrase
// with a product-variant cue.
func extractListItems(doc *goquery.Document) []models.ExtractedCandidate {
	var out []models.ExtractedCandidate
	seen := dedup{}

	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if !variantCuePattern.MatchString(text) {
			return
		}
		phrase := longestProperPhrase(text)
		if phrase == "" || !acceptName(phrase) {
			return
		}
		c := models.ExtractedCandidate{
			Name:           phrase,
			OriginStrategy: models.StrategyListItem,
			Confidence:     ConfidenceListItem,
		}
		if !seen.seen(c) {
			out = append(out, c)
		}
	})
	return out
}

// extractBrandModels surfaces known brand names followed by model-like
// token sequences anywhere in the page text.
func extractBrandModels(doc *goquery.Document) []models.ExtractedCandidate {
	var out []models.ExtractedCandidate
	seen := dedup{}

	text := CleanText(doc.Text())
	for _, m := range brandModelPattern.FindAllStringSubmatch(text, -1) {
		name := CleanText(m[1] + " " + m[2])
		if !acceptName(name) {
			continue
		}
		c := models.ExtractedCandidate{
			Name:           name,
			OriginStrategy: models.StrategyBrandModel,
			Confidence:     ConfidenceBrandModel,
		}
		if !seen.seen(c) {
			out = append(out, c)
		}
	}
	return out
}

func longestProperPhrase(text string) string {
	longest := ""
	for _, m := range properPhrase.FindAllString(text, -1) {
		if len(m) > len(longest) {
			longest = m
		}
	}
	return longest
}
