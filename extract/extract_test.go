package extract

import (
	"testing"

	"github.com/sitescan/product-audit/models"
)

const sampleMarkup = `<div class="entry-content">
<h2>2. Best Budget Pick: Anker Soundcore Life Q30</h2>
<p>Our favorite is the
<a href="https://www.amazon.com/dp/B0863TXGM3?tag=site-20">Sony WH-1000XM4 Wireless Headphones</a>,
followed by the <a href="https://amzn.to/3abcdef">Bose QuietComfort Ultra</a>.</p>
<ul>
<li>Apple AirPods Pro with up to six hours of battery</li>
</ul>
<p><a href="https://www.amazon.com/dp/B0863TXGM3">Sony WH-1000XM4 Wireless Headphones</a></p>
<a href="https://www.amazon.com/gp/cart">Add to Cart</a>
<a href="/privacy">Privacy Policy</a>
</div>`

func findCandidate(candidates []models.ExtractedCandidate, strategy, name string) *models.ExtractedCandidate {
	for i := range candidates {
		if candidates[i].OriginStrategy == strategy && candidates[i].Name == name {
			return &candidates[i]
		}
	}
	return nil
}

func TestExtractMarketLink(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)

	c := findCandidate(candidates, models.StrategyMarketLink, "Sony WH-1000XM4 Wireless Headphones")
	if c == nil {
		t.Fatalf("market link candidate missing, got %+v", candidates)
	}
	if c.ExternalID != "B0863TXGM3" {
		t.Fatalf("ExternalID = %q", c.ExternalID)
	}
	if c.Confidence != ConfidenceMarketLink {
		t.Fatalf("Confidence = %v, want %v", c.Confidence, ConfidenceMarketLink)
	}
}

func TestExtractAnchorText(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)

	c := findCandidate(candidates, models.StrategyAnchorText, "Bose QuietComfort Ultra")
	if c == nil {
		t.Fatalf("anchor text candidate missing")
	}
	if c.Confidence != ConfidenceAnchorText {
		t.Fatalf("Confidence = %v, want %v", c.Confidence, ConfidenceAnchorText)
	}
}

func TestExtractHeadingStripsListiclePrefix(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)

	c := findCandidate(candidates, models.StrategyHeading, "Best Budget Pick: Anker Soundcore Life Q30")
	if c == nil {
		t.Fatalf("heading candidate missing or prefix not stripped, got %+v", candidates)
	}
	if c.Confidence != ConfidenceHeading {
		t.Fatalf("Confidence = %v, want %v", c.Confidence, ConfidenceHeading)
	}
}

func TestExtractListItemVariantCue(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)

	c := findCandidate(candidates, models.StrategyListItem, "Apple AirPods Pro")
	if c == nil {
		t.Fatalf("list item candidate missing, got %+v", candidates)
	}
	if c.Confidence != ConfidenceListItem {
		t.Fatalf("Confidence = %v, want %v", c.Confidence, ConfidenceListItem)
	}
}

func TestExtractBrandModel(t *testing.T) {
	candidates := NewExtractor().Extract(`<p>We also tested the Dyson V15 Detect at home.</p>`)

	c := findCandidate(candidates, models.StrategyBrandModel, "Dyson V15 Detect")
	if c == nil {
		t.Fatalf("brand model candidate missing, got %+v", candidates)
	}
	if c.Confidence != ConfidenceBrandModel {
		t.Fatalf("Confidence = %v, want %v", c.Confidence, ConfidenceBrandModel)
	}
}

func TestExtractRejectsBoilerplate(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)
	for _, c := range candidates {
		if c.Name == "Add to Cart" || c.Name == "Privacy Policy" {
			t.Fatalf("boilerplate candidate surfaced: %+v", c)
		}
	}
}

func TestExtractDedupsWithinHeuristic(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)

	count := 0
	for _, c := range candidates {
		if c.OriginStrategy == models.StrategyAnchorText && c.Name == "Sony WH-1000XM4 Wireless Headphones" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate anchor appeared %d times, want 1", count)
	}
}

func TestExtractOrderedByDescendingConfidence(t *testing.T) {
	candidates := NewExtractor().Extract(sampleMarkup)
	if len(candidates) == 0 {
		t.Fatalf("no candidates extracted")
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Confidence > candidates[i-1].Confidence {
			t.Fatalf("candidates out of order at %d: %v after %v", i, candidates[i].Confidence, candidates[i-1].Confidence)
		}
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor()
	first := e.Extract(sampleMarkup)
	second := e.Extract(sampleMarkup)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("candidate %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Sony WH-1000XM4!", want: "sonywh1000xm4"},
		{in: "  Acme Widget  ", want: "acmewidget"},
		{in: "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMNOPQRSTUVWXYZ", want: "abcdefghijklmnopqrstuvwxyzabcdefghijklmn"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
