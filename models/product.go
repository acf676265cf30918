package models

// Extraction strategy names, used as the OriginStrategy tag on candidates
// and as metric labels.
const (
	StrategyMarketLink  = "market_link"
	StrategyAnchorText  = "anchor_text"
	StrategyHeading     = "heading"
	StrategyListItem    = "list_item"
	StrategyBrandModel  = "brand_model"
	StrategyEnrichment  = "enrichment"
)

// ExtractedCandidate is an unconfirmed product mention surfaced by one
// extraction heuristic. Candidates are transient; only merged products are
// kept.
type ExtractedCandidate struct {
	ExternalID     string
	Name           string
	OriginStrategy string
	Confidence     float64
}

// MergedProduct is the deduplicated record produced by folding all
// candidates and oracle suggestions sharing a normalized key.
type MergedProduct struct {
	Key         string   `json:"key"`
	ExternalID  string   `json:"external_id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       string   `json:"price,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count,omitempty"`
	Prime       bool     `json:"prime,omitempty"`
	Confidence  float64  `json:"confidence"`
	Sources     []string `json:"sources"`
}

// ProductInfo is the product-data oracle's answer for one product.
type ProductInfo struct {
	ExternalID  string  `json:"external_id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Price       string  `json:"price"`
	ImageURL    string  `json:"image_url"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Prime       bool    `json:"prime"`
}

// Suggestion is one product proposed by the enrichment oracle.
type Suggestion struct {
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ProductGroup references a handful of resolved products for display as a
// single comparison unit.
type ProductGroup struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}
