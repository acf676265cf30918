package extract

import (
	"strings"

	"github.com/sitescan/product-audit/models"
)

// Merge folds an ordered candidate list into one record per normalized
// key. Candidates arrive in descending confidence order, so the first
// value seen for a field is the most reliable one; later contributions
// only fill gaps, never overwrite.
func Merge(candidates []models.ExtractedCandidate) []*models.MergedProduct {
	index := make(map[string]*models.MergedProduct)
	var order []string

	for _, c := range candidates {
		key := KeyFor(c.ExternalID, c.Name)
		if key == "" {
			continue
		}
		record, ok := index[key]
		if !ok {
			record = &models.MergedProduct{Key: key}
			index[key] = record
			order = append(order, key)
		}
		foldCandidate(record, c)
	}

	out := make([]*models.MergedProduct, 0, len(order))
	for _, key := range order {
		out = append(out, index[key])
	}
	return out
}

func foldCandidate(record *models.MergedProduct, c models.ExtractedCandidate) {
	if record.ExternalID == "" {
		record.ExternalID = strings.ToUpper(strings.TrimSpace(c.ExternalID))
	}
	if record.Name == "" {
		record.Name = c.Name
	}
	if c.Confidence > record.Confidence {
		record.Confidence = c.Confidence
	}
	addSource(record, c.OriginStrategy)
}

func addSource(record *models.MergedProduct, source string) {
	for _, existing := range record.Sources {
		if existing == source {
			return
		}
	}
	record.Sources = append(record.Sources, source)
}

// ApplySuggestions merges enrichment oracle suggestions into the product
// list. Suggestions below minConfidence are ignored. A suggestion first
// tries to complete an existing record whose identifier or partial name it
// textually relates to, then merges by normalized name key, and only then
// inserts as a new record. Field population is additive-only.
func ApplySuggestions(products []*models.MergedProduct, suggestions []models.Suggestion, minConfidence float64) []*models.MergedProduct {
	index := make(map[string]*models.MergedProduct, len(products))
	for _, p := range products {
		index[p.Key] = p
	}

	for _, suggestion := range suggestions {
		if suggestion.Confidence < minConfidence || suggestion.Name == "" {
			continue
		}

		if record := findRelated(products, suggestion.Name); record != nil {
			foldSuggestion(record, suggestion)
			continue
		}

		nameKey := NormalizeName(suggestion.Name)
		if nameKey == "" {
			continue
		}
		if record, ok := index[nameKey]; ok {
			foldSuggestion(record, suggestion)
			continue
		}

		record := &models.MergedProduct{Key: nameKey}
		foldSuggestion(record, suggestion)
		products = append(products, record)
		index[nameKey] = record
	}

	return products
}

// findRelated locates an identifier-keyed record the suggestion completes:
// one whose identifier appears in the suggested name, or whose partial name
// and the suggested name contain each other. Relatedness is simple
// substring containment over normalized text, which can mismatch for short
// or generic names; that is a known heuristic weakness inherited from the
// original tooling.
func findRelated(products []*models.MergedProduct, suggestedName string) *models.MergedProduct {
	normalized := NormalizeName(suggestedName)
	for _, record := range products {
		if record.ExternalID == "" {
			continue
		}
		if record.Name == "" {
			if strings.Contains(normalized, strings.ToLower(record.ExternalID)) {
				return record
			}
			continue
		}
		recordNorm := NormalizeName(record.Name)
		if recordNorm == "" {
			continue
		}
		if strings.Contains(normalized, recordNorm) || strings.Contains(recordNorm, normalized) {
			return record
		}
	}
	return nil
}

func foldSuggestion(record *models.MergedProduct, s models.Suggestion) {
	if record.Name == "" {
		record.Name = s.Name
	}
	if record.Brand == "" {
		record.Brand = s.Brand
	}
	if record.Category == "" {
		record.Category = s.Category
	}
	if record.Description == "" {
		record.Description = s.Description
	}
	if s.Confidence > record.Confidence {
		record.Confidence = s.Confidence
	}
	addSource(record, models.StrategyEnrichment)
}
