package extract

import (
	"strings"
	"unicode"
)

// normalizedKeyLen is the fixed prefix length for name-derived merge keys.
const normalizedKeyLen = 40

// NormalizeName lowercases a name, strips everything but letters and
// digits, and truncates to a fixed prefix. Used both for merge keys and
// for within-heuristic dedup.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if len(normalized) > normalizedKeyLen {
		normalized = normalized[:normalizedKeyLen]
	}
	return normalized
}

// KeyFor computes the merge key for a candidate: the case-normalized
// external identifier when present, otherwise the normalized name. Empty
// when neither is usable.
func KeyFor(externalID, name string) string {
	if externalID != "" {
		return strings.ToUpper(strings.TrimSpace(externalID))
	}
	return NormalizeName(name)
}

// CleanText collapses whitespace runs in extracted text.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
