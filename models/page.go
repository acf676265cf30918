// Package models defines data structures shared across the audit pipeline.
package models

import "time"

// Page status values. A page starts in StatusAnalyzing and is reclassified
// once its content has been resolved.
const (
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
	StatusFailed    = "failed"
)

// Priority classification values.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Monetization classification values.
const (
	MonetizationUnknown   = "unknown"
	MonetizationMonetized = "monetized"
	MonetizationNone      = "none"
)

// PageResource represents one discovered page of the audited site.
type PageResource struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	Status       string    `json:"status"`
	Body         string    `json:"-"`
	Priority     string    `json:"priority"`
	Monetization string    `json:"monetization"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// AuditResult holds the overall outcome of an audit run.
type AuditResult struct {
	Pages        []*PageResource
	Products     []*MergedProduct
	Groups       []*ProductGroup
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}
