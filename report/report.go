// Package report serializes audit results to disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sitescan/product-audit/models"
)

// Report is the on-disk shape of one audit run.
type Report struct {
	Site         string                  `json:"site"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Elapsed      string                  `json:"elapsed"`
	PageCount    int                     `json:"page_count"`
	ErrorCount   int                     `json:"error_count"`
	ErrorsByType map[string]int          `json:"errors_by_type,omitempty"`
	FailedURLs   []string                `json:"failed_urls,omitempty"`
	Pages        []*models.PageResource  `json:"pages"`
	Products     []*models.MergedProduct `json:"products"`
	Groups       []*models.ProductGroup  `json:"groups,omitempty"`
}

// Build assembles a report from an audit result.
func Build(site string, result *models.AuditResult) *Report {
	return &Report{
		Site:         site,
		GeneratedAt:  time.Now(),
		Elapsed:      result.EndTime.Sub(result.StartTime).Round(time.Millisecond).String(),
		PageCount:    result.PageCount,
		ErrorCount:   result.ErrorCount,
		ErrorsByType: result.ErrorsByType,
		FailedURLs:   result.FailedURLs,
		Pages:        result.Pages,
		Products:     result.Products,
		Groups:       result.Groups,
	}
}

// Write persists the report as indented JSON, creating parent directories
// as needed.
func Write(filename string, r *Report) error {
	if filename == "" {
		return fmt.Errorf("report filename cannot be empty")
	}
	if err := ensureDir(filename); err != nil {
		return err
	}

	blob, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filename, blob, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
