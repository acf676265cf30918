package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitescan/product-audit/models"
)

func sampleResult() *models.AuditResult {
	start := time.Now().Add(-2 * time.Second)
	return &models.AuditResult{
		Pages: []*models.PageResource{
			{ID: "p1", URL: "https://example.com/best-headphones", Status: models.StatusAnalyzed},
		},
		Products: []*models.MergedProduct{
			{Key: "B000TEST01", ExternalID: "B000TEST01", Name: "Acme Widget"},
		},
		StartTime:  start,
		EndTime:    time.Now(),
		PageCount:  1,
		ErrorCount: 0,
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "products.json")

	if err := Write(path, Build("https://example.com", sampleResult())); err != nil {
		t.Fatalf("Write: %v", err)
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(blob, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Site != "https://example.com" || decoded.PageCount != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if len(decoded.Products) != 1 || decoded.Products[0].ExternalID != "B000TEST01" {
		t.Fatalf("products = %+v", decoded.Products)
	}
	if decoded.Elapsed == "" {
		t.Fatalf("elapsed missing")
	}
}

func TestWriteRejectsEmptyFilename(t *testing.T) {
	if err := Write("", Build("https://example.com", sampleResult())); err == nil {
		t.Fatalf("expected error for empty filename")
	}
}
