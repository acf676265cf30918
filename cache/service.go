package cache

import (
	"time"

	"github.com/sitescan/product-audit/models"
)

// Namespace names for the persisted blobs.
const (
	nsProducts = "products"
	nsAnalysis = "analysis"
	nsMetadata = "metadata"
)

// Options sizes the named cache instances.
type Options struct {
	ProductTTL   time.Duration
	ProductSize  int
	AnalysisTTL  time.Duration
	AnalysisSize int
}

// Service is the single façade over the named cache instances: external
// product lookups (long TTL, large), page-analysis results (short TTL,
// small) and a free-form metadata namespace.
type Service struct {
	products *Cache[models.ProductInfo]
	analysis *Cache[[]*models.MergedProduct]
	metadata *Cache[string]
}

// NewService constructs the cache instances over a shared store. A nil
// store yields a memory-only service.
func NewService(opts Options, store Store) *Service {
	if opts.ProductTTL <= 0 {
		opts.ProductTTL = 24 * time.Hour
	}
	if opts.AnalysisTTL <= 0 {
		opts.AnalysisTTL = time.Hour
	}
	if opts.ProductSize <= 0 {
		opts.ProductSize = 1000
	}
	if opts.AnalysisSize <= 0 {
		opts.AnalysisSize = 200
	}
	return &Service{
		products: New[models.ProductInfo](nsProducts, opts.ProductSize, opts.ProductTTL, store),
		analysis: New[[]*models.MergedProduct](nsAnalysis, opts.AnalysisSize, opts.AnalysisTTL, store),
		metadata: New[string](nsMetadata, opts.AnalysisSize, opts.AnalysisTTL, store),
	}
}

// Product returns a cached product lookup result.
func (s *Service) Product(key string) (models.ProductInfo, bool) {
	return s.products.Get(key)
}

// SetProduct caches a product lookup result.
func (s *Service) SetProduct(key string, info models.ProductInfo) {
	s.products.Set(key, info)
}

// Analysis returns a cached page-analysis result.
func (s *Service) Analysis(key string) ([]*models.MergedProduct, bool) {
	return s.analysis.Get(key)
}

// SetAnalysis caches a page-analysis result.
func (s *Service) SetAnalysis(key string, products []*models.MergedProduct) {
	s.analysis.Set(key, products)
}

// Metadata returns a cached metadata value.
func (s *Service) Metadata(key string) (string, bool) {
	return s.metadata.Get(key)
}

// SetMetadata caches a metadata value.
func (s *Service) SetMetadata(key, value string) {
	s.metadata.Set(key, value)
}

// Cleanup purges expired entries across all namespaces.
func (s *Service) Cleanup() {
	s.products.Cleanup(false)
	s.analysis.Cleanup(false)
	s.metadata.Cleanup(false)
}

// Clear empties all namespaces.
func (s *Service) Clear() {
	s.products.Clear()
	s.analysis.Clear()
	s.metadata.Clear()
}

// Stats reports the physical entry count per namespace.
func (s *Service) Stats() map[string]int {
	return map[string]int{
		nsProducts: s.products.Size(),
		nsAnalysis: s.analysis.Size(),
		nsMetadata: s.metadata.Size(),
	}
}
