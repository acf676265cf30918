package extract

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sitescan/product-audit/cache"
	"github.com/sitescan/product-audit/models"
)

// groupThreshold and groupSize control when a grouping record is emitted
// and how many products it references.
const (
	groupThreshold = 5
	groupSize      = 8
)

// Oracle is the product-data lookup consumed during resolution.
type Oracle interface {
	Lookup(ctx context.Context, query string) (models.ProductInfo, bool, error)
}

// Resolver enriches merged products against the product-data oracle, one
// sequential call per product with cache memoization.
type Resolver struct {
	oracle Oracle
	cache  *cache.Service
	limit  int
}

// NewResolver builds a product resolver. limit bounds oracle calls per
// invocation.
func NewResolver(oracle Oracle, cacheService *cache.Service, limit int) *Resolver {
	if limit <= 0 {
		limit = 10
	}
	return &Resolver{oracle: oracle, cache: cacheService, limit: limit}
}

// Resolve looks up to limit products up against the oracle, fills in
// image/price/rating data, drops products the oracle cannot resolve that
// also lack an extracted name, and attaches a description to each
// survivor. When enough products resolve, a grouping record referencing
// the first few is produced as well.
func (r *Resolver) Resolve(ctx context.Context, products []*models.MergedProduct) ([]*models.MergedProduct, []*models.ProductGroup) {
	bounded := products
	if len(bounded) > r.limit {
		bounded = bounded[:r.limit]
	}

	var resolved []*models.MergedProduct
	for _, product := range bounded {
		if err := ctx.Err(); err != nil {
			break
		}

		info, ok := r.lookup(ctx, product)
		if !ok && product.Name == "" {
			continue
		}
		if ok {
			foldInfo(product, info)
		}
		r.describe(product)
		resolved = append(resolved, product)
	}

	var groups []*models.ProductGroup
	if len(resolved) >= groupThreshold {
		groups = append(groups, buildGroup(resolved))
	}
	return resolved, groups
}

func (r *Resolver) lookup(ctx context.Context, product *models.MergedProduct) (models.ProductInfo, bool) {
	query := product.ExternalID
	if query == "" {
		query = product.Name
	}
	if query == "" {
		return models.ProductInfo{}, false
	}

	if r.cache != nil {
		if info, ok := r.cache.Product(query); ok {
			return info, true
		}
	}

	info, ok, err := r.oracle.Lookup(ctx, query)
	if err != nil {
		slog.Warn("product lookup failed", slog.String("query", query), slog.Any("error", err))
		return models.ProductInfo{}, false
	}
	if !ok {
		return models.ProductInfo{}, false
	}
	if r.cache != nil {
		r.cache.SetProduct(query, info)
	}
	return info, true
}

// foldInfo fills oracle data into the record without overwriting fields
// the extraction already populated.
func foldInfo(product *models.MergedProduct, info models.ProductInfo) {
	if product.ExternalID == "" {
		product.ExternalID = info.ExternalID
	}
	if product.Name == "" {
		product.Name = info.Title
	}
	if product.Brand == "" {
		product.Brand = info.Brand
	}
	if product.Price == "" {
		product.Price = info.Price
	}
	if product.ImageURL == "" {
		product.ImageURL = info.ImageURL
	}
	if product.Rating == 0 {
		product.Rating = info.Rating
	}
	if product.ReviewCount == 0 {
		product.ReviewCount = info.ReviewCount
	}
	if info.Prime {
		product.Prime = true
	}
}

func (r *Resolver) describe(product *models.MergedProduct) {
	if AcceptableDescription(product.Description, product) {
		return
	}
	product.Description = GenerateDescription(product)
}

func buildGroup(resolved []*models.MergedProduct) *models.ProductGroup {
	size := groupSize
	if len(resolved) < size {
		size = len(resolved)
	}
	ids := make([]string, 0, size)
	for _, product := range resolved[:size] {
		id := product.ExternalID
		if id == "" {
			id = product.Key
		}
		ids = append(ids, id)
	}
	return &models.ProductGroup{
		ID:         uuid.NewString(),
		Name:       "Top Picks",
		ProductIDs: ids,
	}
}
