package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukerupert/sif/internal/catalog"
	"github.com/dukerupert/sif/internal/domain"
	"github.com/dukerupert/sif/internal/margin"
	"github.com/dukerupert/sif/internal/telemetry"
)

// MatcherService resolves supplier records against the remote catalog and
// produces reconciled items plus a not-found list.
type MatcherService interface {
	Lookup(ctx context.Context, records []domain.SupplierRecord, params LookupParams) (*LookupResult, error)
}

// LookupParams carries the caller-supplied reconciliation inputs.
type LookupParams struct {
	// Threshold is the margin percent below which items are flagged medium.
	Threshold float64

	// LocationID scopes quantity resolution to one stock location when set.
	LocationID string
}

// LookupResult pairs the matched items with the SKUs that found no variant.
// NotFound is disjoint (case-insensitively) from the matched SKU set and
// reports each missing SKU in its original casing.
type LookupResult struct {
	Items    []domain.ReconciledItem `json:"items"`
	NotFound []string                `json:"notFound"`
}

type matcherService struct {
	gateway   catalog.Gateway
	batchSize int
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// NewMatcherService creates a matcher that looks SKUs up in batches of
// batchSize per gateway call. metrics may be nil.
func NewMatcherService(gateway catalog.Gateway, batchSize int, metrics *telemetry.Metrics, logger *slog.Logger) MatcherService {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &matcherService{
		gateway:   gateway,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    logger,
	}
}

// Lookup partitions the supplier SKUs into lookup batches, queries the
// gateway per batch, and matches returned variants case-insensitively.
// A gateway failure fails the whole lookup; results from earlier batches
// are discarded rather than surfaced as a partial set.
func (s *matcherService) Lookup(ctx context.Context, records []domain.SupplierRecord, params LookupParams) (*LookupResult, error) {
	if len(records) == 0 {
		return &LookupResult{}, nil
	}

	recordBySKU := make(map[string]domain.SupplierRecord, len(records))
	skus := make([]string, 0, len(records))
	for _, rec := range records {
		key := strings.ToLower(rec.SKU)
		if _, dup := recordBySKU[key]; !dup {
			skus = append(skus, rec.SKU)
		}
		recordBySKU[key] = rec
	}

	result := &LookupResult{}
	found := make(map[string]bool, len(skus))

	for start := 0; start < len(skus); start += s.batchSize {
		end := min(start+s.batchSize, len(skus))
		query := catalog.BuildSKUQuery(skus[start:end])

		lookup, err := s.gateway.LookupProductsBySKU(ctx, query)
		if err != nil {
			if s.metrics != nil {
				s.metrics.LookupFailures.Inc()
			}
			return nil, domain.WrapError(err, domain.EUNAVAILABLE, "matcher.lookup", "Catalog lookup failed")
		}
		if s.metrics != nil {
			s.metrics.LookupBatches.Inc()
		}

		// A parent product comes back once per batch that named any of its
		// variants, so a variant already matched in an earlier batch must be
		// skipped: each supplier record yields at most one item.
		for _, product := range lookup.Products {
			for _, variant := range product.Variants {
				key := strings.ToLower(variant.SKU)
				rec, ok := recordBySKU[key]
				if !ok || found[key] {
					continue
				}
				result.Items = append(result.Items, buildItem(product, variant, rec, params))
				found[key] = true
			}
		}
	}

	for _, sku := range skus {
		if !found[strings.ToLower(sku)] {
			result.NotFound = append(result.NotFound, sku)
		}
	}

	if s.metrics != nil {
		s.metrics.SKUsMatched.Add(float64(len(skus) - len(result.NotFound)))
		s.metrics.SKUsNotFound.Add(float64(len(result.NotFound)))
	}

	s.logger.Info("catalog lookup complete",
		slog.Int("records", len(records)),
		slog.Int("matched", len(result.Items)),
		slog.Int("not_found", len(result.NotFound)))

	return result, nil
}

// buildItem derives one reconciled item from a matched pair.
func buildItem(product catalog.Product, variant catalog.Variant, rec domain.SupplierRecord, params LookupParams) domain.ReconciledItem {
	currentCost := 0.0
	if variant.UnitCost != nil {
		currentCost = *variant.UnitCost
	}

	// Prefer the location-scoped available quantity when a location filter
	// is in play and the variant exposes it; otherwise the aggregate.
	currentQuantity := variant.Available
	if params.LocationID != "" {
		if qty, ok := variant.LocationAvailable[params.LocationID]; ok {
			currentQuantity = qty
		}
	}

	// No supplier stock level means no quantity change requested.
	newQuantity := currentQuantity
	if rec.StockOnHand != nil {
		newQuantity = *rec.StockOnHand
	}

	marginPercent := margin.Percent(variant.Price, rec.Cost)

	return domain.ReconciledItem{
		ParentID:        product.ID,
		VariantID:       variant.ID,
		InventoryItemID: variant.InventoryItemID,
		SKU:             variant.SKU,
		DisplayName:     product.Title,
		ImageURL:        product.ImageURL,
		CurrentCost:     currentCost,
		CurrentPrice:    variant.Price,
		CurrentQuantity: currentQuantity,
		NewCost:         rec.Cost,
		NewQuantity:     newQuantity,
		MarginPercent:   marginPercent,
		Status:          margin.Status(marginPercent, params.Threshold),
		IncludeInUpdate: true,
		Price:           variant.Price,
	}
}
