// Package catalog abstracts the remote commerce platform's product,
// location, and inventory API behind a small gateway interface.
// Implementations can target Shopify, a mock, or any platform with
// equivalent operations.
package catalog

import (
	"context"
	"strings"
)

// Gateway is the operation set the reconciliation core consumes.
// All operations are request/response. A transport-level error (network,
// timeout, non-2xx status) is returned as a Go error; an application-level
// rejection comes back as FieldErrors on an otherwise successful result.
type Gateway interface {
	// LookupProductsBySKU fetches products whose variants match a
	// disjunctive SKU filter built with BuildSKUQuery. The gateway caps
	// results per call (reference cap: 100 products).
	LookupProductsBySKU(ctx context.Context, query string) (*ProductLookupResult, error)

	// LookupLocations lists the store's stock locations.
	LookupLocations(ctx context.Context) ([]Location, error)

	// AdjustInventory applies signed quantity deltas in one call. The call
	// is all-or-nothing: per-item error attribution is not available.
	AdjustInventory(ctx context.Context, changes []InventoryChange, reason, stateName string) (*InventoryAdjustResult, error)

	// BulkUpdateVariants writes price (and optionally cost) for up to 100
	// variants of a single parent product.
	BulkUpdateVariants(ctx context.Context, parentID string, variants []VariantWrite) (*VariantWriteResult, error)

	// UpdateInventoryItemCost writes the unit cost of a single inventory
	// item. Used as the standalone fallback when a combined write rejects
	// the cost field.
	UpdateInventoryItemCost(ctx context.Context, inventoryItemID string, cost float64) (*InventoryItemUpdateResult, error)
}

// FieldError is an application-level rejection carried on a successful
// response, distinct from a transport error.
type FieldError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Location is a stock location in the remote store.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"isActive"`
}

// Variant is a purchasable product variant as returned by lookup.
type Variant struct {
	ID              string
	SKU             string
	Price           float64
	InventoryItemID string

	// UnitCost is nil when the platform holds no cost for the item.
	UnitCost *float64

	// Available is the aggregate on-hand quantity across locations.
	Available int

	// LocationAvailable maps location ID to that location's "available"
	// quantity, when the lookup fetched per-location levels.
	LocationAvailable map[string]int
}

// Product is a parent product with its variants.
type Product struct {
	ID       string
	Title    string
	ImageURL string
	Variants []Variant
}

// InventoryChange is one signed delta for AdjustInventory.
type InventoryChange struct {
	InventoryItemID string
	LocationID      string
	Delta           int
}

// VariantWrite is one variant's new values for BulkUpdateVariants.
// A nil Cost omits the cost field entirely (the price-only retry path).
type VariantWrite struct {
	VariantID string
	Price     float64
	Cost      *float64
}

type ProductLookupResult struct {
	Products []Product
}

type InventoryAdjustResult struct {
	Applied     int
	FieldErrors []FieldError
}

type VariantWriteResult struct {
	UpdatedVariantIDs []string
	FieldErrors       []FieldError
}

type InventoryItemUpdateResult struct {
	FieldErrors []FieldError
}

// BuildSKUQuery builds the disjunctive SKU filter expression for
// LookupProductsBySKU, e.g. `sku:"A-1" OR sku:"B-2"`. Values are escaped
// for the gateway's query syntax: backslash and double quote are
// backslash-escaped.
func BuildSKUQuery(skus []string) string {
	terms := make([]string, 0, len(skus))
	for _, sku := range skus {
		terms = append(terms, `sku:"`+escapeQueryValue(sku)+`"`)
	}
	return strings.Join(terms, " OR ")
}

func escapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
