package catalog

import (
	"context"
	"fmt"
	"strings"
)

// MockGateway is a mock catalog gateway for testing. The default behavior
// serves lookups from the Products slice by matching the SKU filter and
// accepts every write.
type MockGateway struct {
	// Products backs default lookup behavior.
	Products []Product

	// Locations backs default location lookup behavior.
	Locations []Location

	// Func overrides let tests customize individual operations.
	LookupProductsBySKUFunc     func(ctx context.Context, query string) (*ProductLookupResult, error)
	LookupLocationsFunc         func(ctx context.Context) ([]Location, error)
	AdjustInventoryFunc         func(ctx context.Context, changes []InventoryChange, reason, stateName string) (*InventoryAdjustResult, error)
	BulkUpdateVariantsFunc      func(ctx context.Context, parentID string, variants []VariantWrite) (*VariantWriteResult, error)
	UpdateInventoryItemCostFunc func(ctx context.Context, inventoryItemID string, cost float64) (*InventoryItemUpdateResult, error)

	// CallLog tracks method calls for test assertions.
	CallLog []string

	// Recorded write arguments for assertions.
	AdjustedChanges [][]InventoryChange
	VariantWrites   []RecordedVariantWrite
	CostWrites      []RecordedCostWrite
}

// RecordedVariantWrite captures one BulkUpdateVariants call.
type RecordedVariantWrite struct {
	ParentID string
	Variants []VariantWrite
}

// RecordedCostWrite captures one UpdateInventoryItemCost call.
type RecordedCostWrite struct {
	InventoryItemID string
	Cost            float64
}

// NewMockGateway creates a mock gateway with no products.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) LookupProductsBySKU(ctx context.Context, query string) (*ProductLookupResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("LookupProductsBySKU(%s)", query))

	if m.LookupProductsBySKUFunc != nil {
		return m.LookupProductsBySKUFunc(ctx, query)
	}

	// Default: return every stored product with a variant whose SKU appears
	// in the filter expression.
	result := &ProductLookupResult{}
	lowered := strings.ToLower(query)
	for _, p := range m.Products {
		for _, v := range p.Variants {
			if v.SKU != "" && strings.Contains(lowered, strings.ToLower(`"`+escapeQueryValue(v.SKU)+`"`)) {
				result.Products = append(result.Products, p)
				break
			}
		}
	}
	return result, nil
}

func (m *MockGateway) LookupLocations(ctx context.Context) ([]Location, error) {
	m.CallLog = append(m.CallLog, "LookupLocations()")

	if m.LookupLocationsFunc != nil {
		return m.LookupLocationsFunc(ctx)
	}
	return m.Locations, nil
}

func (m *MockGateway) AdjustInventory(ctx context.Context, changes []InventoryChange, reason, stateName string) (*InventoryAdjustResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("AdjustInventory(%d, %s, %s)", len(changes), reason, stateName))
	m.AdjustedChanges = append(m.AdjustedChanges, changes)

	if m.AdjustInventoryFunc != nil {
		return m.AdjustInventoryFunc(ctx, changes, reason, stateName)
	}
	return &InventoryAdjustResult{Applied: len(changes)}, nil
}

func (m *MockGateway) BulkUpdateVariants(ctx context.Context, parentID string, variants []VariantWrite) (*VariantWriteResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("BulkUpdateVariants(%s, %d)", parentID, len(variants)))
	m.VariantWrites = append(m.VariantWrites, RecordedVariantWrite{ParentID: parentID, Variants: variants})

	if m.BulkUpdateVariantsFunc != nil {
		return m.BulkUpdateVariantsFunc(ctx, parentID, variants)
	}

	result := &VariantWriteResult{}
	for _, v := range variants {
		result.UpdatedVariantIDs = append(result.UpdatedVariantIDs, v.VariantID)
	}
	return result, nil
}

func (m *MockGateway) UpdateInventoryItemCost(ctx context.Context, inventoryItemID string, cost float64) (*InventoryItemUpdateResult, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("UpdateInventoryItemCost(%s, %.2f)", inventoryItemID, cost))
	m.CostWrites = append(m.CostWrites, RecordedCostWrite{InventoryItemID: inventoryItemID, Cost: cost})

	if m.UpdateInventoryItemCostFunc != nil {
		return m.UpdateInventoryItemCostFunc(ctx, inventoryItemID, cost)
	}
	return &InventoryItemUpdateResult{}, nil
}
