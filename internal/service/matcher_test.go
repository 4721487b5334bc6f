package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dukerupert/sif/internal/catalog"
	"github.com/dukerupert/sif/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func oneVariantProduct(parentID, variantID, sku string, price float64, unitCost *float64, available int) catalog.Product {
	return catalog.Product{
		ID:    parentID,
		Title: "Product " + parentID,
		Variants: []catalog.Variant{
			{
				ID:              variantID,
				SKU:             sku,
				Price:           price,
				InventoryItemID: "inv-" + variantID,
				UnitCost:        unitCost,
				Available:       available,
			},
		},
	}
}

func Test_Matcher_EndToEndExample(t *testing.T) {
	// Catalog knows A1 (price 15, cost 8); A2 is absent.
	gw := catalog.NewMockGateway()
	gw.Products = []catalog.Product{
		oneVariantProduct("p1", "v1", "A1", 15, floatPtr(8), 3),
	}

	m := NewMatcherService(gw, 50, nil, nil)

	records := []domain.SupplierRecord{
		{SKU: "A1", Cost: 10},
		{SKU: "A2", Cost: 20},
	}
	result, err := m.Lookup(context.Background(), records, LookupParams{Threshold: 5})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, "A1", item.SKU)
	assert.InDelta(t, 50.0, item.MarginPercent, 1e-9, "(15/10*100)-100 = 50")
	assert.Equal(t, domain.MarginGood, item.Status)
	assert.Equal(t, 8.0, item.CurrentCost)
	assert.Equal(t, 10.0, item.NewCost)
	assert.Equal(t, 15.0, item.Price, "editable price starts at current price")
	assert.True(t, item.IncludeInUpdate)

	assert.Equal(t, []string{"A2"}, result.NotFound)
}

func Test_Matcher_CaseInsensitiveMatch(t *testing.T) {
	gw := catalog.NewMockGateway()
	gw.LookupProductsBySKUFunc = func(ctx context.Context, query string) (*catalog.ProductLookupResult, error) {
		return &catalog.ProductLookupResult{
			Products: []catalog.Product{oneVariantProduct("p1", "v1", "ABC-1", 10, floatPtr(5), 0)},
		}, nil
	}

	m := NewMatcherService(gw, 50, nil, nil)

	result, err := m.Lookup(context.Background(), []domain.SupplierRecord{{SKU: "abc-1", Cost: 5}}, LookupParams{Threshold: 5})

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Empty(t, result.NotFound)
}

func Test_Matcher_NotFoundPartitionInvariant(t *testing.T) {
	gw := catalog.NewMockGateway()
	gw.Products = []catalog.Product{
		oneVariantProduct("p1", "v1", "A1", 10, floatPtr(5), 0),
	}

	m := NewMatcherService(gw, 50, nil, nil)

	records := []domain.SupplierRecord{
		{SKU: "A1", Cost: 5},
		{SKU: "B2", Cost: 5},
		{SKU: "c3", Cost: 5},
	}
	result, err := m.Lookup(context.Background(), records, LookupParams{})
	require.NoError(t, err)

	// notFound plus matched SKUs covers the input set with no overlap.
	covered := make(map[string]bool)
	for _, item := range result.Items {
		covered[strings.ToLower(item.SKU)] = true
	}
	for _, sku := range result.NotFound {
		assert.False(t, covered[strings.ToLower(sku)], "notFound must not overlap matched set")
		covered[strings.ToLower(sku)] = true
	}
	for _, rec := range records {
		assert.True(t, covered[strings.ToLower(rec.SKU)])
	}

	assert.Equal(t, []string{"B2", "c3"}, result.NotFound, "original casing preserved")
}

func Test_Matcher_PartitionsLookupBatches(t *testing.T) {
	gw := catalog.NewMockGateway()
	gw.LookupProductsBySKUFunc = func(ctx context.Context, query string) (*catalog.ProductLookupResult, error) {
		return &catalog.ProductLookupResult{}, nil
	}

	m := NewMatcherService(gw, 50, nil, nil)

	records := make([]domain.SupplierRecord, 0, 120)
	for i := 0; i < 120; i++ {
		records = append(records, domain.SupplierRecord{SKU: fmt.Sprintf("SKU-%03d", i), Cost: 1})
	}

	result, err := m.Lookup(context.Background(), records, LookupParams{})
	require.NoError(t, err)

	assert.Len(t, gw.CallLog, 3, "120 SKUs at batch size 50 means 3 lookup calls")
	assert.Len(t, result.NotFound, 120)
}

func Test_Matcher_ParentSpanningBatchesMatchedOnce(t *testing.T) {
	// Both SKUs live under one parent, so every single-SKU batch returns the
	// whole product with both variants. Each record must still yield exactly
	// one item.
	gw := catalog.NewMockGateway()
	gw.Products = []catalog.Product{
		{
			ID:    "p1",
			Title: "Product p1",
			Variants: []catalog.Variant{
				{ID: "v1", SKU: "A1", Price: 10, InventoryItemID: "inv-v1"},
				{ID: "v2", SKU: "B1", Price: 12, InventoryItemID: "inv-v2"},
			},
		},
	}

	m := NewMatcherService(gw, 1, nil, nil)

	records := []domain.SupplierRecord{
		{SKU: "A1", Cost: 5},
		{SKU: "B1", Cost: 6},
	}
	result, err := m.Lookup(context.Background(), records, LookupParams{})

	require.NoError(t, err)
	assert.Len(t, gw.CallLog, 2, "batch size 1 means one lookup per SKU")
	require.Len(t, result.Items, 2, "one item per supplier record, never per returned variant")
	assert.Equal(t, "A1", result.Items[0].SKU)
	assert.Equal(t, "B1", result.Items[1].SKU)
	assert.Empty(t, result.NotFound)
}

func Test_Matcher_LocationScopedQuantity(t *testing.T) {
	variant := catalog.Variant{
		ID:              "v1",
		SKU:             "A1",
		Price:           10,
		InventoryItemID: "inv-v1",
		UnitCost:        floatPtr(5),
		Available:       40,
		LocationAvailable: map[string]int{
			"loc-1": 7,
		},
	}
	gw := catalog.NewMockGateway()
	gw.LookupProductsBySKUFunc = func(ctx context.Context, query string) (*catalog.ProductLookupResult, error) {
		return &catalog.ProductLookupResult{
			Products: []catalog.Product{{ID: "p1", Title: "P", Variants: []catalog.Variant{variant}}},
		}, nil
	}

	m := NewMatcherService(gw, 50, nil, nil)
	records := []domain.SupplierRecord{{SKU: "A1", Cost: 5}}

	// Location filter present and exposed: use the scoped quantity.
	scoped, err := m.Lookup(context.Background(), records, LookupParams{LocationID: "loc-1"})
	require.NoError(t, err)
	require.Len(t, scoped.Items, 1)
	assert.Equal(t, 7, scoped.Items[0].CurrentQuantity)

	// Location filter present but not exposed: fall back to the aggregate.
	fallback, err := m.Lookup(context.Background(), records, LookupParams{LocationID: "loc-other"})
	require.NoError(t, err)
	assert.Equal(t, 40, fallback.Items[0].CurrentQuantity)

	// No location filter: aggregate.
	aggregate, err := m.Lookup(context.Background(), records, LookupParams{})
	require.NoError(t, err)
	assert.Equal(t, 40, aggregate.Items[0].CurrentQuantity)
}

func Test_Matcher_QuantityDefaults(t *testing.T) {
	gw := catalog.NewMockGateway()
	gw.Products = []catalog.Product{
		oneVariantProduct("p1", "v1", "A1", 10, nil, 12),
	}

	m := NewMatcherService(gw, 50, nil, nil)

	// No stock on hand: newQuantity defaults to current (no change requested).
	noStock, err := m.Lookup(context.Background(), []domain.SupplierRecord{{SKU: "A1", Cost: 5}}, LookupParams{})
	require.NoError(t, err)
	require.Len(t, noStock.Items, 1)
	assert.Equal(t, 12, noStock.Items[0].NewQuantity)
	assert.Equal(t, 0.0, noStock.Items[0].CurrentCost, "missing unit cost is treated as 0")

	// Supplier stock present: newQuantity takes it.
	withStock, err := m.Lookup(context.Background(), []domain.SupplierRecord{{SKU: "A1", Cost: 5, StockOnHand: intPtr(3)}}, LookupParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, withStock.Items[0].NewQuantity)
}

func Test_Matcher_GatewayErrorFailsLookup(t *testing.T) {
	gw := catalog.NewMockGateway()
	gw.LookupProductsBySKUFunc = func(ctx context.Context, query string) (*catalog.ProductLookupResult, error) {
		return nil, errors.New("boom")
	}

	m := NewMatcherService(gw, 50, nil, nil)

	_, err := m.Lookup(context.Background(), []domain.SupplierRecord{{SKU: "A1", Cost: 5}}, LookupParams{})

	require.Error(t, err)
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func Test_Matcher_EmptyInput(t *testing.T) {
	gw := catalog.NewMockGateway()
	m := NewMatcherService(gw, 50, nil, nil)

	result, err := m.Lookup(context.Background(), nil, LookupParams{})

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Empty(t, result.NotFound)
	assert.Empty(t, gw.CallLog, "no gateway call for empty input")
}
