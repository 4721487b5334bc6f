package tabular_test

import (
	"testing"

	"github.com/dukerupert/sif/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CleanCost(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{name: "plain number", raw: "12.50", expected: 12.50},
		{name: "currency symbol", raw: "$12.50", expected: 12.50},
		{name: "surrounding spaces", raw: " 7 ", expected: 7},
		{name: "negative", raw: "-3.25", expected: -3.25},
		{name: "letters only", raw: "abc", expected: 0},
		{name: "empty", raw: "", expected: 0},
		{name: "mixed junk", raw: "EUR 1,234.50", expected: 1234.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tabular.CleanCost(tt.raw))
		})
	}
}

func Test_Extract_RoundTripFromParse(t *testing.T) {
	rows := tabular.Parse("sku,cost,stock\nA1,10.00,5\nA2,20.50,0")

	mapping := tabular.NewColumnMapping()
	require.NoError(t, mapping.Set(tabular.FieldIdentifier, 0))
	require.NoError(t, mapping.Set(tabular.FieldCost, 1))
	require.NoError(t, mapping.Set(tabular.FieldStock, 2))

	records := tabular.Extract(rows, mapping)

	require.Len(t, records, 2)
	assert.Equal(t, "A1", records[0].SKU)
	assert.Equal(t, 10.00, records[0].Cost)
	require.NotNil(t, records[0].StockOnHand)
	assert.Equal(t, 5, *records[0].StockOnHand)
	assert.Equal(t, "A2", records[1].SKU)
	assert.Equal(t, 20.50, records[1].Cost)
	require.NotNil(t, records[1].StockOnHand)
	assert.Equal(t, 0, *records[1].StockOnHand)
}

func Test_Extract_NoStockColumnOmitsQuantity(t *testing.T) {
	rows := [][]string{{"sku", "cost"}, {"A1", "10.00"}}

	mapping := tabular.NewColumnMapping()
	require.NoError(t, mapping.Set(tabular.FieldIdentifier, 0))
	require.NoError(t, mapping.Set(tabular.FieldCost, 1))
	require.NoError(t, mapping.Set(tabular.FieldStock, tabular.NoStock))

	records := tabular.Extract(rows, mapping)

	require.Len(t, records, 1)
	assert.Nil(t, records[0].StockOnHand, "explicit none mapping must omit stock")
}

func Test_Extract_SkipsBlankIdentifier(t *testing.T) {
	rows := [][]string{{"sku", "cost"}, {"  ", "10.00"}, {"A2", "5.00"}}

	mapping := tabular.NewColumnMapping()
	require.NoError(t, mapping.Set(tabular.FieldIdentifier, 0))
	require.NoError(t, mapping.Set(tabular.FieldCost, 1))

	records := tabular.Extract(rows, mapping)

	require.Len(t, records, 1)
	assert.Equal(t, "A2", records[0].SKU)
}

func Test_Extract_ShortRowDefaultsCostToZero(t *testing.T) {
	rows := [][]string{{"sku", "cost"}, {"A1"}}

	mapping := tabular.NewColumnMapping()
	require.NoError(t, mapping.Set(tabular.FieldIdentifier, 0))
	require.NoError(t, mapping.Set(tabular.FieldCost, 1))

	records := tabular.Extract(rows, mapping)

	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].Cost)
}

func Test_Extract_IncompleteMappingReturnsEmpty(t *testing.T) {
	rows := [][]string{{"sku", "cost"}, {"A1", "10.00"}}

	mapping := tabular.NewColumnMapping()
	_ = mapping.Set(tabular.FieldIdentifier, 0)

	assert.Empty(t, tabular.Extract(rows, mapping))
}

func Test_Extract_HeaderOnlyReturnsEmpty(t *testing.T) {
	rows := [][]string{{"sku", "cost"}}

	mapping := tabular.NewColumnMapping()
	_ = mapping.Set(tabular.FieldIdentifier, 0)
	_ = mapping.Set(tabular.FieldCost, 1)

	assert.Empty(t, tabular.Extract(rows, mapping))
}

func Test_ColumnMapping_Gating(t *testing.T) {
	mapping := tabular.NewColumnMapping()
	assert.False(t, mapping.Complete())
	assert.False(t, mapping.StockResolved())

	require.NoError(t, mapping.Set(tabular.FieldIdentifier, 0))
	require.NoError(t, mapping.Set(tabular.FieldCost, 1))
	assert.True(t, mapping.Complete(), "stock may remain unset")
	assert.False(t, mapping.StockResolved())

	require.NoError(t, mapping.Set(tabular.FieldStock, tabular.NoStock))
	assert.True(t, mapping.StockResolved())
	assert.False(t, mapping.HasStockColumn())

	require.NoError(t, mapping.Set(tabular.FieldStock, 3))
	assert.True(t, mapping.HasStockColumn())
}

func Test_ColumnMapping_RejectsNoneForOtherFields(t *testing.T) {
	mapping := tabular.NewColumnMapping()

	assert.Error(t, mapping.Set(tabular.FieldIdentifier, tabular.NoStock))
	assert.Error(t, mapping.Set(tabular.Field("unknown"), 1))
}
