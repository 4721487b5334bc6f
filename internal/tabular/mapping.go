package tabular

import "github.com/dukerupert/sif/internal/domain"

// Sentinel column assignments.
const (
	// Unset means the user has not assigned the field to a column yet.
	Unset = -1

	// NoStock means the user explicitly declared that the file carries no
	// stock column. Only valid for the stock field.
	NoStock = -2
)

// Field names a semantic slot in a ColumnMapping.
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldCost       Field = "cost"
	FieldStock      Field = "stock"
)

// ColumnMapping holds the user's assignment of semantic fields to column
// indices. Reset to all-unset on workflow restart.
type ColumnMapping struct {
	Identifier int `json:"identifierColumn"`
	Cost       int `json:"costColumn"`
	Stock      int `json:"stockColumn"`
}

// NewColumnMapping returns a mapping with every field unset.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{Identifier: Unset, Cost: Unset, Stock: Unset}
}

// Set assigns a field to a column index, Unset, or (stock only) NoStock.
func (m *ColumnMapping) Set(field Field, value int) error {
	if value < 0 && value != Unset && !(field == FieldStock && value == NoStock) {
		return domain.Errorf(domain.EINVALID, "mapping.set", "invalid column assignment for %s: %d", field, value)
	}

	switch field {
	case FieldIdentifier:
		m.Identifier = value
	case FieldCost:
		m.Cost = value
	case FieldStock:
		m.Stock = value
	default:
		return domain.Errorf(domain.EINVALID, "mapping.set", "unknown field: %s", field)
	}

	return nil
}

// Complete reports whether extraction can run: identifier and cost are both
// assigned. Stock may remain unset, which is treated as "no stock update".
func (m ColumnMapping) Complete() bool {
	return m.Identifier >= 0 && m.Cost >= 0
}

// StockResolved reports whether the stock field has been decided either way
// (a real column or an explicit NoStock). Whether the workflow gates on this
// is a configuration choice, not a fixed contract.
func (m ColumnMapping) StockResolved() bool {
	return m.Stock >= 0 || m.Stock == NoStock
}

// HasStockColumn reports whether the mapping points at a real stock column.
func (m ColumnMapping) HasStockColumn() bool {
	return m.Stock >= 0
}
