package tabular

import (
	"strconv"
	"strings"

	"github.com/dukerupert/sif/internal/domain"
)

// Extract applies a column mapping to parsed rows and produces supplier
// records. Row 0 is the header and is discarded. Returns an empty slice when
// there is no data row or the mapping is incomplete.
func Extract(rows [][]string, mapping ColumnMapping) []domain.SupplierRecord {
	if len(rows) < 2 || !mapping.Complete() {
		return nil
	}

	records := make([]domain.SupplierRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		sku := strings.TrimSpace(cellAt(row, mapping.Identifier, ""))
		if sku == "" {
			continue
		}

		rec := domain.SupplierRecord{
			SKU:  sku,
			Cost: CleanCost(cellAt(row, mapping.Cost, "0")),
		}

		if mapping.HasStockColumn() {
			stock := cleanQuantity(cellAt(row, mapping.Stock, "0"))
			rec.StockOnHand = &stock
		}

		records = append(records, rec)
	}

	return records
}

// CleanCost parses a raw cost cell. Currency symbols, spaces and thousands
// separators are stripped; anything that still fails to parse becomes 0.
func CleanCost(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	value, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return value
}

// cleanQuantity parses a raw stock cell as an integer, falling back to the
// truncated cleaned numeric value. Unparseable cells become 0.
func cleanQuantity(raw string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return n
	}
	return int(CleanCost(raw))
}

func cellAt(row []string, idx int, fallback string) string {
	if idx < 0 || idx >= len(row) {
		return fallback
	}
	return row[idx]
}
