package tabular_test

import (
	"testing"

	"github.com/dukerupert/sif/internal/tabular"
	"github.com/stretchr/testify/assert"
)

func Test_Parse_SimpleRows(t *testing.T) {
	rows := tabular.Parse("sku,cost\nA1,10.00\nA2,20.00")

	assert.Equal(t, [][]string{
		{"sku", "cost"},
		{"A1", "10.00"},
		{"A2", "20.00"},
	}, rows)
}

func Test_Parse_SkipsBlankLines(t *testing.T) {
	rows := tabular.Parse("sku,cost\r\n\r\nA1,10\n\n   \nA2,20\n")

	assert.Equal(t, [][]string{
		{"sku", "cost"},
		{"A1", "10"},
		{"A2", "20"},
	}, rows)
}

func Test_Parse_EscapedQuoteCell(t *testing.T) {
	rows := tabular.Parse(`a,"He said ""hi""",c`)

	assert.Equal(t, [][]string{{"a", `He said "hi"`, "c"}}, rows)
}

func Test_Parse_QuotedDelimiter(t *testing.T) {
	rows := tabular.Parse(`"Widget, large",5.00`)

	assert.Equal(t, [][]string{{"Widget, large", "5.00"}}, rows)
}

func Test_Parse_TrimsCells(t *testing.T) {
	rows := tabular.Parse("  A1 , 10.00 ,  x ")

	assert.Equal(t, [][]string{{"A1", "10.00", "x"}}, rows)
}

func Test_Parse_DelimiterFreeLine(t *testing.T) {
	// The final cell is pushed even when the line had zero delimiters.
	rows := tabular.Parse("just-one-cell")

	assert.Equal(t, [][]string{{"just-one-cell"}}, rows)
}

func Test_Parse_TrailingDelimiterYieldsEmptyCell(t *testing.T) {
	rows := tabular.Parse("A1,10,")

	assert.Equal(t, [][]string{{"A1", "10", ""}}, rows)
}

func Test_Parse_UnterminatedQuoteNeverFails(t *testing.T) {
	// Malformed input produces unexpected cells, never an error.
	rows := tabular.Parse(`A1,"unterminated,10`)

	assert.Len(t, rows, 1)
	assert.Equal(t, "A1", rows[0][0])
}
