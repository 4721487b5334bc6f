package tabular

import "strings"

// Parse turns raw delimited text into rows of string cells.
//
// Lines are split on CR/LF and blank lines are skipped entirely. Within a
// line, a double quote toggles quote mode, a doubled quote inside an open
// quote is a literal quote, and a comma outside quotes ends a cell. Cells are
// trimmed. Parse never fails; a malformed line only yields unexpected cell
// contents. No header/data distinction is made here - callers treat row 0 as
// the header.
func Parse(text string) [][]string {
	lines := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, parseLine(line))
	}

	return rows
}

func parseLine(line string) []string {
	var cells []string
	var cell strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				// Escaped quote inside a quoted cell.
				cell.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(ch)
		}
	}

	// The final cell is pushed unconditionally, even on a delimiter-free line.
	cells = append(cells, strings.TrimSpace(cell.String()))

	return cells
}
