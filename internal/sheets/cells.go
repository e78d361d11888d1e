package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// CellText renders a raw API value the way the sheet displays it.
func CellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// IsBlank reports whether a cell holds nothing but whitespace.
func IsBlank(v interface{}) bool {
	return strings.TrimSpace(CellText(v)) == ""
}

// CellAt returns the value at a 0-based index, or nil when the row is shorter.
// The API trims trailing empty cells, so short rows are normal.
func CellAt(row []interface{}, index int) interface{} {
	if index < 0 || index >= len(row) {
		return nil
	}
	return row[index]
}

// RowAt is CellAt for rows of a grid.
func RowAt(grid [][]interface{}, index int) []interface{} {
	if index < 0 || index >= len(grid) {
		return nil
	}
	return grid[index]
}
