package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 reference. Rows and columns are 1-based; zero means unbounded.
type Range struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// ColumnLetter converts a 1-based column index into spreadsheet letters (1 -> A, 27 -> AA).
func ColumnLetter(col int) string {
	letter := ""
	for col > 0 {
		col--
		letter = string(rune('A'+col%26)) + letter
		col /= 26
	}
	return letter
}

// ColumnIndex is the inverse of ColumnLetter. It returns 0 for invalid input.
func ColumnIndex(letters string) int {
	col := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0
		}
		col = col*26 + int(r-'A'+1)
	}
	return col
}

// CellRef renders a single-cell A1 address such as "C5".
func CellRef(row, col int) string {
	return ColumnLetter(col) + strconv.Itoa(row)
}

// BlockRef renders the A1 address of a rectangular block.
func BlockRef(row, col, numRows, numCols int) string {
	if numRows <= 1 && numCols <= 1 {
		return CellRef(row, col)
	}
	return CellRef(row, col) + ":" + CellRef(row+max(numRows, 1)-1, col+max(numCols, 1)-1)
}

// A1Range prefixes ref with a quoted sheet name.
func A1Range(sheet, ref string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + ref
}

// ParseA1 splits "'Sheet'!A1:F3" style references. Supported forms are single cells,
// cell blocks, whole columns ("A:B") and whole rows ("5:5").
func ParseA1(a1 string) (string, Range, error) {
	sheet := ""
	ref := a1
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		sheet = a1[:i]
		ref = a1[i+1:]
		if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
	}

	start, end, found := strings.Cut(ref, ":")
	if !found {
		end = start
	}
	sr, sc, err := parseCell(start)
	if err != nil {
		return "", Range{}, fmt.Errorf("invalid range %q: %w", a1, err)
	}
	er, ec, err := parseCell(end)
	if err != nil {
		return "", Range{}, fmt.Errorf("invalid range %q: %w", a1, err)
	}
	return sheet, Range{StartRow: sr, StartCol: sc, EndRow: er, EndCol: ec}, nil
}

func parseCell(ref string) (int, int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, 0, fmt.Errorf("empty reference")
	}
	i := 0
	for i < len(ref) && (ref[i] >= 'A' && ref[i] <= 'Z' || ref[i] >= 'a' && ref[i] <= 'z') {
		i++
	}
	col := 0
	if i > 0 {
		col = ColumnIndex(ref[:i])
	}
	row := 0
	if i < len(ref) {
		n, err := strconv.Atoi(ref[i:])
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("bad row in %q", ref)
		}
		row = n
	}
	if row == 0 && col == 0 {
		return 0, 0, fmt.Errorf("bad reference %q", ref)
	}
	return row, col, nil
}
