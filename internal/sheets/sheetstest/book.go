// Package sheetstest provides an in-memory spreadsheet for tests.
package sheetstest

import (
	"context"
	"fmt"
	"sync"

	"sheet_notify/internal/sheets"
)

// Book is an in-memory stand-in for a spreadsheet. It implements
// sheets.RangeReader and sheets.RowAppender.
type Book struct {
	mu     sync.Mutex
	sheets map[string][][]interface{}
	reads  []string
	// ReadErr, when set, is returned by every ReadRange call.
	ReadErr error
}

func NewBook() *Book {
	return &Book{sheets: map[string][][]interface{}{}}
}

// AddSheet creates an empty sheet.
func (b *Book) AddSheet(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sheets[name]; !ok {
		b.sheets[name] = nil
	}
}

// SetRow writes values starting at column A of a 1-based row, creating the sheet if needed.
func (b *Book) SetRow(sheet string, row int, values ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	grid := b.sheets[sheet]
	for len(grid) < row {
		grid = append(grid, nil)
	}
	grid[row-1] = append([]interface{}(nil), values...)
	b.sheets[sheet] = grid
}

// Rows returns a copy of every row of a sheet.
func (b *Book) Rows(sheet string) [][]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]interface{}, len(b.sheets[sheet]))
	for i, r := range b.sheets[sheet] {
		out[i] = append([]interface{}(nil), r...)
	}
	return out
}

// Reads lists the A1 ranges read so far.
func (b *Book) Reads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.reads...)
}

func (b *Book) ReadRange(ctx context.Context, a1 string) ([][]interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads = append(b.reads, a1)
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}

	name, r, err := sheets.ParseA1(a1)
	if err != nil {
		return nil, err
	}
	grid, ok := b.sheets[name]
	if !ok {
		return nil, fmt.Errorf("failed to read %s: %w", a1, sheets.ErrSheetNotFound)
	}

	startRow, endRow := bounds(r.StartRow, r.EndRow, len(grid))
	var out [][]interface{}
	for i := startRow; i <= endRow; i++ {
		src := grid[i-1]
		startCol, endCol := bounds(r.StartCol, r.EndCol, len(src))
		var row []interface{}
		for j := startCol; j <= endCol; j++ {
			row = append(row, src[j-1])
		}
		out = append(out, trimRight(row))
	}
	// The API drops trailing empty rows.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (b *Book) AppendRows(ctx context.Context, a1 string, rows [][]interface{}) error {
	name, _, err := sheets.ParseA1(a1)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	grid, ok := b.sheets[name]
	if !ok {
		return fmt.Errorf("failed to append to %s: %w", a1, sheets.ErrSheetNotFound)
	}
	for _, r := range rows {
		grid = append(grid, append([]interface{}(nil), r...))
	}
	b.sheets[name] = grid
	return nil
}

// bounds clamps a 1-based [start, end] span to the available length; zero means unbounded.
func bounds(start, end, length int) (int, int) {
	if start == 0 {
		start = 1
	}
	if end == 0 || end > length {
		end = length
	}
	return start, end
}

func trimRight(row []interface{}) []interface{} {
	for len(row) > 0 && sheets.IsBlank(row[len(row)-1]) {
		row = row[:len(row)-1]
	}
	return row
}
