// Package edits models the edit events delivered by the spreadsheet host.
package edits

import (
	"errors"
	"fmt"
	"strings"

	"sheet_notify/internal/sheets"
)

// ErrInvalidEvent marks events rejected at the boundary.
var ErrInvalidEvent = errors.New("invalid edit event")

// RawEvent is the wire shape posted by the host platform's edit trigger.
type RawEvent struct {
	SpreadsheetID string          `json:"spreadsheetId"`
	Range         *RawRange       `json:"range"`
	Value         interface{}     `json:"value"`
	Values        [][]interface{} `json:"values"`
	OldValue      interface{}     `json:"oldValue"`
}

type RawRange struct {
	SheetName string `json:"sheetName"`
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	NumRows   int    `json:"numRows"`
	NumCols   int    `json:"numCols"`
}

// Range is the validated affected block. Row and Column are 1-based.
type Range struct {
	SheetName string
	Row       int
	Column    int
	NumRows   int
	NumCols   int
}

// EditEvent is a validated, immutable description of one edit.
type EditEvent struct {
	SpreadsheetID string
	Range         Range
	Value         interface{}
	Values        [][]interface{}
	OldValue      interface{}
}

// Validate turns a raw payload into an EditEvent. Errors wrap ErrInvalidEvent.
func (r RawEvent) Validate() (EditEvent, error) {
	if r.Range == nil {
		return EditEvent{}, fmt.Errorf("%w: missing range", ErrInvalidEvent)
	}
	rng := Range{
		SheetName: r.Range.SheetName,
		Row:       r.Range.Row,
		Column:    r.Range.Column,
		NumRows:   r.Range.NumRows,
		NumCols:   r.Range.NumCols,
	}
	if strings.TrimSpace(rng.SheetName) == "" {
		return EditEvent{}, fmt.Errorf("%w: missing sheet name", ErrInvalidEvent)
	}
	if rng.Row <= 0 || rng.Column <= 0 {
		return EditEvent{}, fmt.Errorf("%w: row and column must be positive (row=%d column=%d)", ErrInvalidEvent, rng.Row, rng.Column)
	}
	if rng.NumRows < 0 || rng.NumCols < 0 {
		return EditEvent{}, fmt.Errorf("%w: negative range size", ErrInvalidEvent)
	}
	if rng.NumRows == 0 {
		rng.NumRows = 1
	}
	if rng.NumCols == 0 {
		rng.NumCols = 1
	}

	value := r.Value
	if value == nil && len(r.Values) > 0 && len(r.Values[0]) > 0 {
		value = r.Values[0][0]
	}

	return EditEvent{
		SpreadsheetID: strings.TrimSpace(r.SpreadsheetID),
		Range:         rng,
		Value:         value,
		Values:        r.Values,
		OldValue:      r.OldValue,
	}, nil
}

// IsMassInsertion reports whether the edit spans more than one row or column.
func (e EditEvent) IsMassInsertion() bool {
	return e.Range.NumRows > 1 || e.Range.NumCols > 1
}

// CoversColumn reports whether col lies inside the edited columns.
func (e EditEvent) CoversColumn(col int) bool {
	return col >= e.Range.Column && col < e.Range.Column+e.Range.NumCols
}

// Address is the A1 notation of the edited block, without the sheet name.
func (e EditEvent) Address() string {
	return sheets.BlockRef(e.Range.Row, e.Range.Column, e.Range.NumRows, e.Range.NumCols)
}
