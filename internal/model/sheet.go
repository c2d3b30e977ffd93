package model

import (
	"encoding/json"
	"strconv"
)

// CellKind describes which value a Cell carries.
type CellKind int

// Cell kinds.
const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single spreadsheet value: text, a number, or nothing.
type Cell struct {
	Text   string
	Number float64
	Kind   CellKind
}

// TextCell builds a text cell.
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell builds a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell has no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String renders the cell the way a label column is read.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON string, number, or null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		return json.Marshal(c.Number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string, number, or null into a cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*c = TextCell(val)
	case float64:
		*c = NumberCell(val)
	default:
		*c = Cell{}
	}
	return nil
}

// Row is an ordered sequence of cells aligned by column index.
type Row []Cell

// At returns the cell at idx, or an empty cell when idx is out of range.
func (r Row) At(idx int) Cell {
	if idx < 0 || idx >= len(r) {
		return Cell{}
	}
	return r[idx]
}

// Sheet is the ordered list of rows from a worksheet, top to bottom.
type Sheet []Row

// Result maps rule keys to extracted totals.
type Result map[string]float64

// AllZero reports whether every value in the result is exactly zero.
// An empty result is all zero.
func (r Result) AllZero() bool {
	for _, v := range r {
		if v != 0 {
			return false
		}
	}
	return true
}
