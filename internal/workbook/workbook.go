// Package workbook turns spreadsheet bytes into the rows of their first sheet.
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Format is a detected document format.
type Format int

// Supported formats.
const (
	FormatCSV Format = iota
	FormatXLSX
	FormatXLS
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	default:
		return "csv"
	}
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ErrEmptyDocument is returned for zero-length input.
var ErrEmptyDocument = errors.New("document is empty")

// Detect sniffs the format from the leading bytes. Anything that is not a
// zip container or an OLE compound file is treated as CSV.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	default:
		return FormatCSV
	}
}

// Parser reads the first sheet of a workbook.
type Parser struct {
	// TempDir holds the scratch copy legacy .xls files need. Empty means os.TempDir.
	TempDir string
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the rows of the first sheet. Blank cells are empty and cells
// holding numbers are numeric.
func (p *Parser) Parse(data []byte) (model.Sheet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	format := Detect(data)
	slog.Debug("Parsing workbook", "format", format.String(), "bytes", len(data))

	switch format {
	case FormatXLSX:
		return p.parseXLSX(data)
	case FormatXLS:
		return p.parseXLS(data)
	default:
		return p.parseCSV(data)
	}
}

func (p *Parser) parseXLSX(data []byte) (model.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close workbook", "error", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Sheet{}, nil
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
	}

	sheet := make(model.Sheet, 0, len(rows))
	for r, values := range rows {
		row := make(model.Row, len(values))
		for c, raw := range values {
			if raw == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("invalid cell coordinates: %w", err)
			}
			kind, err := f.GetCellType(name, ref)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", ref, err)
			}
			row[c] = xlsxCell(kind, raw)
		}
		sheet = append(sheet, row)
	}

	return sheet, nil
}

// xlsxCell converts a raw cell value. Cells without an explicit type are
// numbers in the file format; formula results carry their own type.
func xlsxCell(kind excelize.CellType, raw string) model.Cell {
	if kind == excelize.CellTypeUnset || kind == excelize.CellTypeNumber {
		if n, ok := parseNumber(raw); ok {
			return model.NumberCell(n)
		}
	}
	return model.TextCell(raw)
}

func (p *Parser) parseXLS(data []byte) (sheet model.Sheet, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheet, err = nil, fmt.Errorf("failed to parse xls: %v", r)
		}
	}()

	// xlsReader only opens files by name.
	tmp, err := os.CreateTemp(p.TempDir, "sheetsum-*.xls")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			slog.Warn("Failed to remove temp file", "path", tmp.Name(), "error", rmErr)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if book.GetNumberSheets() == 0 {
		return model.Sheet{}, nil
	}

	ws, err := book.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read first sheet: %w", err)
	}
	if ws == nil {
		return model.Sheet{}, nil
	}

	for _, xlsRow := range ws.GetRows() {
		cols := xlsRow.GetCols()
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[i] = textOrNumber(col.GetString())
		}
		sheet = append(sheet, trimRow(row))
	}

	return sheet, nil
}

func (p *Parser) parseCSV(data []byte) (model.Sheet, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(data)

	var sheet model.Sheet
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}

		row := make(model.Row, len(record))
		for i, field := range record {
			row[i] = textOrNumber(field)
		}
		sheet = append(sheet, trimRow(row))
	}

	return sheet, nil
}

// sniffDelimiter picks ';' when the header line uses it more than ','.
// European exports commonly use ';' because ',' is the decimal separator.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func textOrNumber(s string) model.Cell {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return model.Cell{}
	}
	if n, ok := parseNumber(trimmed); ok {
		return model.NumberCell(n)
	}
	return model.TextCell(s)
}

// parseNumber accepts finite decimal numbers only.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func trimRow(row model.Row) model.Row {
	end := len(row)
	for end > 0 && row[end-1].IsEmpty() {
		end--
	}
	return row[:end]
}
