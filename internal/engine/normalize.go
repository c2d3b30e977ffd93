package engine

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/sheetsum/internal/model"
)

// leadingFloat matches the longest numeric prefix of a cleaned amount.
// Anything after it (a second decimal point, trailing text) is ignored.
var leadingFloat = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// Normalize converts a cell into a number and never fails.
//
// Numbers pass through unchanged and empty cells are 0. Text has currency
// glyphs and whitespace removed, its first comma turned into a decimal point,
// and is then read up to the first character that cannot continue a number.
// "1.234,56" therefore becomes 1.234, not 1234.56.
func Normalize(c model.Cell) float64 {
	switch c.Kind {
	case model.CellNumber:
		return c.Number
	case model.CellText:
		return NormalizeString(c.Text)
	default:
		return 0
	}
}

// NormalizeString applies the text rules of Normalize to s.
func NormalizeString(s string) float64 {
	if s == "" {
		return 0
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '€' || r == '$' || r == '£':
			return -1
		case unicode.IsSpace(r) || r == '\uFEFF':
			return -1
		}
		return r
	}, s)
	cleaned = strings.Replace(cleaned, ",", ".", 1)

	prefix := leadingFloat.FindString(cleaned)
	if prefix == "" {
		return 0
	}

	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil || f == 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
