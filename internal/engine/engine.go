// Package engine extracts labelled totals from a parsed sheet.
package engine

import (
	"log/slog"

	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/Veraticus/sheetsum/internal/pattern"
)

// MaxOffset is the largest column shift tried when a scan finds nothing.
const MaxOffset = 2

// Extract runs the rule set against the sheet and returns the totals.
//
// The sheet is scanned at the configured columns first. When every total
// comes back as exactly zero the whole scan is repeated with every column
// shifted one, then two, to the right, and the first scan with any non-zero
// total wins. If none does the unshifted result is returned.
func Extract(sheet model.Sheet, rules model.RuleSet) model.Result {
	matcher := pattern.NewMatcher(rules)

	base := scan(sheet, matcher, 0)
	if !base.AllZero() {
		return base
	}

	for offset := 1; offset <= MaxOffset; offset++ {
		shifted := scan(sheet, matcher, offset)
		if !shifted.AllZero() {
			slog.Debug("Totals found with column offset", "offset", offset)
			return shifted
		}
	}

	return base
}

// Scan runs a single bottom-up pass with every column index shifted by offset.
func Scan(sheet model.Sheet, rules model.RuleSet, offset int) model.Result {
	return scan(sheet, pattern.NewMatcher(rules), offset)
}

// scan walks rows from last to first. The first match seen for a key (the
// bottommost row) claims it; earlier rows cannot overwrite it.
func scan(sheet model.Sheet, matcher *pattern.Matcher, offset int) model.Result {
	rules := matcher.Rules()

	result := make(model.Result, len(rules))
	for _, rule := range rules {
		result[rule.Key] = 0
	}

	resolved := make(map[string]bool, len(rules))
	for i := len(sheet) - 1; i >= 0; i-- {
		if len(resolved) == len(result) {
			break
		}

		row := sheet[i]
		for _, idx := range matcher.Match(row) {
			rule := rules[idx]
			if resolved[rule.Key] {
				continue
			}
			var cell model.Cell
			if rule.ColIndex >= 0 {
				cell = row.At(rule.ColIndex + offset)
			}
			result[rule.Key] = Normalize(cell)
			resolved[rule.Key] = true
		}
	}

	return result
}
