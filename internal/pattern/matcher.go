// Package pattern matches extraction rules against the label columns of a row.
package pattern

import (
	"strings"

	"github.com/Veraticus/sheetsum/internal/model"
)

// Label columns scanned for keywords.
const (
	labelColA = 0
	labelColB = 1
)

// LabelText builds the lower-cased text a rule is matched against:
// column A and column B joined by a single space.
func LabelText(row model.Row) string {
	return labelCell(row.At(labelColA)) + " " + labelCell(row.At(labelColB))
}

// labelCell renders a label cell. The number zero reads as blank, like an
// empty cell.
func labelCell(c model.Cell) string {
	if c.Kind == model.CellNumber && c.Number == 0 {
		return ""
	}
	return strings.ToLower(c.String())
}

// Matches reports whether the rule's keywords are found in text.
// text is expected to be lower-cased already (see LabelText).
// Keywords match as substrings, so a keyword may match mid-word.
func Matches(rule model.ExtractionRule, text string) bool {
	if rule.Logic == model.LogicOr {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}

	for _, kw := range rule.Keywords {
		if !strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

// Matcher evaluates a fixed rule set against rows.
type Matcher struct {
	rules model.RuleSet
}

// NewMatcher creates a new matcher over the given rules.
func NewMatcher(rules model.RuleSet) *Matcher {
	return &Matcher{rules: rules}
}

// Match returns the indexes of the rules that match row, in rule order.
func (m *Matcher) Match(row model.Row) []int {
	text := LabelText(row)

	var matches []int
	for i, rule := range m.rules {
		if Matches(rule, text) {
			matches = append(matches, i)
		}
	}
	return matches
}

// Rules returns the rules the matcher was built with.
func (m *Matcher) Rules() model.RuleSet {
	return m.rules
}
