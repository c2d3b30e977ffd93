// Package model defines the core data structures for the sheetsum application.
package model

import (
	"encoding/json"
	"strings"
)

// RuleLogic controls how the keywords of an ExtractionRule combine.
type RuleLogic string

// Rule logic constants.
const (
	LogicAnd RuleLogic = "AND"
	LogicOr  RuleLogic = "OR"
)

// ExtractionRule identifies one named total to extract from a sheet.
type ExtractionRule struct {
	Key      string    `json:"key"`
	Logic    RuleLogic `json:"logic,omitempty"`
	Keywords []string  `json:"keywords"`
	ColIndex int       `json:"colIndex"`
}

// UnmarshalJSON accepts the logic field in any case and defaults it to AND.
func (r *ExtractionRule) UnmarshalJSON(data []byte) error {
	type plain ExtractionRule
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ExtractionRule(p)
	r.Logic = ParseLogic(string(p.Logic))
	return nil
}

// ParseLogic maps a user supplied logic name to a RuleLogic.
// Anything other than "or" is treated as AND.
func ParseLogic(s string) RuleLogic {
	if strings.EqualFold(strings.TrimSpace(s), string(LogicOr)) {
		return LogicOr
	}
	return LogicAnd
}

// RuleSet is the ordered collection of rules active for one request.
type RuleSet []ExtractionRule

// Keys returns the distinct rule keys in first-seen order.
func (rs RuleSet) Keys() []string {
	seen := make(map[string]bool, len(rs))
	keys := make([]string, 0, len(rs))
	for _, r := range rs {
		if seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		keys = append(keys, r.Key)
	}
	return keys
}

// Catalog maps a request type name to its rule set.
type Catalog map[string]RuleSet

// DefaultType is the catalog entry used when a request type is unknown.
const DefaultType = "default"

// Clone returns a shallow copy of the catalog so overlays never touch the source.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
