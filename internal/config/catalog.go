package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/model"
)

// CustomType is the request type whose rules come from the request itself.
const CustomType = "custom"

// DefaultRules returns the built-in rule set used for the "default" type.
func DefaultRules() model.RuleSet {
	return model.RuleSet{
		{Key: "hardware_total", Keywords: []string{"hardware", "小计"}, ColIndex: 3, Logic: model.LogicAnd},
		{Key: "service_total", Keywords: []string{"service", "小计"}, ColIndex: 3, Logic: model.LogicAnd},
		{Key: "grand_total", Keywords: []string{"总合计"}, ColIndex: 3, Logic: model.LogicAnd},
		{Key: "grand_total", Keywords: []string{"iva inclusa"}, ColIndex: 3, Logic: model.LogicAnd},
	}
}

// DefaultCatalog returns a fresh catalog holding only the built-in rules.
func DefaultCatalog() model.Catalog {
	return model.Catalog{model.DefaultType: DefaultRules()}
}

// Override is operator supplied rule configuration layered over the
// built-in catalog. It is either a LegacyRuleList or a NamedRuleMap.
type Override interface {
	apply(model.Catalog) model.Catalog
}

// LegacyRuleList is the old bare-list format. It replaces only "default".
type LegacyRuleList model.RuleSet

func (l LegacyRuleList) apply(c model.Catalog) model.Catalog {
	out := c.Clone()
	out[model.DefaultType] = model.RuleSet(l)
	return out
}

// NamedRuleMap maps type names to rule sets. Each entry adds or replaces the
// catalog entry of the same name; unmentioned entries are kept.
type NamedRuleMap map[string]model.RuleSet

func (m NamedRuleMap) apply(c model.Catalog) model.Catalog {
	out := c.Clone()
	for name, rules := range m {
		out[name] = rules
	}
	return out
}

// ErrOverrideShape is returned when the override is neither a list nor a map.
var ErrOverrideShape = errors.New("extraction config must be a rule list or a map of rule lists")

// ParseOverride decodes operator configuration. Empty input yields a nil
// Override. A map entry that is not a rule list becomes an empty rule set
// and a null entry is left out.
func ParseOverride(data []byte) (Override, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var rules model.RuleSet
		if err := json.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("failed to parse rule list: %w", err)
		}
		return LegacyRuleList(rules), nil
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse rule map: %w", err)
		}
		named := make(NamedRuleMap, len(raw))
		for name, entry := range raw {
			if string(bytes.TrimSpace(entry)) == "null" {
				continue
			}
			var rules model.RuleSet
			if err := json.Unmarshal(entry, &rules); err != nil {
				slog.Warn("Extraction config entry is not a rule list, using no rules",
					"type", name,
					"error", err)
				rules = model.RuleSet{}
			}
			named[name] = rules
		}
		return named, nil
	default:
		return nil, ErrOverrideShape
	}
}

// BuildCatalog merges the built-in rules with the operator override.
// An override that cannot be parsed is logged and ignored.
func BuildCatalog(override []byte) model.Catalog {
	catalog := DefaultCatalog()

	parsed, err := ParseOverride(override)
	if err != nil {
		slog.Error("Failed to parse extraction config, using built-in rules", "error", err)
		return catalog
	}
	if parsed == nil {
		return catalog
	}

	return parsed.apply(catalog)
}

// CustomInput carries the per-request sources of custom rules.
type CustomInput struct {
	Param    string
	Body     []byte
	HasParam bool
}

// Rules returns the custom rule set, preferring the request body over the
// config parameter. A body holding a JSON string is decoded a second time.
func (in CustomInput) Rules() (model.RuleSet, error) {
	if rules, ok := decodeBodyRules(in.Body); ok && len(rules) > 0 {
		return rules, validateRules(rules)
	}

	if !in.HasParam || in.Param == "" {
		return nil, common.NewConfigError(
			`Type is "custom" but missing configuration in Body or "config" query parameter.`, common.ErrMissingConfig)
	}

	var rules model.RuleSet
	if err := json.Unmarshal([]byte(in.Param), &rules); err != nil {
		return nil, common.NewConfigError(`Invalid JSON in "config" parameter.`, err)
	}
	if rules == nil {
		rules = model.RuleSet{}
	}
	return rules, validateRules(rules)
}

// validateRules rejects rules without a keywords list, which would
// otherwise match every row.
func validateRules(rules model.RuleSet) error {
	for i, rule := range rules {
		if rule.Keywords == nil {
			return common.NewConfigError(
				fmt.Sprintf(`Invalid custom rule %d (%q): "keywords" must be a list.`, i, rule.Key), common.ErrInvalidConfig)
		}
	}
	return nil
}

func decodeBodyRules(body []byte) (model.RuleSet, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, false
	}

	var encoded string
	if err := json.Unmarshal(body, &encoded); err == nil {
		body = []byte(encoded)
	}

	var rules model.RuleSet
	if err := json.Unmarshal(body, &rules); err != nil {
		slog.Warn("Request body is not a rule list", "error", err)
		return nil, false
	}
	return rules, true
}

// Resolve picks the rule set for a request type.
//
// The custom type reads rules from the request and is the only case that
// fails. Any other type is looked up in the catalog, falling back to
// "default" and then to no rules at all.
func Resolve(requestType string, catalog model.Catalog, custom CustomInput) (model.RuleSet, error) {
	if requestType == CustomType {
		return custom.Rules()
	}

	if rules, ok := catalog[requestType]; ok {
		return nonNil(rules), nil
	}
	if rules, ok := catalog[model.DefaultType]; ok {
		return nonNil(rules), nil
	}

	slog.Warn("No configuration found for type and no default available", "type", requestType)
	return model.RuleSet{}, nil
}

func nonNil(rules model.RuleSet) model.RuleSet {
	if rules == nil {
		return model.RuleSet{}
	}
	return rules
}
