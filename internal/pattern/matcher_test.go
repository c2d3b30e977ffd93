package pattern

import (
	"testing"

	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestLabelText(t *testing.T) {
	tests := []struct {
		name string
		want string
		row  model.Row
	}{
		{
			name: "both label columns",
			row:  model.Row{model.TextCell("Hardware"), model.TextCell("小计")},
			want: "hardware 小计",
		},
		{
			name: "second column blank",
			row:  model.Row{model.TextCell("IVA INCLUSA")},
			want: "iva inclusa ",
		},
		{
			name: "empty row",
			row:  model.Row{},
			want: " ",
		},
		{
			name: "numeric label",
			row:  model.Row{model.NumberCell(2024), model.TextCell("Totale")},
			want: "2024 totale",
		},
		{
			name: "zero reads as blank",
			row:  model.Row{model.NumberCell(0), model.TextCell("Totale")},
			want: " totale",
		},
		{
			name: "later columns ignored",
			row:  model.Row{{}, model.TextCell("Service"), model.TextCell("hardware")},
			want: " service",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelText(tt.row))
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule model.ExtractionRule
		want bool
	}{
		{
			name: "and requires every keyword",
			rule: model.ExtractionRule{Keywords: []string{"a", "b"}, Logic: model.LogicAnd},
			text: "only a here",
			want: false,
		},
		{
			name: "or accepts any keyword",
			rule: model.ExtractionRule{Keywords: []string{"a", "b"}, Logic: model.LogicOr},
			text: "only a here",
			want: true,
		},
		{
			name: "default logic is and",
			rule: model.ExtractionRule{Keywords: []string{"hardware", "小计"}},
			text: "hardware 小计",
			want: true,
		},
		{
			name: "keywords are case folded",
			rule: model.ExtractionRule{Keywords: []string{"IVA Inclusa"}},
			text: "totale iva inclusa",
			want: true,
		},
		{
			name: "substring matches mid word",
			rule: model.ExtractionRule{Keywords: []string{"ware"}},
			text: "hardware ",
			want: true,
		},
		{
			name: "or with no hit",
			rule: model.ExtractionRule{Keywords: []string{"x", "y"}, Logic: model.LogicOr},
			text: "hardware",
			want: false,
		},
		{
			name: "and with no keywords matches everything",
			rule: model.ExtractionRule{},
			text: "anything",
			want: true,
		},
		{
			name: "or with no keywords matches nothing",
			rule: model.ExtractionRule{Logic: model.LogicOr},
			text: "anything",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.rule, tt.text))
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	rules := model.RuleSet{
		{Key: "hardware_total", Keywords: []string{"hardware", "小计"}, ColIndex: 3},
		{Key: "service_total", Keywords: []string{"service", "小计"}, ColIndex: 3},
		{Key: "any_total", Keywords: []string{"hardware", "service"}, Logic: model.LogicOr},
	}
	m := NewMatcher(rules)

	assert.Equal(t, []int{0, 2}, m.Match(model.Row{model.TextCell("Hardware"), model.TextCell("小计")}))
	assert.Equal(t, []int{2}, m.Match(model.Row{model.TextCell("Service")}))
	assert.Nil(t, m.Match(model.Row{model.TextCell("Shipping")}))
	assert.Equal(t, rules, m.Rules())
}
