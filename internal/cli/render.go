package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// FormatAmount renders a total with two decimals and the currency label.
func FormatAmount(value float64, currency string) string {
	amount := strconv.FormatFloat(value, 'f', 2, 64)
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

// RenderTotals renders totals as an aligned two column list in key order.
// Zero totals are dimmed.
func RenderTotals(totals model.Result, currency string) string {
	if len(totals) == 0 {
		return SubtleStyle.Render("no rules matched")
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := make([]string, len(keys))
	amounts := make([]string, len(keys))
	for i, k := range keys {
		names[i] = KeyStyle.Render(k)
		amount := FormatAmount(totals[k], currency)
		if totals[k] == 0 {
			amount = SubtleStyle.Render(amount)
		}
		amounts[i] = ValueStyle.Render(amount)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(names, "\n"),
		lipgloss.JoinVertical(lipgloss.Right, amounts...),
	)
}

// RenderRows renders parsed rows as tab separated lines, one per row.
func RenderRows(sheet model.Sheet) string {
	lines := make([]string, len(sheet))
	for i, row := range sheet {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = c.String()
		}
		lines[i] = SubtleStyle.Render(strconv.Itoa(i+1)+"\t") + strings.Join(cells, "\t")
	}
	return strings.Join(lines, "\n")
}
