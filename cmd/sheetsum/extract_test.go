package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runExtract(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := extractCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtractCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Quote (1).csv")
	require.NoError(t, os.WriteFile(file, []byte("Hardware,小计,,1500\nTotale IVA inclusa,,,\"€ 1830,00\"\n"), 0o600))

	// The exact name is missing; the counter suffix is matched fuzzily.
	out, err := runExtract(t, filepath.Join(dir, "quote.csv"), "--json")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "1.0.1", body["version"])
	assert.Equal(t, "EUR", body["currency"])
	assert.InDelta(t, 1500, body["hardware_total"], 1e-9)
	assert.InDelta(t, 0, body["service_total"], 1e-9)
	assert.InDelta(t, 1830, body["grand_total"], 1e-9)
}

func TestExtractCommand_CustomRules(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quote.csv")
	require.NoError(t, os.WriteFile(file, []byte("Shipping,,42\n"), 0o600))

	out, err := runExtract(t, file, "--type", "custom", "--rules", `[{"key":"shipping","keywords":["shipping"],"colIndex":2}]`)
	require.NoError(t, err)
	assert.Contains(t, out, "shipping")
	assert.Contains(t, out, "42.00 EUR")
}

func TestExtractCommand_CustomRulesMissing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quote.csv")
	require.NoError(t, os.WriteFile(file, []byte("a\n"), 0o600))

	_, err := runExtract(t, file, "--type", "custom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Type is "custom" but missing configuration`)
}

func TestExtractCommand_Raw(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quote.csv")
	require.NoError(t, os.WriteFile(file, []byte("Hardware,,10\n"), 0o600))

	out, err := runExtract(t, file, "--type", "raw", "--json")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, []any{[]any{"Hardware", nil, float64(10)}}, body["data"])
}
