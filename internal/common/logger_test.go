package common

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		h, err := NewHandler(&buf, slog.LevelInfo, "json")
		require.NoError(t, err)

		slog.New(h).Info("extracted", "file", "a.xlsx")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "extracted", line["msg"])
		assert.Equal(t, "a.xlsx", line["file"])
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		h, err := NewHandler(&buf, slog.LevelWarn, "console")
		require.NoError(t, err)

		slog.New(h).Info("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewHandler(&bytes.Buffer{}, slog.LevelInfo, "xml")
		assert.Error(t, err)
	})
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	require.NoError(t, SetupLogger("debug", "json"))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	assert.Error(t, SetupLogger("info", "xml"))
	assert.Error(t, SetupLogger("verbose", "console"))
}
