package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/dropbox"
	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/Veraticus/sheetsum/internal/service"
	"github.com/Veraticus/sheetsum/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExtractor struct {
	ExtractFn func(ctx context.Context, req service.Request) (*service.Response, error)
	Calls     []service.Request
}

func (m *mockExtractor) Extract(ctx context.Context, req service.Request) (*service.Response, error) {
	m.Calls = append(m.Calls, req)
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, req)
	}
	return &service.Response{Currency: "EUR", Totals: model.Result{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Auth:          config.AuthConfig{ClientID: "app-key"},
		Extraction:    config.ExtractionConfig{Version: "1.0.1", Currency: "EUR"},
		Server:        config.ServerConfig{MaxBodyBytes: 1 << 10},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
	}
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestExtract_ClientID(t *testing.T) {
	ext := &mockExtractor{}
	h := New(testConfig(), ext)

	for _, target := range []string{"/?filename=a.xlsx", "/?filename=a.xlsx&clientid=wrong"} {
		rec, body := do(t, h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized: Invalid clientid.", body["error"])
		assert.Equal(t, "1.0.1", body["version"])
	}
	assert.Empty(t, ext.Calls)
}

func TestExtract_UnconfiguredClientIDRejectsEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.ClientID = ""
	h := New(cfg, &mockExtractor{})

	rec, _ := do(t, h, http.MethodGet, "/?filename=a.xlsx&clientid=", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtract_MissingFilename(t *testing.T) {
	rec, body := do(t, New(testConfig(), &mockExtractor{}), http.MethodGet, "/?clientid=app-key", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Please provide a "filename" query parameter.`, body["error"])
}

func TestExtract_Totals(t *testing.T) {
	ext := &mockExtractor{
		ExtractFn: func(_ context.Context, req service.Request) (*service.Response, error) {
			return &service.Response{
				Currency: "EUR",
				Totals:   model.Result{"hardware_total": 1500, "grand_total": 0},
			}, nil
		},
	}
	h := New(testConfig(), ext)

	rec, body := do(t, h, http.MethodGet, "/extract?clientid=app-key&filename=q.xlsx&folder=Offerte", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, map[string]any{
		"version":        "1.0.1",
		"currency":       "EUR",
		"hardware_total": float64(1500),
		"grand_total":    float64(0),
	}, body)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	require.Len(t, ext.Calls, 1)
	assert.Equal(t, service.Request{
		Filename: "q.xlsx",
		Folder:   "Offerte",
		Type:     "default",
	}, ext.Calls[0])
}

func TestExtract_InfinityCellIsZero(t *testing.T) {
	store := dropbox.NewMockClient(map[string][]byte{
		"/quote.csv": []byte("Hardware,小计,,Infinity\nService,小计,,€-Infinity\n"),
	})
	connector := service.ConnectorFunc(func(context.Context) (service.DocumentStore, error) {
		return store, nil
	})
	h := New(testConfig(), service.NewExtractor(connector, workbook.NewParser()))

	rec, body := do(t, h, http.MethodGet, "/?clientid=app-key&filename=quote.csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0.1", body["version"])
	assert.Equal(t, float64(0), body["hardware_total"])
	assert.Equal(t, float64(0), body["service_total"])
}

func TestExtract_UnencodableResponse(t *testing.T) {
	ext := &mockExtractor{
		ExtractFn: func(context.Context, service.Request) (*service.Response, error) {
			return &service.Response{Currency: "EUR", Totals: model.Result{"grand_total": math.Inf(1)}}, nil
		},
	}

	rec, body := do(t, New(testConfig(), ext), http.MethodGet, "/?clientid=app-key&filename=q.xlsx", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "1.0.1", body["version"])
	assert.Contains(t, body["error"], "Worker Error: json: unsupported value")
}

func TestExtract_Raw(t *testing.T) {
	ext := &mockExtractor{
		ExtractFn: func(context.Context, service.Request) (*service.Response, error) {
			return &service.Response{Rows: model.Sheet{
				{model.TextCell("Hardware"), {}, model.NumberCell(10)},
			}}, nil
		},
	}

	rec, body := do(t, New(testConfig(), ext), http.MethodGet, "/?clientid=app-key&filename=q.xlsx&type=raw", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{[]any{"Hardware", nil, float64(10)}}, body["data"])
	assert.NotContains(t, body, "currency")
}

func TestExtract_CustomInputsForwarded(t *testing.T) {
	ext := &mockExtractor{}
	h := New(testConfig(), ext)

	rules := `[{"key":"x","keywords":["a"],"colIndex":1}]`
	rec, _ := do(t, h, http.MethodPost, "/?clientid=app-key&filename=q.xlsx&type=custom&config=", strings.NewReader(rules))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, ext.Calls, 1)
	got := ext.Calls[0]
	assert.Equal(t, "custom", got.Type)
	assert.True(t, got.HasCustomParam)
	assert.Equal(t, "", got.CustomParam)
	assert.Equal(t, rules, string(got.Body))
}

func TestExtract_BodyTooLarge(t *testing.T) {
	ext := &mockExtractor{}
	rec, body := do(t, New(testConfig(), ext), http.MethodPost,
		"/?clientid=app-key&filename=q.xlsx", strings.NewReader(strings.Repeat("x", 2048)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large.", body["error"])
	assert.Empty(t, ext.Calls)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		err        error
		name       string
		wantError  string
		wantStatus int
	}{
		{
			name:       "config error",
			err:        common.NewConfigError(`Invalid JSON in "config" parameter.`, errors.New("eof")),
			wantStatus: http.StatusBadRequest,
			wantError:  `Invalid JSON in "config" parameter.`,
		},
		{
			name: "download error keeps upstream status",
			err: &common.UpstreamError{
				Err:     common.ErrNotFound,
				Status:  http.StatusConflict,
				Message: "Dropbox Download Error: 409 path/not_found/. Requested Path: /q.xlsx",
			},
			wantStatus: http.StatusConflict,
			wantError:  "Dropbox Download Error: 409 path/not_found/. Requested Path: /q.xlsx",
		},
		{
			name:       "missing token",
			err:        common.NewMissingTokenError(),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Configuration Error: No valid Dropbox Token found. Please set DROPBOX_ACCESS_TOKEN or (DROPBOX_REFRESH_TOKEN + APP_KEY + APP_SECRET).",
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Worker Error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &mockExtractor{
				ExtractFn: func(context.Context, service.Request) (*service.Response, error) {
					return nil, tt.err
				},
			}
			rec, body := do(t, New(testConfig(), ext), http.MethodGet, "/?clientid=app-key&filename=q.xlsx", nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, body["error"])
			assert.Equal(t, "1.0.1", body["version"])
		})
	}
}

func TestRecovery(t *testing.T) {
	ext := &mockExtractor{
		ExtractFn: func(context.Context, service.Request) (*service.Response, error) {
			panic("unexpected layout")
		},
	}

	rec, body := do(t, New(testConfig(), ext), http.MethodGet, "/?clientid=app-key&filename=q.xlsx", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Worker Error: unexpected layout", body["error"])
}

func TestRequestID(t *testing.T) {
	h := New(testConfig(), &mockExtractor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec, _ = do(t, h, http.MethodGet, "/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCORS(t *testing.T) {
	h := New(testConfig(), &mockExtractor{})

	req := httptest.NewRequest(http.MethodOptions, "/?filename=q.xlsx", nil)
	req.Header.Set("Origin", "https://sheet.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Less(t, rec.Code, 300)
}

func TestHealthAndMetrics(t *testing.T) {
	h := New(testConfig(), &mockExtractor{})

	rec, body := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.0.1", body["version"])

	rec, _ = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sheetsum_http_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = false

	rec, _ := do(t, New(cfg, &mockExtractor{}), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitPerSecond = 0.001
	cfg.Server.RateLimitBurst = 1
	h := New(cfg, &mockExtractor{})

	rec, _ := do(t, h, http.MethodGet, "/?clientid=app-key&filename=q.xlsx", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, h, http.MethodGet, "/?clientid=app-key&filename=q.xlsx", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too Many Requests", body["error"])

	rec, _ = do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
