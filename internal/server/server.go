// Package server exposes the extraction service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

// Extractor runs one extraction request.
type Extractor interface {
	Extract(ctx context.Context, req service.Request) (*service.Response, error)
}

// Server holds the HTTP handlers and their settings.
type Server struct {
	extractor    Extractor
	clientID     string
	version      string
	maxBodyBytes int64
}

// New builds the HTTP handler: routes wrapped in CORS, request id, recovery,
// logging, metrics, tracing and rate limiting, outermost first.
func New(cfg *config.Config, extractor Extractor) http.Handler {
	s := &Server{
		extractor:    extractor,
		clientID:     cfg.Auth.ClientID,
		version:      cfg.Extraction.Version,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
	}

	if s.clientID == "" {
		slog.Warn("No client id configured; every extraction request will be rejected")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleExtract)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("GET /health", s.handleHealth)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
		slog.Debug("Registered metrics endpoint", "path", "/metrics")
	}

	var limiter *rate.Limiter
	if cfg.Server.RateLimitPerSecond > 0 && cfg.Server.RateLimitBurst > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimitPerSecond), cfg.Server.RateLimitBurst)
	}

	var handler http.Handler = mux
	handler = s.rateLimit(limiter)(handler)
	handler = tracing(otel.Tracer("sheetsum/server"))(handler)
	handler = metrics(handler)
	handler = logging(handler)
	handler = s.recovery(handler)
	handler = requestID(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	})
	return corsHandler.Handler(handler)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

// writeJSON writes body with the version field added.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	envelope := make(map[string]any, len(body)+1)
	envelope["version"] = s.version
	for k, v := range body {
		envelope[k] = v
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		LoggerFrom(r.Context()).Error("Failed to encode response", "error", err)
		status = http.StatusInternalServerError
		payload, _ = json.Marshal(map[string]any{
			"version": s.version,
			"error":   fmt.Sprintf("Worker Error: %v", err),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if _, err := w.Write(append(payload, '\n')); err != nil {
		LoggerFrom(r.Context()).Debug("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeJSON(w, r, status, map[string]any{"error": message})
}
