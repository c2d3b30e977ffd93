package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/Veraticus/sheetsum/internal/service"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFrom(r.Context())
	query := r.URL.Query()

	if s.clientID == "" || query.Get("clientid") != s.clientID {
		logger.Warn("Rejected request with invalid client id")
		s.writeError(w, r, http.StatusUnauthorized, "Unauthorized: Invalid clientid.")
		return
	}

	filename := query.Get("filename")
	if filename == "" {
		s.writeError(w, r, http.StatusBadRequest, `Please provide a "filename" query parameter.`)
		return
	}

	body, err := s.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		logger.Warn("Failed to read request body", "error", err)
		body = nil
	}

	requestType := query.Get("type")
	if requestType == "" {
		requestType = model.DefaultType
	}
	_, hasParam := query["config"]

	resp, err := s.extractor.Extract(r.Context(), service.Request{
		Filename:       filename,
		Folder:         query.Get("folder"),
		Type:           requestType,
		CustomParam:    query.Get("config"),
		HasCustomParam: hasParam,
		Body:           body,
	})
	if err != nil {
		status := common.StatusCode(err)
		extractionsTotal.WithLabelValues(typeLabel(requestType), "error").Inc()
		logger.Error("Extraction failed",
			"filename", filename,
			"type", requestType,
			"status", status,
			"error", err)
		s.writeError(w, r, status, common.UserMessage(err))
		return
	}
	extractionsTotal.WithLabelValues(typeLabel(requestType), "ok").Inc()

	s.writeJSON(w, r, http.StatusOK, ResponseBody(requestType, resp))
}

// ResponseBody is the JSON body of a successful response, without the
// version field: the parsed rows for the raw type, otherwise the currency
// label and one field per total.
func ResponseBody(requestType string, resp *service.Response) map[string]any {
	if requestType == service.RawType {
		return map[string]any{"data": resp.Rows}
	}

	out := make(map[string]any, len(resp.Totals)+1)
	out["currency"] = resp.Currency
	for key, value := range resp.Totals {
		out[key] = value
	}
	return out
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	reader := io.Reader(r.Body)
	if s.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}
	return io.ReadAll(reader)
}

// typeLabel keeps the metric label set bounded; operator defined types are
// reported together.
func typeLabel(requestType string) string {
	switch requestType {
	case model.DefaultType, service.RawType, config.CustomType:
		return requestType
	default:
		return "named"
	}
}
