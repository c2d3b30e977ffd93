package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/config"
	"github.com/Veraticus/sheetsum/internal/engine"
	"github.com/Veraticus/sheetsum/internal/model"
	"github.com/Veraticus/sheetsum/internal/resolver"
)

// RawType returns the parsed rows instead of totals.
const RawType = "raw"

var repeatedSlashes = regexp.MustCompile(`/+`)

// Request is one extraction request.
type Request struct {
	Filename string
	Folder   string
	// Type names a rule set; empty means "default".
	Type           string
	CustomParam    string
	HasCustomParam bool
	Body           []byte
}

// Response is the outcome of a successful request. Rows is set for the raw
// type; Totals and Currency otherwise.
type Response struct {
	Totals   model.Result
	Type     string
	Currency string
	Path     string
	Rows     model.Sheet
}

// Extractor runs the fetch, parse and extract pipeline.
type Extractor struct {
	connector   Connector
	parser      SheetParser
	currency    string
	override    []byte
	resolverOps []resolver.Option
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOverride sets the operator rule configuration (JSON).
func WithOverride(override []byte) Option {
	return func(e *Extractor) {
		e.override = override
	}
}

// WithCurrency sets the currency label reported with totals.
func WithCurrency(currency string) Option {
	return func(e *Extractor) {
		e.currency = currency
	}
}

// WithResolverOptions passes options to the file resolver.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(e *Extractor) {
		e.resolverOps = append(e.resolverOps, opts...)
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(connector Connector, parser SheetParser, opts ...Option) *Extractor {
	e := &Extractor{
		connector: connector,
		parser:    parser,
		currency:  "EUR",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches the requested document and computes its totals.
func (e *Extractor) Extract(ctx context.Context, req Request) (*Response, error) {
	requestType := req.Type
	if requestType == "" {
		requestType = model.DefaultType
	}

	store, err := e.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	path := DocumentPath(req.Folder, req.Filename)
	data, path, err := e.fetch(ctx, store, req, path)
	if err != nil {
		return nil, err
	}

	sheet, err := e.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	slog.Debug("Parsed document", "path", path, "rows", len(sheet))

	if requestType == RawType {
		if sheet == nil {
			sheet = model.Sheet{}
		}
		return &Response{Type: requestType, Path: path, Rows: sheet}, nil
	}

	catalog := config.BuildCatalog(e.override)
	rules, err := config.Resolve(requestType, catalog, config.CustomInput{
		Param:    req.CustomParam,
		HasParam: req.HasCustomParam,
		Body:     req.Body,
	})
	if err != nil {
		return nil, err
	}

	totals := engine.Extract(sheet, rules)
	slog.Info("Extracted totals",
		"path", path,
		"type", requestType,
		"rules", len(rules),
		"keys", len(totals))

	return &Response{
		Type:     requestType,
		Path:     path,
		Currency: e.currency,
		Totals:   totals,
	}, nil
}

// fetch downloads path. When the store reports it missing, the folder is
// searched for the file and the download is retried once on the match.
func (e *Extractor) fetch(ctx context.Context, store DocumentStore, req Request, path string) ([]byte, string, error) {
	data, err := store.Download(ctx, path)
	if err == nil {
		return data, path, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, path, err
	}

	folder := NormalizeFolder(req.Folder)
	slog.Info("Document not at expected path, searching", "path", path, "folder", folder)

	resolved, resolveErr := resolver.New(store, e.resolverOps...).Resolve(ctx, folder, req.Filename)
	if resolveErr != nil {
		if errors.Is(resolveErr, common.ErrNotFound) {
			slog.Info("No matching document found", "folder", folder, "filename", req.Filename)
		} else {
			slog.Warn("Document search failed", "folder", folder, "error", resolveErr)
		}
		return nil, path, err
	}

	data, err = store.Download(ctx, resolved)
	if err != nil {
		return nil, resolved, err
	}
	return data, resolved, nil
}

// NormalizeFolder gives folder a leading slash and drops one trailing slash.
// An empty folder stays empty and means the store root.
func NormalizeFolder(folder string) string {
	if folder == "" {
		return ""
	}
	if !strings.HasPrefix(folder, "/") {
		folder = "/" + folder
	}
	folder = strings.TrimSuffix(folder, "/")
	return repeatedSlashes.ReplaceAllString(folder, "/")
}

// DocumentPath joins folder and filename into a store path.
func DocumentPath(folder, filename string) string {
	return repeatedSlashes.ReplaceAllString(NormalizeFolder(folder)+"/"+filename, "/")
}
