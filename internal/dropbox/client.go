// Package dropbox is a small client for the Dropbox HTTP API: token refresh,
// file download and recursive folder listing.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/model"
	"golang.org/x/oauth2"
)

// Production endpoints.
const (
	DefaultContentURL = "https://content.dropboxapi.com"
	DefaultAPIURL     = "https://api.dropboxapi.com"
	DefaultTokenURL   = "https://api.dropbox.com/oauth2/token"
)

// Config holds credentials and endpoints. Empty endpoints use the defaults.
type Config struct {
	HTTPClient   *http.Client
	AccessToken  string
	RefreshToken string
	AppKey       string
	AppSecret    string
	ContentURL   string
	APIURL       string
	TokenURL     string
}

// CanRefresh reports whether the refresh token flow is fully configured.
func (c Config) CanRefresh() bool {
	return c.RefreshToken != "" && c.AppKey != "" && c.AppSecret != ""
}

// Connector obtains an access token and hands out clients bound to it.
type Connector struct {
	httpClient *http.Client
	cfg        Config
}

// NewConnector creates a Connector, filling in default endpoints.
func NewConnector(cfg Config) *Connector {
	if cfg.ContentURL == "" {
		cfg.ContentURL = DefaultContentURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Connector{cfg: cfg, httpClient: httpClient}
}

// Connect returns a client for one request. A refresh is performed on every
// call when refresh credentials are present; otherwise the static token is used.
func (c *Connector) Connect(ctx context.Context) (*Client, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: c.httpClient,
		token:      token,
		contentURL: strings.TrimSuffix(c.cfg.ContentURL, "/"),
		apiURL:     strings.TrimSuffix(c.cfg.APIURL, "/"),
	}, nil
}

func (c *Connector) token(ctx context.Context) (*oauth2.Token, error) {
	if !c.cfg.CanRefresh() {
		slog.Debug("Using static Dropbox access token")
		if c.cfg.AccessToken == "" {
			return nil, common.NewMissingTokenError()
		}
		return &oauth2.Token{AccessToken: c.cfg.AccessToken, TokenType: "Bearer"}, nil
	}

	slog.Debug("Refreshing Dropbox access token")
	oauthConfig := &oauth2.Config{
		ClientID:     c.cfg.AppKey,
		ClientSecret: c.cfg.AppSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: c.cfg.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			slog.Error("Dropbox token refresh rejected",
				"status", retrieveErr.Response.StatusCode,
				"body", string(retrieveErr.Body))
			return nil, &common.UpstreamError{
				Err:     err,
				Status:  http.StatusInternalServerError,
				Message: fmt.Sprintf("Dropbox Auth Error: %d %s", retrieveErr.Response.StatusCode, strings.TrimSpace(string(retrieveErr.Body))),
			}
		}
		slog.Error("Dropbox token refresh failed", "error", err)
		return nil, &common.UpstreamError{
			Err:     err,
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Auth Flow Error: %v", err),
		}
	}
	if token.AccessToken == "" {
		return nil, common.NewMissingTokenError()
	}

	return token, nil
}

// Client performs Dropbox calls with a single access token.
type Client struct {
	httpClient *http.Client
	token      *oauth2.Token
	contentURL string
	apiURL     string
}

// Download fetches the file at path. A 409 response wraps common.ErrNotFound.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	arg, err := apiArg(map[string]string{"path": path})
	if err != nil {
		return nil, fmt.Errorf("failed to encode download argument: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentURL+"/2/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	c.token.SetAuthHeader(req)
	req.Header.Set("Dropbox-API-Arg", arg)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		slog.Debug("Dropbox download failed",
			"status", resp.StatusCode,
			"path", path,
			"body", string(body))
		upErr := &common.UpstreamError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Dropbox Download Error: %d %s. Requested Path: %s", resp.StatusCode, string(body), path),
		}
		if resp.StatusCode == http.StatusConflict {
			upErr.Err = common.ErrNotFound
		}
		return nil, upErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}

	slog.Debug("Downloaded file from Dropbox", "path", path, "bytes", len(data))
	return data, nil
}

type listFolderArg struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type listFolderContinueArg struct {
	Cursor string `json:"cursor"`
}

type listFolderResult struct {
	Cursor  string     `json:"cursor"`
	Entries []metadata `json:"entries"`
	HasMore bool       `json:"has_more"`
}

type metadata struct {
	Tag       string `json:".tag"`
	Name      string `json:"name"`
	PathLower string `json:"path_lower"`
}

// ListFolder starts a recursive listing. "/" and "" both mean the root.
func (c *Client) ListFolder(ctx context.Context, path string) (*model.ListingPage, error) {
	if path == "/" {
		path = ""
	}
	return c.list(ctx, "/2/files/list_folder", listFolderArg{Path: path, Recursive: true})
}

// ListFolderContinue fetches the page after cursor.
func (c *Client) ListFolderContinue(ctx context.Context, cursor string) (*model.ListingPage, error) {
	return c.list(ctx, "/2/files/list_folder/continue", listFolderContinueArg{Cursor: cursor})
}

func (c *Client) list(ctx context.Context, endpoint string, arg any) (*model.ListingPage, error) {
	payload, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode listing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}
	c.token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &common.UpstreamError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("Dropbox List Error: %d %s", resp.StatusCode, string(body)),
		}
	}

	var result listFolderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode listing response: %w", err)
	}

	page := &model.ListingPage{
		Cursor:  result.Cursor,
		HasMore: result.HasMore,
		Entries: make([]model.DirectoryEntry, 0, len(result.Entries)),
	}
	for _, e := range result.Entries {
		page.Entries = append(page.Entries, model.DirectoryEntry{
			Name:      e.Name,
			PathLower: e.PathLower,
			IsFile:    e.Tag == "file",
			IsFolder:  e.Tag == "folder",
		})
	}
	return page, nil
}

// apiArg encodes v for the Dropbox-API-Arg header. HTTP headers must be
// ASCII, so every non-ASCII character is written as a \uXXXX escape.
func apiArg(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range string(data) {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		for _, unit := range utf16.Encode([]rune{r}) {
			fmt.Fprintf(&b, `\u%04x`, unit)
		}
	}
	return b.String(), nil
}
