package dropbox

import (
	"context"
	"strings"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/model"
)

// MockClient is an in-memory stand-in for Client.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	DownloadFn           func(ctx context.Context, path string) ([]byte, error)
	ListFolderFn         func(ctx context.Context, path string) (*model.ListingPage, error)
	ListFolderContinueFn func(ctx context.Context, cursor string) (*model.ListingPage, error)

	// Files backs the default Download behavior, keyed by exact path.
	Files map[string][]byte

	// Call tracking
	DownloadCalls           []string
	ListFolderCalls         []string
	ListFolderContinueCalls []string
}

// NewMockClient creates a mock holding the given files.
func NewMockClient(files map[string][]byte) *MockClient {
	if files == nil {
		files = map[string][]byte{}
	}
	return &MockClient{Files: files}
}

// Download implements the document store download.
func (m *MockClient) Download(ctx context.Context, path string) ([]byte, error) {
	m.DownloadCalls = append(m.DownloadCalls, path)

	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, path)
	}

	if data, ok := m.Files[path]; ok {
		return data, nil
	}
	return nil, &common.UpstreamError{
		Err:     common.ErrNotFound,
		Status:  409,
		Message: "Dropbox Download Error: 409 path/not_found/. Requested Path: " + path,
	}
}

// ListFolder implements the first listing call.
func (m *MockClient) ListFolder(ctx context.Context, path string) (*model.ListingPage, error) {
	m.ListFolderCalls = append(m.ListFolderCalls, path)

	if m.ListFolderFn != nil {
		return m.ListFolderFn(ctx, path)
	}

	// Default behavior: one page listing every stored file
	page := &model.ListingPage{}
	for p := range m.Files {
		page.Entries = append(page.Entries, model.DirectoryEntry{
			Name:      baseName(p),
			PathLower: p,
			IsFile:    true,
		})
	}
	return page, nil
}

// ListFolderContinue implements listing continuation.
func (m *MockClient) ListFolderContinue(ctx context.Context, cursor string) (*model.ListingPage, error) {
	m.ListFolderContinueCalls = append(m.ListFolderContinueCalls, cursor)

	if m.ListFolderContinueFn != nil {
		return m.ListFolderContinueFn(ctx, cursor)
	}

	return &model.ListingPage{}, nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.DownloadCalls = nil
	m.ListFolderCalls = nil
	m.ListFolderContinueCalls = nil
}

func baseName(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
