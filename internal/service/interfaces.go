// Package service defines the extraction service and the contracts of its collaborators.
package service

import (
	"context"

	"github.com/Veraticus/sheetsum/internal/model"
)

// DocumentStore is a remote store holding spreadsheet documents.
type DocumentStore interface {
	// Download returns the document bytes. A missing path wraps common.ErrNotFound.
	Download(ctx context.Context, path string) ([]byte, error)

	// Listing operations used to search for misplaced documents
	ListFolder(ctx context.Context, path string) (*model.ListingPage, error)
	ListFolderContinue(ctx context.Context, cursor string) (*model.ListingPage, error)
}

// Connector authenticates against the store once per request.
type Connector interface {
	Connect(ctx context.Context) (DocumentStore, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (DocumentStore, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (DocumentStore, error) {
	return f(ctx)
}

// SheetParser turns document bytes into the rows of the first sheet.
type SheetParser interface {
	Parse(data []byte) (model.Sheet, error)
}
