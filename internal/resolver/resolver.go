// Package resolver finds a document by name when its expected path is missing.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/model"
)

// Lister is the paginated, recursive folder listing of a document store.
type Lister interface {
	ListFolder(ctx context.Context, path string) (*model.ListingPage, error)
	ListFolderContinue(ctx context.Context, cursor string) (*model.ListingPage, error)
}

// PageObserver is told about each listing page as it is scanned.
type PageObserver func(pageNumber int, entries int)

type state int

const (
	stateList state = iota
	stateContinue
	stateMatch
	stateDone
)

// Resolver searches a folder tree for a file.
type Resolver struct {
	lister Lister
	onPage PageObserver
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPageObserver registers a callback invoked once per scanned page.
func WithPageObserver(fn PageObserver) Option {
	return func(r *Resolver) {
		r.onPage = fn
	}
}

// New creates a Resolver over lister.
func New(lister Lister, opts ...Option) *Resolver {
	r := &Resolver{lister: lister}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve is shorthand for New(lister).Resolve.
func Resolve(ctx context.Context, lister Lister, folder, filename string) (string, error) {
	return New(lister).Resolve(ctx, folder, filename)
}

// Resolve lists folder recursively (the root when empty) and returns the
// lower-case path of the first file matching filename. Each page is checked
// for an exact name first and a normalized name second, and is discarded
// before the next one is requested. It returns common.ErrNotFound when the
// listing is exhausted without a match.
func (r *Resolver) Resolve(ctx context.Context, folder, filename string) (string, error) {
	var (
		current = stateList
		page    *model.ListingPage
		result  string
		pages   int
		err     error
	)

	target := strings.ToLower(filename)
	fuzzyTarget := NormalizeName(filename)

	for current != stateDone {
		switch current {
		case stateList:
			page, err = r.lister.ListFolder(ctx, folder)
			if err != nil {
				return "", fmt.Errorf("failed to list folder %q: %w", folder, err)
			}
			current = stateMatch

		case stateContinue:
			page, err = r.lister.ListFolderContinue(ctx, page.Cursor)
			if err != nil {
				return "", fmt.Errorf("failed to continue listing %q: %w", folder, err)
			}
			current = stateMatch

		case stateMatch:
			pages++
			if r.onPage != nil {
				r.onPage(pages, len(page.Entries))
			}

			if path, ok := matchPage(page.Entries, target, fuzzyTarget); ok {
				result = path
				current = stateDone
				continue
			}
			if page.HasMore {
				current = stateContinue
				continue
			}
			current = stateDone
		}
	}

	if result == "" {
		slog.Debug("File not found in listing", "folder", folder, "filename", filename, "pages", pages)
		return "", fmt.Errorf("%s in %q: %w", filename, folder, common.ErrNotFound)
	}

	slog.Info("Resolved file by listing", "filename", filename, "path", result, "pages", pages)
	return result, nil
}

func matchPage(entries []model.DirectoryEntry, target, fuzzyTarget string) (string, bool) {
	for _, e := range entries {
		if e.IsFile && strings.ToLower(e.Name) == target {
			return e.PathLower, true
		}
	}
	for _, e := range entries {
		if e.IsFile && NormalizeName(e.Name) == fuzzyTarget {
			return e.PathLower, true
		}
	}
	return "", false
}
