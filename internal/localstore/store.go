// Package localstore serves documents from a local directory with the same
// contract as the remote document store.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/model"
)

// Store reads documents below Root. Paths are slash separated and rooted at "/".
type Store struct {
	Root string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Root: dir}
}

// resolve maps a store path to a file below Root. Cleaning against "/"
// keeps ".." from escaping the root.
func (s *Store) resolve(p string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+p)))
}

// Download reads the file at p. A missing file wraps common.ErrNotFound.
func (s *Store) Download(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.resolve(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &common.UpstreamError{
			Err:     common.ErrNotFound,
			Status:  409,
			Message: fmt.Sprintf("File not found. Requested Path: %s", p),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// ListFolder walks p recursively and returns every entry in a single page.
// PathLower keeps the original case since local file systems may be case
// sensitive.
func (s *Store) ListFolder(ctx context.Context, p string) (*model.ListingPage, error) {
	base := s.resolve(p)
	page := &model.ListingPage{}
	err := filepath.WalkDir(base, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if full == base {
			return nil
		}

		rel, err := filepath.Rel(s.Root, full)
		if err != nil {
			return err
		}
		page.Entries = append(page.Entries, model.DirectoryEntry{
			Name:      d.Name(),
			PathLower: "/" + filepath.ToSlash(rel),
			IsFile:    d.Type().IsRegular(),
			IsFolder:  d.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p, err)
	}
	return page, nil
}

// ListFolderContinue is never needed because listings fit one page.
func (s *Store) ListFolderContinue(_ context.Context, cursor string) (*model.ListingPage, error) {
	return nil, fmt.Errorf("unexpected listing cursor %q", cursor)
}
