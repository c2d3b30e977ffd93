package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/sheetsum/internal/common"
	"github.com/Veraticus/sheetsum/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
}

func TestDownload(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Offerte/quote.csv", "a,b")
	store := New(root)

	data, err := store.Download(context.Background(), "/Offerte/quote.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b", string(data))

	_, err = store.Download(context.Background(), "/Offerte/missing.csv")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Paths cannot climb out of the root.
	_, err = store.Download(context.Background(), "/../"+filepath.Base(root)+"/Offerte/quote.csv")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListFolder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "")
	writeFile(t, root, "Sub/B (1).csv", "")
	store := New(root)

	page, err := store.ListFolder(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, page.HasMore)

	paths := map[string]bool{}
	for _, e := range page.Entries {
		paths[e.PathLower] = e.IsFile
	}
	assert.Equal(t, map[string]bool{"/a.csv": true, "/Sub": false, "/Sub/B (1).csv": true}, paths)
}

func TestResolveThroughLocalStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "archive/Quote-20260214153349.csv", "x")
	store := New(root)

	path, err := resolver.Resolve(context.Background(), store, "", "quote.csv")
	require.NoError(t, err)
	assert.Equal(t, "/archive/Quote-20260214153349.csv", path)

	data, err := store.Download(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
