package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/internal/logger"
	"library-catalog/library"
)

func TestSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lib.db")
	t.Setenv("LIBRARY_STORAGE_DB_PATH", dbPath)
	t.Setenv("LIBRARY_STORAGE_BACKEND", "sqlite")

	catalog := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(catalog, []byte(`[{"id":1,"title":"A","copies":2},{"id":2,"title":"B","copies":3}]`), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env-file", "", "--file", catalog})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Seeded 2 books (5 copies)")

	db, err := library.NewDatabase("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	books, err := library.NewCatalog(db, logger.Nop()).Books(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 2)
}

func TestSeedDefaultsAndBadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBRARY_STORAGE_DB_PATH", filepath.Join(dir, "lib.db"))

	books, source, err := loadBooks("")
	require.NoError(t, err)
	assert.Len(t, books, 15)
	assert.Equal(t, "the built-in catalog", source)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id":1},{"id":1}]`), 0o644))
	_, _, err = loadBooks(bad)
	assert.ErrorContains(t, err, "duplicate book id")
}
