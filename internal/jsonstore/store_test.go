// Tests for the JSON document backend.
package jsonstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/booklib/internal/atomicfile"
	"github.com/mesh-intelligence/booklib/internal/storetest"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(dir string) types.Backend {
		return New(filepath.Join(dir, "library.json"))
	})
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s := New(path)
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readDocument(t *testing.T, path string) documentJSON {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc documentJSON
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.json")
	s := openStore(t, path)

	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "open must not create the file")
}

func TestFirstCreateWritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.json")
	s := openStore(t, path)

	b, err := types.NewBook("Dune", "Frank Herbert", types.WithYear(1965))
	require.NoError(t, err)
	created, err := s.Create(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	doc := readDocument(t, path)
	assert.Equal(t, documentVersion, doc.Version)
	assert.Equal(t, int64(2), doc.NextID)
	require.Len(t, doc.Books, 1)
	assert.Equal(t, "Dune", doc.Books[0].Title)
	assert.Equal(t, json.RawMessage("1"), doc.Books[0].ID)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), "\n  \"books\"", "document is indented")
}

func TestOpenWhitespaceFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	writeFile(t, path, "  \n\t")

	s := openStore(t, path)
	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{not json"},
		{"scalar", `42`},
		{"wrong field type", `{"version":1,"next_id":2,"books":[{"id":1,"title":5,"author":"A"}]}`},
		{"missing title", `{"version":1,"next_id":2,"books":[{"id":1,"author":"A"}]}`},
		{"blank author", `{"version":1,"next_id":2,"books":[{"id":1,"title":"T","author":"  "}]}`},
		{"duplicate ids", `{"version":1,"next_id":3,"books":[{"id":1,"title":"A","author":"X"},{"id":1,"title":"B","author":"Y"}]}`},
		{"string id in versioned document", `{"version":1,"next_id":2,"books":[{"id":"abc","title":"A","author":"X"}]}`},
		{"bad added_at", `{"version":1,"next_id":2,"books":[{"id":1,"title":"A","author":"X","added_at":"yesterday"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "library.json")
			writeFile(t, path, tt.content)

			s := New(path)
			err := s.Open()
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrCorruptStore)

			var ce *types.CorruptStoreError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, path, ce.Path)

			_, err = s.List(types.Filter{})
			assert.ErrorIs(t, err, types.ErrStoreClosed, "failed open leaves store closed")
		})
	}
}

func TestOpenLegacyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	writeFile(t, path, `[
  {"id": "7f3c", "title": "Emma", "author": "Austen", "tags": ["classic"]},
  {"id": 4, "title": "Solaris", "author": "Lem", "year": 1961},
  {"title": "Ubik", "author": "Dick"}
]`)

	s := openStore(t, path)
	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Emma", got[0].Title)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, []string{"classic"}, got[0].Tags)
	assert.Equal(t, int64(4), got[1].ID)
	assert.Equal(t, int64(6), got[2].ID)
	assert.False(t, got[2].AddedAt.IsZero())

	b, err := types.NewBook("New", "One")
	require.NoError(t, err)
	created, err := s.Create(b)
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	doc := readDocument(t, path)
	assert.Equal(t, documentVersion, doc.Version, "legacy file is rewritten in the current layout")
	assert.Len(t, doc.Books, 4)
}

func TestNextIDSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	writeFile(t, path, `{"version":1,"next_id":10,"books":[{"id":3,"title":"A","author":"X","added_at":"2024-01-02T03:04:05Z"}]}`)

	s := openStore(t, path)
	got, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.AddedAt.Format("2006-01-02T15:04:05Z07:00"))

	b, err := types.NewBook("B", "Y")
	require.NoError(t, err)
	created, err := s.Create(b)
	require.NoError(t, err)
	assert.Equal(t, int64(10), created.ID)
}

func TestNextIDBelowMaxIsRaised(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	writeFile(t, path, `{"version":1,"next_id":1,"books":[{"id":8,"title":"A","author":"X"}]}`)

	s := openStore(t, path)
	b, err := types.NewBook("B", "Y")
	require.NoError(t, err)
	created, err := s.Create(b)
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	s := openStore(t, path)

	b, err := types.NewBook("Keep", "Me")
	require.NoError(t, err)
	kept, err := s.Create(b)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	diskFull := errors.New("no space left on device")
	s.write = func(string, []byte) error { return diskFull }

	other, err := types.NewBook("Lost", "Book")
	require.NoError(t, err)
	_, err = s.Create(other)
	assert.ErrorIs(t, err, diskFull)

	title := "Changed"
	_, err = s.Update(kept.ID, types.BookPatch{Title: &title})
	assert.ErrorIs(t, err, diskFull)

	err = s.Delete(kept.ID)
	assert.ErrorIs(t, err, diskFull)

	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kept, got[0])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	s.write = atomicfile.WriteFile
	created, err := s.Create(other)
	require.NoError(t, err)
	assert.Equal(t, kept.ID+1, created.ID, "failed create does not consume an id")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, filepath.Join(dir, "library.json"))

	for _, title := range []string{"A", "B", "C"} {
		b, err := types.NewBook(title, "X")
		require.NoError(t, err)
		_, err = s.Create(b)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "library.json", entries[0].Name())
}

func TestKindAndPath(t *testing.T) {
	s := New("/tmp/x/library.json")
	assert.Equal(t, types.BackendJSON, s.Kind())
	assert.Equal(t, "/tmp/x/library.json", s.Path())
}
