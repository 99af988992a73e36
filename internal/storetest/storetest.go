// Package storetest holds the behaviour every types.Backend must show. Each
// backend's tests call Run with a factory that builds an unopened backend
// inside a directory.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Factory returns a new unopened backend stored under dir. Calls with the
// same dir must address the same catalog.
type Factory func(dir string) types.Backend

// Run executes the conformance suite against the backend built by newBackend.
func Run(t *testing.T, newBackend Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, newBackend func() types.Backend)
	}{
		{"CreateThenGet", testCreateThenGet},
		{"ListInCreationOrder", testListInCreationOrder},
		{"ListEmpty", testListEmpty},
		{"ListFilter", testListFilter},
		{"UpdatePartial", testUpdatePartial},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateInvalidLeavesRecord", testUpdateInvalidLeavesRecord},
		{"DeleteTwice", testDeleteTwice},
		{"IDsNotReused", testIDsNotReused},
		{"CreateIgnoresCallerID", testCreateIgnoresCallerID},
		{"CreateRejectsInvalid", testCreateRejectsInvalid},
		{"GetIsRepeatable", testGetIsRepeatable},
		{"OptionalFieldsRoundTrip", testOptionalFieldsRoundTrip},
		{"PersistsAcrossReopen", testPersistsAcrossReopen},
		{"ClosedStoreRejectsOps", testClosedStoreRejectsOps},
		{"OpenTwice", testOpenTwice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.fn(t, func() types.Backend { return newBackend(dir) })
		})
	}
}

// open builds and opens a backend, closing it when the test ends.
func open(t *testing.T, newBackend func() types.Backend) types.Backend {
	t.Helper()
	b := newBackend()
	require.NoError(t, b.Open())
	t.Cleanup(func() { b.Close() })
	return b
}

func mustBook(t *testing.T, title, author string, opts ...types.BookOption) types.Book {
	t.Helper()
	b, err := types.NewBook(title, author, opts...)
	require.NoError(t, err)
	return b
}

func titles(books []types.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func testCreateThenGet(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	created, err := s.Create(mustBook(t, "Dune", "Frank Herbert"))
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "Frank Herbert", got.Author)
	assert.Equal(t, created, got)
}

func testListInCreationOrder(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	want := []string{"C", "A", "B", "E", "D"}
	for _, title := range want {
		_, err := s.Create(mustBook(t, title, "X"))
		require.NoError(t, err)
	}

	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, want, titles(got))

	again, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.Equal(t, got, again, "list is restartable")
}

func testListEmpty(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testListFilter(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	_, err := s.Create(mustBook(t, "Solaris", "Lem", types.WithYear(1961), types.WithTags("sf")))
	require.NoError(t, err)
	_, err = s.Create(mustBook(t, "Emma", "Austen", types.WithYear(1815)))
	require.NoError(t, err)
	_, err = s.Create(mustBook(t, "Fiasco", "Lem", types.WithYear(1986), types.WithTags("sf")))
	require.NoError(t, err)

	y := 1986
	tests := []struct {
		name   string
		filter types.Filter
		want   []string
	}{
		{"author", types.Filter{Author: "lem"}, []string{"Solaris", "Fiasco"}},
		{"year", types.Filter{Year: &y}, []string{"Fiasco"}},
		{"tag", types.Filter{Tag: "sf"}, []string{"Solaris", "Fiasco"}},
		{"query", types.Filter{Query: "emm"}, []string{"Emma"}},
		{"no match", types.Filter{Author: "tolstoy"}, []string{}},
		{"blank fields match all", types.Filter{Query: "  ", Genre: "\t", Exact: true}, []string{"Solaris", "Emma", "Fiasco"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func testUpdatePartial(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	created, err := s.Create(mustBook(t, "Old", "Author", types.WithYear(1990), types.WithGenre("drama")))
	require.NoError(t, err)

	genre := "comedy"
	updated, err := s.Update(created.ID, types.BookPatch{Genre: &genre})
	require.NoError(t, err)
	assert.Equal(t, "comedy", *updated.Genre)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "comedy", *got.Genre)
	assert.Equal(t, "Old", got.Title)
	assert.Equal(t, "Author", got.Author)
	assert.Equal(t, 1990, *got.Year)
	assert.Equal(t, created.AddedAt, got.AddedAt)
	assert.Equal(t, created.ID, got.ID)
}

func testUpdateMissing(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	title := "X"
	_, err := s.Update(99, types.BookPatch{Title: &title})
	assert.ErrorIs(t, err, types.ErrNotFound)

	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.ID)
}

func testUpdateInvalidLeavesRecord(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	created, err := s.Create(mustBook(t, "Keep", "Me"))
	require.NoError(t, err)

	empty := ""
	_, err = s.Update(created.ID, types.BookPatch{Title: &empty})
	assert.ErrorIs(t, err, types.ErrValidation)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func testDeleteTwice(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	created, err := s.Create(mustBook(t, "Gone", "Soon"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(created.ID))

	_, err = s.Get(created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = s.Delete(created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func testIDsNotReused(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	a, err := s.Create(mustBook(t, "A", "X"))
	require.NoError(t, err)
	b, err := s.Create(mustBook(t, "B", "X"))
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)

	require.NoError(t, s.Delete(b.ID))

	c, err := s.Create(mustBook(t, "C", "X"))
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID, "deleted maximum id must not be reissued")
}

func testCreateIgnoresCallerID(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	in := mustBook(t, "A", "X")
	in.ID = 1000
	created, err := s.Create(in)
	require.NoError(t, err)
	assert.NotEqual(t, int64(1000), created.ID)
}

func testCreateRejectsInvalid(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	_, err := s.Create(types.Book{Title: "", Author: "X"})
	assert.ErrorIs(t, err, types.ErrValidation)

	got, err := s.List(types.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testGetIsRepeatable(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	created, err := s.Create(mustBook(t, "Same", "Again", types.WithTags("a")))
	require.NoError(t, err)

	first, err := s.Get(created.ID)
	require.NoError(t, err)
	first.Tags[0] = "mutated"

	second, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, second)
}

func testOptionalFieldsRoundTrip(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)

	full := mustBook(t, "Picnic", "Strugatsky",
		types.WithYear(1972), types.WithGenre("sf"), types.WithISBN("978-0"),
		types.WithPages(256), types.WithTags("classic", "ussr"), types.WithQuotes("q1", "q2"))
	created, err := s.Create(full)
	require.NoError(t, err)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1972, *got.Year)
	assert.Equal(t, "sf", *got.Genre)
	assert.Equal(t, "978-0", *got.ISBN)
	assert.Equal(t, 256, *got.Pages)
	assert.Equal(t, []string{"classic", "ussr"}, got.Tags)
	assert.Equal(t, []string{"q1", "q2"}, got.Quotes)

	bare, err := s.Create(mustBook(t, "Bare", "Book"))
	require.NoError(t, err)
	got, err = s.Get(bare.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Year)
	assert.Nil(t, got.Genre)
	assert.Nil(t, got.ISBN)
	assert.Nil(t, got.Pages)
	assert.Empty(t, got.Tags)
	assert.False(t, got.AddedAt.IsZero())
}

func testPersistsAcrossReopen(t *testing.T, newBackend func() types.Backend) {
	s := newBackend()
	require.NoError(t, s.Open())

	a, err := s.Create(mustBook(t, "A", "X", types.WithYear(2001)))
	require.NoError(t, err)
	b, err := s.Create(mustBook(t, "B", "Y"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(a.ID))
	require.NoError(t, s.Close())

	r := open(t, newBackend)
	got, err := r.List(types.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b, got[0])

	c, err := r.Create(mustBook(t, "C", "Z"))
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID)
}

func testClosedStoreRejectsOps(t *testing.T, newBackend func() types.Backend) {
	s := newBackend()

	_, err := s.List(types.Filter{})
	assert.ErrorIs(t, err, types.ErrStoreClosed, "unopened")

	require.NoError(t, s.Open())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err = s.Create(mustBook(t, "A", "X"))
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = s.Get(1)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = s.Update(1, types.BookPatch{})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	assert.ErrorIs(t, s.Delete(1), types.ErrStoreClosed)
}

func testOpenTwice(t *testing.T, newBackend func() types.Backend) {
	s := open(t, newBackend)
	assert.ErrorIs(t, s.Open(), types.ErrAlreadyOpen)
}
