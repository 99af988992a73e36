package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBook(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		author    string
		opts      []BookOption
		wantField string
	}{
		{name: "valid minimal", title: "Dune", author: "Frank Herbert"},
		{name: "trims whitespace", title: "  Dune ", author: " Frank Herbert  "},
		{name: "empty title", title: "", author: "X", wantField: "title"},
		{name: "blank title", title: "   ", author: "X", wantField: "title"},
		{name: "empty author", title: "A", author: "", wantField: "author"},
		{name: "negative year", title: "A", author: "X", opts: []BookOption{WithYear(-1)}, wantField: "year"},
		{name: "negative pages", title: "A", author: "X", opts: []BookOption{WithPages(-5)}, wantField: "pages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBook(tt.title, tt.author, tt.opts...)
			if tt.wantField != "" {
				require.ErrorIs(t, err, ErrValidation)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Dune", b.Title)
			assert.Equal(t, "Frank Herbert", b.Author)
			assert.Zero(t, b.ID)
		})
	}
}

func TestNewBookOptions(t *testing.T) {
	added := time.Date(2020, 5, 1, 10, 30, 15, 999, time.FixedZone("X", 3600))
	b, err := NewBook("Picnic", "Strugatsky",
		WithYear(1972),
		WithGenre(" fantasy "),
		WithISBN("  "),
		WithPages(256),
		WithTags("classic", " ", "sf"),
		WithQuotes("  q1 "),
		WithAddedAt(added),
	)
	require.NoError(t, err)

	require.NotNil(t, b.Year)
	assert.Equal(t, 1972, *b.Year)
	require.NotNil(t, b.Genre)
	assert.Equal(t, "fantasy", *b.Genre)
	assert.Nil(t, b.ISBN, "blank ISBN stays absent")
	require.NotNil(t, b.Pages)
	assert.Equal(t, 256, *b.Pages)
	assert.Equal(t, []string{"classic", "sf"}, b.Tags)
	assert.Equal(t, []string{"q1"}, b.Quotes)
	assert.Equal(t, time.Date(2020, 5, 1, 9, 30, 15, 0, time.UTC), b.AddedAt)
}

func TestBookCloneIsDeep(t *testing.T) {
	b, err := NewBook("T", "A", WithYear(2000), WithTags("x"))
	require.NoError(t, err)

	c := b.Clone()
	*c.Year = 1999
	c.Tags[0] = "y"

	assert.Equal(t, 2000, *b.Year)
	assert.Equal(t, "x", b.Tags[0])
}

func TestBookNormalizeSetsAddedAt(t *testing.T) {
	before := time.Now().UTC().Truncate(time.Second)
	n := Book{Title: " T ", Author: "A", Tags: nil}.Normalize()

	assert.Equal(t, "T", n.Title)
	assert.NotNil(t, n.Tags)
	assert.NotNil(t, n.Quotes)
	assert.False(t, n.AddedAt.Before(before))
	assert.Equal(t, time.UTC, n.AddedAt.Location())
}

func TestBookPatchApply(t *testing.T) {
	base, err := NewBook("Old", "Author", WithYear(1990), WithGenre("drama"))
	require.NoError(t, err)
	base.ID = 7

	newTitle := "New"
	empty := ""
	tags := []string{"a", "b"}

	tests := []struct {
		name    string
		patch   BookPatch
		wantErr error
		check   func(t *testing.T, got Book)
	}{
		{
			name:  "title only leaves others unchanged",
			patch: BookPatch{Title: &newTitle},
			check: func(t *testing.T, got Book) {
				assert.Equal(t, "New", got.Title)
				assert.Equal(t, "Author", got.Author)
				assert.Equal(t, 1990, *got.Year)
				assert.Equal(t, "drama", *got.Genre)
				assert.Equal(t, int64(7), got.ID)
			},
		},
		{
			name:  "tags replaced",
			patch: BookPatch{Tags: &tags},
			check: func(t *testing.T, got Book) {
				assert.Equal(t, []string{"a", "b"}, got.Tags)
			},
		},
		{
			name:  "blank genre clears it",
			patch: BookPatch{Genre: &empty},
			check: func(t *testing.T, got Book) {
				assert.Nil(t, got.Genre)
			},
		},
		{
			name:    "empty author rejected",
			patch:   BookPatch{Author: &empty},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.patch.Apply(base)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
			assert.Equal(t, base.AddedAt, got.AddedAt)
		})
	}
}

func TestBookPatchIsEmpty(t *testing.T) {
	assert.True(t, BookPatch{}.IsEmpty())
	y := 2001
	assert.False(t, BookPatch{Year: &y}.IsEmpty())
}
