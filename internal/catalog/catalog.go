// Package catalog implements catalog-level operations on top of any
// types.Store: duplicate detection on add, sorting, quote management and
// CSV import/export.
package catalog

import (
	"strings"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// AddBook stores b unless the catalog already holds a duplicate of it, in
// which case a *types.DuplicateError naming the existing book is returned.
// allowDup skips the check.
func AddBook(store types.Store, b types.Book, allowDup bool) (types.Book, error) {
	if !allowDup {
		books, err := store.List(types.Filter{})
		if err != nil {
			return types.Book{}, err
		}
		if existing, ok := FindDuplicate(books, b); ok {
			return types.Book{}, &types.DuplicateError{Existing: existing}
		}
	}
	return store.Create(b)
}

// FindDuplicate returns the first book in books that duplicates cand. Two
// books are duplicates when both carry the same ISBN, or when title and
// author match and the years are equal (both absent counts as equal).
// Comparison ignores case and surrounding whitespace.
func FindDuplicate(books []types.Book, cand types.Book) (types.Book, bool) {
	candISBN := fold(deref(cand.ISBN))
	for _, b := range books {
		if isbn := fold(deref(b.ISBN)); isbn != "" && isbn == candISBN {
			return b, true
		}
		if fold(b.Title) != fold(cand.Title) || fold(b.Author) != fold(cand.Author) {
			continue
		}
		if sameYear(b.Year, cand.Year) {
			return b, true
		}
	}
	return types.Book{}, false
}

// DedupeTags drops repeated tags, comparing case-insensitively and keeping
// the first spelling.
func DedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := fold(t)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func sameYear(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
