package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// Sort keys accepted by SortOrder.
const (
	SortTitle   = "title"
	SortAuthor  = "author"
	SortYear    = "year"
	SortGenre   = "genre"
	SortAddedAt = "added_at"
)

// SortKeys lists the valid sort keys in display order.
var SortKeys = []string{SortTitle, SortAuthor, SortYear, SortGenre, SortAddedAt}

// SortOrder orders a book list. An unknown By falls back to title; an
// unknown Secondary is ignored.
type SortOrder struct {
	By        string
	Secondary string
	Desc      bool
}

// Sort orders books in place. Text keys compare case-insensitively. Books
// without a value for a key sort after those with one in either direction.
// Ties keep their original order.
func Sort(books []types.Book, order SortOrder) {
	by := order.By
	if !validKey(by) {
		by = SortTitle
	}
	secondary := order.Secondary
	if !validKey(secondary) {
		secondary = ""
	}

	slices.SortStableFunc(books, func(a, b types.Book) int {
		if c := compareKey(a, b, by, order.Desc); c != 0 {
			return c
		}
		if secondary != "" {
			return compareKey(a, b, secondary, order.Desc)
		}
		return 0
	})
}

func validKey(k string) bool {
	return slices.Contains(SortKeys, k)
}

func compareKey(a, b types.Book, key string, desc bool) int {
	switch key {
	case SortYear:
		return compareOptional(a.Year, b.Year, desc)
	case SortGenre:
		return compareOptional(foldPtr(a.Genre), foldPtr(b.Genre), desc)
	case SortAddedAt:
		c := a.AddedAt.Compare(b.AddedAt)
		if desc {
			return -c
		}
		return c
	case SortAuthor:
		return directed(strings.Compare(fold(a.Author), fold(b.Author)), desc)
	default:
		return directed(strings.Compare(fold(a.Title), fold(b.Title)), desc)
	}
}

// compareOptional orders present values by direction and absent values last.
func compareOptional[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return directed(cmp.Compare(*a, *b), desc)
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func foldPtr(s *string) *string {
	if s == nil {
		return nil
	}
	f := fold(*s)
	return &f
}
