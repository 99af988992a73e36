package types

import "strings"

// Filter selects books for Store.List. Text comparisons are case-insensitive
// after trimming; substring matching is used unless Exact is set. The zero
// Filter matches every book.
type Filter struct {
	Query  string // matched against title and author
	Title  string
	Author string
	Genre  string
	Tag    string
	ISBN   string
	Year   *int
	Exact  bool
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return norm(f.Query) == "" && norm(f.Title) == "" && norm(f.Author) == "" &&
		norm(f.Genre) == "" && norm(f.Tag) == "" && norm(f.ISBN) == "" && f.Year == nil
}

// Match reports whether b satisfies every predicate of the filter.
func (f Filter) Match(b Book) bool {
	if q := norm(f.Query); q != "" {
		if !strings.Contains(norm(b.Title), q) && !strings.Contains(norm(b.Author), q) {
			return false
		}
	}
	if !f.matchText(f.Title, b.Title) || !f.matchText(f.Author, b.Author) {
		return false
	}
	if !f.matchText(f.Genre, deref(b.Genre)) || !f.matchText(f.ISBN, deref(b.ISBN)) {
		return false
	}
	if f.Year != nil && (b.Year == nil || *b.Year != *f.Year) {
		return false
	}
	if t := norm(f.Tag); t != "" {
		found := false
		for _, tag := range b.Tags {
			if f.matchText(t, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f Filter) matchText(want, got string) bool {
	want = norm(want)
	if want == "" {
		return true
	}
	if f.Exact {
		return want == norm(got)
	}
	return strings.Contains(norm(got), want)
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
