package types

import (
	"strings"
	"time"
)

// Book is a single catalog entry. ID is assigned by the store on Create and
// never by the caller. Optional scalar fields are pointers so that an absent
// value is distinct from an empty one.
type Book struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Year    *int      `json:"year"`
	Genre   *string   `json:"genre"`
	ISBN    *string   `json:"isbn"`
	Pages   *int      `json:"pages"`
	Tags    []string  `json:"tags"`
	Quotes  []string  `json:"quotes"`
	AddedAt time.Time `json:"added_at"`
}

// BookOption sets an optional field on a Book built by NewBook.
type BookOption func(*Book)

// WithYear sets the publication year.
func WithYear(year int) BookOption {
	return func(b *Book) { b.Year = &year }
}

// WithGenre sets the genre. Blank values leave the genre absent.
func WithGenre(genre string) BookOption {
	return func(b *Book) { b.Genre = optionalString(genre) }
}

// WithISBN sets the ISBN. Blank values leave the ISBN absent.
func WithISBN(isbn string) BookOption {
	return func(b *Book) { b.ISBN = optionalString(isbn) }
}

// WithPages sets the page count.
func WithPages(pages int) BookOption {
	return func(b *Book) { b.Pages = &pages }
}

// WithTags sets the tag list. Blank entries are dropped.
func WithTags(tags ...string) BookOption {
	return func(b *Book) { b.Tags = cleanList(tags) }
}

// WithQuotes sets the quote list. Blank entries are dropped.
func WithQuotes(quotes ...string) BookOption {
	return func(b *Book) { b.Quotes = cleanList(quotes) }
}

// WithAddedAt overrides the creation timestamp. Used when copying records
// between stores.
func WithAddedAt(t time.Time) BookOption {
	return func(b *Book) { b.AddedAt = t.UTC().Truncate(time.Second) }
}

// NewBook builds a validated Book. Title and author are trimmed and must be
// non-empty; a *ValidationError naming the field is returned otherwise.
// The ID is left zero for the store to assign.
func NewBook(title, author string, opts ...BookOption) (Book, error) {
	b := Book{
		Title:  strings.TrimSpace(title),
		Author: strings.TrimSpace(author),
		Tags:   []string{},
		Quotes: []string{},
	}
	for _, opt := range opts {
		opt(&b)
	}
	if err := b.Validate(); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Validate checks the required fields.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(b.Author) == "" {
		return &ValidationError{Field: "author", Reason: "must not be empty"}
	}
	if b.Year != nil && *b.Year < 0 {
		return &ValidationError{Field: "year", Reason: "must not be negative"}
	}
	if b.Pages != nil && *b.Pages < 0 {
		return &ValidationError{Field: "pages", Reason: "must not be negative"}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a store's state through
// returned records.
func (b Book) Clone() Book {
	c := b
	if b.Year != nil {
		y := *b.Year
		c.Year = &y
	}
	if b.Pages != nil {
		p := *b.Pages
		c.Pages = &p
	}
	if b.Genre != nil {
		g := *b.Genre
		c.Genre = &g
	}
	if b.ISBN != nil {
		i := *b.ISBN
		c.ISBN = &i
	}
	c.Tags = append([]string{}, b.Tags...)
	c.Quotes = append([]string{}, b.Quotes...)
	return c
}

// Normalize trims text fields, drops blank list entries, turns blank
// optional strings into absent values and fixes AddedAt to UTC seconds.
// A zero AddedAt is set to now.
func (b Book) Normalize() Book {
	n := b.Clone()
	n.Title = strings.TrimSpace(n.Title)
	n.Author = strings.TrimSpace(n.Author)
	if n.Genre != nil {
		n.Genre = optionalString(*n.Genre)
	}
	if n.ISBN != nil {
		n.ISBN = optionalString(*n.ISBN)
	}
	n.Tags = cleanList(n.Tags)
	n.Quotes = cleanList(n.Quotes)
	if n.AddedAt.IsZero() {
		n.AddedAt = time.Now()
	}
	n.AddedAt = n.AddedAt.UTC().Truncate(time.Second)
	return n
}

// BookPatch describes a partial update. Nil fields are left unchanged.
type BookPatch struct {
	Title  *string
	Author *string
	Year   *int
	Genre  *string
	ISBN   *string
	Pages  *int
	Tags   *[]string
	Quotes *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Year == nil && p.Genre == nil &&
		p.ISBN == nil && p.Pages == nil && p.Tags == nil && p.Quotes == nil
}

// Apply returns a copy of b with the patch applied. The ID and AddedAt are
// never changed. The result is normalized and validated.
func (p BookPatch) Apply(b Book) (Book, error) {
	out := b.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.Year != nil {
		y := *p.Year
		out.Year = &y
	}
	if p.Genre != nil {
		g := *p.Genre
		out.Genre = &g
	}
	if p.ISBN != nil {
		i := *p.ISBN
		out.ISBN = &i
	}
	if p.Pages != nil {
		n := *p.Pages
		out.Pages = &n
	}
	if p.Tags != nil {
		out.Tags = append([]string{}, (*p.Tags)...)
	}
	if p.Quotes != nil {
		out.Quotes = append([]string{}, (*p.Quotes)...)
	}
	out = out.Normalize()
	if err := out.Validate(); err != nil {
		return Book{}, err
	}
	return out, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
