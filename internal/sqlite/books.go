package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

const selectBooks = "SELECT id, title, author, year, genre, isbn, pages, tags, quotes, added_at FROM books"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook hydrates one books row.
func scanBook(row rowScanner) (types.Book, error) {
	var (
		b                  types.Book
		year, pages        sql.NullInt64
		genre, isbn        sql.NullString
		tags, quotes, when string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &year, &genre, &isbn, &pages, &tags, &quotes, &when); err != nil {
		return types.Book{}, err
	}
	if year.Valid {
		y := int(year.Int64)
		b.Year = &y
	}
	if pages.Valid {
		p := int(pages.Int64)
		b.Pages = &p
	}
	if genre.Valid {
		b.Genre = &genre.String
	}
	if isbn.Valid {
		b.ISBN = &isbn.String
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return types.Book{}, fmt.Errorf("decoding tags of book %d: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(quotes), &b.Quotes); err != nil {
		return types.Book{}, fmt.Errorf("decoding quotes of book %d: %w", b.ID, err)
	}
	t, err := time.Parse(time.RFC3339, when)
	if err != nil {
		return types.Book{}, fmt.Errorf("parsing added_at of book %d: %w", b.ID, err)
	}
	b.AddedAt = t
	return b.Normalize(), nil
}

// bookArgs returns the bound values for title through added_at, in column
// order.
func bookArgs(b types.Book) ([]any, error) {
	tags, err := encodeList(b.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	quotes, err := encodeList(b.Quotes)
	if err != nil {
		return nil, fmt.Errorf("encoding quotes: %w", err)
	}
	return []any{
		b.Title,
		b.Author,
		nullInt(b.Year),
		nullString(b.Genre),
		nullString(b.ISBN),
		nullInt(b.Pages),
		tags,
		quotes,
		b.AddedAt.UTC().Format(time.RFC3339),
	}, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
