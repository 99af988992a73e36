package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	applog "github.com/mesh-intelligence/booklib/internal/log"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

// CSVColumns is the header written by ExportCSV.
var CSVColumns = []string{"id", "title", "author", "year", "genre", "tags", "isbn", "pages", "quotes", "added_at"}

// List separators inside a CSV cell.
const (
	tagSeparator   = ";"
	quoteSeparator = "|"
)

// ImportResult counts what ImportCSV did with each row.
type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

// ExportCSV writes every book in store to w and returns the number of rows
// written, excluding the header.
func ExportCSV(store types.Store, w io.Writer) (int, error) {
	books, err := store.List(types.Filter{})
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	for _, b := range books {
		if err := cw.Write(bookRecord(b)); err != nil {
			return 0, fmt.Errorf("writing book %d: %w", b.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}
	return len(books), nil
}

// ImportCSV reads rows from r and merges them into store. A row whose id
// names an existing book with the same title or author updates it; a row
// that duplicates an existing book is skipped; every other row is created
// with a new id. Ids are local to a catalog, so an id alone never selects
// the book to overwrite. All rows are parsed before anything is written, so
// a malformed file changes nothing.
func ImportCSV(store types.Store, r io.Reader) (ImportResult, error) {
	rows, err := readRows(r)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := store.List(types.Filter{})
	if err != nil {
		return ImportResult{}, err
	}
	byID := make(map[int64]types.Book, len(existing))
	for _, b := range existing {
		byID[b.ID] = b
	}

	var res ImportResult
	for _, row := range rows {
		if cur, ok := byID[row.ID]; ok && row.ID > 0 && sameBook(cur, row) {
			updated, err := store.Update(row.ID, replacePatch(row))
			if err != nil {
				return res, fmt.Errorf("updating book %d: %w", row.ID, err)
			}
			replaceBook(existing, updated)
			byID[updated.ID] = updated
			res.Updated++
			continue
		}
		if _, dup := FindDuplicate(existing, row); dup {
			res.Skipped++
			continue
		}
		row.ID = 0
		created, err := store.Create(row)
		if err != nil {
			return res, fmt.Errorf("creating %q: %w", row.Title, err)
		}
		existing = append(existing, created)
		byID[created.ID] = created
		res.Created++
	}

	applog.WithComponent("catalog").Info("csv imported",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

func bookRecord(b types.Book) []string {
	return []string{
		strconv.FormatInt(b.ID, 10),
		b.Title,
		b.Author,
		optionalInt(b.Year),
		deref(b.Genre),
		strings.Join(b.Tags, tagSeparator),
		deref(b.ISBN),
		optionalInt(b.Pages),
		strings.Join(b.Quotes, quoteSeparator),
		b.AddedAt.UTC().Format(time.RFC3339),
	}
}

// readRows parses the whole CSV. Columns are located by header name; absent
// columns read as empty.
func readRows(r io.Reader) ([]types.Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := col["title"]; !ok {
		return nil, &types.ValidationError{Field: "title", Reason: "column missing from csv header"}
	}
	if _, ok := col["author"]; !ok {
		return nil, &types.ValidationError{Field: "author", Reason: "column missing from csv header"}
	}

	var books []types.Book
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		cell := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		b, err := parseRow(cell)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		books = append(books, b)
	}
	return books, nil
}

func parseRow(cell func(string) string) (types.Book, error) {
	var opts []types.BookOption
	if v := cell("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return types.Book{}, &types.ValidationError{Field: "year", Reason: fmt.Sprintf("%q is not a number", v)}
		}
		opts = append(opts, types.WithYear(y))
	}
	if v := cell("pages"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return types.Book{}, &types.ValidationError{Field: "pages", Reason: fmt.Sprintf("%q is not a number", v)}
		}
		opts = append(opts, types.WithPages(p))
	}
	if v := cell("added_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return types.Book{}, &types.ValidationError{Field: "added_at", Reason: fmt.Sprintf("%q is not an RFC 3339 time", v)}
		}
		opts = append(opts, types.WithAddedAt(t))
	}
	opts = append(opts,
		types.WithGenre(cell("genre")),
		types.WithISBN(cell("isbn")),
		types.WithTags(DedupeTags(strings.Split(cell("tags"), tagSeparator))...),
		types.WithQuotes(strings.Split(cell("quotes"), quoteSeparator)...),
	)

	b, err := types.NewBook(cell("title"), cell("author"), opts...)
	if err != nil {
		return types.Book{}, err
	}
	if v := cell("id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			b.ID = id
		}
	}
	return b, nil
}

// replacePatch sets every field the CSV row carries. Empty year and pages
// cells leave the stored values unchanged.
func replacePatch(b types.Book) types.BookPatch {
	tags := append([]string{}, b.Tags...)
	quotes := append([]string{}, b.Quotes...)
	genre, isbn := deref(b.Genre), deref(b.ISBN)
	return types.BookPatch{
		Title:  &b.Title,
		Author: &b.Author,
		Year:   b.Year,
		Genre:  &genre,
		ISBN:   &isbn,
		Pages:  b.Pages,
		Tags:   &tags,
		Quotes: &quotes,
	}
}

// sameBook reports whether a row carrying cur's id describes cur rather
// than an unrelated book from another catalog.
func sameBook(cur, row types.Book) bool {
	return fold(cur.Title) == fold(row.Title) || fold(cur.Author) == fold(row.Author)
}

func replaceBook(books []types.Book, b types.Book) {
	for i := range books {
		if books[i].ID == b.ID {
			books[i] = b
			return
		}
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
