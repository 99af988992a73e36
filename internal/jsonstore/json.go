package jsonstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// documentVersion is written to every document this package produces.
const documentVersion = 1

// documentJSON is the on-disk layout of a catalog file.
type documentJSON struct {
	Version int        `json:"version"`
	NextID  int64      `json:"next_id"`
	Books   []bookJSON `json:"books"`
}

// bookJSON is one record. ID stays raw so that legacy files with string or
// missing ids can be read.
type bookJSON struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Title   string          `json:"title"`
	Author  string          `json:"author"`
	Year    *int            `json:"year"`
	Genre   *string         `json:"genre"`
	ISBN    *string         `json:"isbn"`
	Pages   *int            `json:"pages"`
	Tags    []string        `json:"tags"`
	Quotes  []string        `json:"quotes"`
	AddedAt string          `json:"added_at,omitempty"`
}

func toJSON(b types.Book) bookJSON {
	tags, quotes := b.Tags, b.Quotes
	if tags == nil {
		tags = []string{}
	}
	if quotes == nil {
		quotes = []string{}
	}
	return bookJSON{
		ID:      json.RawMessage(strconv.FormatInt(b.ID, 10)),
		Title:   b.Title,
		Author:  b.Author,
		Year:    b.Year,
		Genre:   b.Genre,
		ISBN:    b.ISBN,
		Pages:   b.Pages,
		Tags:    tags,
		Quotes:  quotes,
		AddedAt: b.AddedAt.UTC().Format(time.RFC3339),
	}
}

// fromJSON converts a record without its id. The caller assigns the id.
func fromJSON(r bookJSON) (types.Book, error) {
	b := types.Book{
		Title:  r.Title,
		Author: r.Author,
		Year:   r.Year,
		Genre:  r.Genre,
		ISBN:   r.ISBN,
		Pages:  r.Pages,
		Tags:   r.Tags,
		Quotes: r.Quotes,
	}
	if r.AddedAt != "" {
		t, err := time.Parse(time.RFC3339, r.AddedAt)
		if err != nil {
			return types.Book{}, fmt.Errorf("added_at %q: %w", r.AddedAt, err)
		}
		b.AddedAt = t
	}
	return b.Normalize(), nil
}

// parseID reads an integer id. ok is false when the id is absent, null or
// not an integer.
func parseID(raw json.RawMessage) (id int64, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, false
	}
	return id, true
}
