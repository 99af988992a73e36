package catalog

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// AddQuote appends text to the quotes of book id. Empty text is a
// validation error; a quote equal to an existing one after collapsing
// whitespace and case is rejected with types.ErrDuplicate.
func AddQuote(store types.Store, id int64, text string) (types.Book, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Book{}, &types.ValidationError{Field: "quote", Reason: "must not be empty"}
	}
	b, err := store.Get(id)
	if err != nil {
		return types.Book{}, err
	}
	key := normQuote(text)
	for _, q := range b.Quotes {
		if normQuote(q) == key {
			return types.Book{}, fmt.Errorf("%w: quote already present on book %d", types.ErrDuplicate, id)
		}
	}
	quotes := append(append([]string{}, b.Quotes...), text)
	return store.Update(id, types.BookPatch{Quotes: &quotes})
}

// DeleteQuote removes the quote at the 1-based index and returns it along
// with the updated book.
func DeleteQuote(store types.Store, id int64, index int) (string, types.Book, error) {
	b, err := store.Get(id)
	if err != nil {
		return "", types.Book{}, err
	}
	if index < 1 || index > len(b.Quotes) {
		return "", types.Book{}, fmt.Errorf("%w: %d (book %d has %d quotes)", types.ErrQuoteIndex, index, id, len(b.Quotes))
	}
	removed := b.Quotes[index-1]
	quotes := make([]string, 0, len(b.Quotes)-1)
	quotes = append(quotes, b.Quotes[:index-1]...)
	quotes = append(quotes, b.Quotes[index:]...)

	updated, err := store.Update(id, types.BookPatch{Quotes: &quotes})
	if err != nil {
		return "", types.Book{}, err
	}
	return removed, updated, nil
}

func normQuote(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
