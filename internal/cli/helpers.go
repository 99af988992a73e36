package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mesh-intelligence/booklib/pkg/types"
)

// parseID reads a book id argument. Surrounding brackets are ignored.
func parseID(s string) (int64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]{}()#")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userErrorf("invalid book id %q", s)
	}
	return id, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printBookTable prints books in a human-readable table format.
func printBookTable(w io.Writer, books []types.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR\tGENRE\tTAGS")
	fmt.Fprintln(tw, "--\t-----\t------\t----\t-----\t----")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID,
			truncate(b.Title, 40),
			truncate(b.Author, 28),
			intOrBlank(b.Year),
			truncate(strOrBlank(b.Genre), 16),
			truncate(strings.Join(b.Tags, ", "), 30),
		)
	}
	tw.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(w, "Total: %d book(s)\n", len(books))
}

// printBook prints one book with all fields and numbered quotes.
func printBook(w io.Writer, b types.Book) {
	fmt.Fprintf(w, "ID:      %d\n", b.ID)
	fmt.Fprintf(w, "Title:   %s\n", b.Title)
	fmt.Fprintf(w, "Author:  %s\n", b.Author)
	fmt.Fprintf(w, "Year:    %s\n", orDash(intOrBlank(b.Year)))
	fmt.Fprintf(w, "Genre:   %s\n", orDash(strOrBlank(b.Genre)))
	fmt.Fprintf(w, "Tags:    %s\n", orDash(strings.Join(b.Tags, ", ")))
	fmt.Fprintf(w, "ISBN:    %s\n", orDash(strOrBlank(b.ISBN)))
	fmt.Fprintf(w, "Pages:   %s\n", orDash(intOrBlank(b.Pages)))
	fmt.Fprintf(w, "Added:   %s\n", b.AddedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintln(w, "Quotes:")
	if len(b.Quotes) == 0 {
		fmt.Fprintln(w, "  -")
		return
	}
	for i, q := range b.Quotes {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, q)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func intOrBlank(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strOrBlank(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
