package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/internal/catalog"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		title, author, genre, isbn string
		year, pages                int
		tags                       []string
		allowDup                   bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Long: `Add stores a new book. A book with the same ISBN, or the same title,
author and year as an existing one, is reported as a duplicate and not
added unless --allow-duplicate is given.

Example:
  booklib add -t "Dune" -a "Frank Herbert" --year 1965 --tags sf,classic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts := []types.BookOption{
				types.WithGenre(genre),
				types.WithISBN(isbn),
				types.WithTags(catalog.DedupeTags(tags)...),
			}
			if flags.Changed("year") {
				opts = append(opts, types.WithYear(year))
			}
			if flags.Changed("pages") {
				opts = append(opts, types.WithPages(pages))
			}
			book, err := types.NewBook(title, author, opts...)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := catalog.AddBook(store, book, allowDup)
			var dup *types.DuplicateError
			if errors.As(err, &dup) {
				return fmt.Errorf("%w (use --allow-duplicate to add anyway)", err)
			}
			if err != nil {
				return fmt.Errorf("add book: %w", err)
			}

			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book %d: %s (%s)\n", created.ID, created.Title, created.Author)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "book title (required)")
	f.StringVarP(&author, "author", "a", "", "book author (required)")
	f.IntVar(&year, "year", 0, "publication year")
	f.StringVar(&genre, "genre", "", "genre")
	f.StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	f.StringVar(&isbn, "isbn", "", "ISBN")
	f.IntVar(&pages, "pages", 0, "page count")
	f.BoolVar(&allowDup, "allow-duplicate", false, "add even if a matching book exists")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		filter types.Filter
		year   int
		order  catalog.SortOrder
		limit  int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"find"},
		Short:   "List books with optional filters and sorting",
		Long: `List prints the books in the catalog. Text filters match case-insensitive
substrings unless --exact is given.

Example:
  booklib list
  booklib list --author herbert --by year --desc
  booklib list --tag sf --limit 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("year") {
				filter.Year = &year
			}
			if limit < 0 {
				return userErrorf("--limit must not be negative")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			books, err := store.List(filter)
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}
			if cmd.Flags().Changed("by") || order.Secondary != "" || order.Desc {
				catalog.Sort(books, order)
			}
			if limit > 0 && len(books) > limit {
				books = books[:limit]
			}

			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), books)
			}
			printBookTable(cmd.OutOrStdout(), books)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&filter.Query, "query", "q", "", "match title or author")
	f.StringVar(&filter.Title, "title", "", "filter by title")
	f.StringVar(&filter.Author, "author", "", "filter by author")
	f.IntVar(&year, "year", 0, "filter by publication year")
	f.StringVar(&filter.Genre, "genre", "", "filter by genre")
	f.StringVar(&filter.Tag, "tag", "", "filter by tag")
	f.StringVar(&filter.ISBN, "isbn", "", "filter by ISBN")
	f.BoolVar(&filter.Exact, "exact", false, "require exact matches instead of substrings")
	f.StringVar(&order.By, "by", catalog.SortTitle, "sort key: title, author, year, genre, added_at")
	f.StringVar(&order.Secondary, "secondary", "", "secondary sort key")
	f.BoolVar(&order.Desc, "desc", false, "sort in descending order")
	f.IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a book with full details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := store.Get(id)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), book)
			}
			printBook(cmd.OutOrStdout(), book)
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		title, author, genre, isbn string
		year, pages                int
		tags                       []string
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a book",
		Long: `Update changes only the fields given as flags. --tags replaces the whole
tag list.

Example:
  booklib update 3 --genre "science fiction" --pages 412`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var p types.BookPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("author") {
				p.Author = &author
			}
			if flags.Changed("year") {
				p.Year = &year
			}
			if flags.Changed("genre") {
				p.Genre = &genre
			}
			if flags.Changed("isbn") {
				p.ISBN = &isbn
			}
			if flags.Changed("pages") {
				p.Pages = &pages
			}
			if flags.Changed("tags") {
				deduped := catalog.DedupeTags(tags)
				p.Tags = &deduped
			}
			if p.IsEmpty() {
				return userErrorf("nothing to update; pass at least one field flag")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			updated, err := store.Update(id, p)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated book %d\n", updated.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "new title")
	f.StringVarP(&author, "author", "a", "", "new author")
	f.IntVar(&year, "year", 0, "new publication year")
	f.StringVar(&genre, "genre", "", "new genre (empty clears it)")
	f.StringSliceVar(&tags, "tags", nil, "new comma-separated tag list")
	f.StringVar(&isbn, "isbn", "", "new ISBN (empty clears it)")
	f.IntVar(&pages, "pages", 0, "new page count")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a book",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(id); err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed book %d\n", id)
			return nil
		},
	}
}
