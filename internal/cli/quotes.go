package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/internal/catalog"
)

func newAddQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-quote <id> <text>",
		Short: "Attach a quote to a book",
		Long: `Add-quote appends a quote to a book. A quote that matches an existing one
ignoring case and spacing is rejected.

Example:
  booklib add-quote 3 "Fear is the mind-killer."`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			updated, err := catalog.AddQuote(store, id, text)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added quote %d to book %d\n", len(updated.Quotes), id)
			return nil
		},
	}
}

func newDelQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "del-quote <id> <index>",
		Short: "Remove a quote from a book by its 1-based index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return userErrorf("invalid quote index %q", args[1])
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, updated, err := catalog.DeleteQuote(store, id, index)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed quote: %s\n", removed)
			return nil
		},
	}
}
