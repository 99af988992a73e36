package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/internal/atomicfile"
	"github.com/mesh-intelligence/booklib/internal/catalog"
)

func newExportCSVCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv <path>",
		Short: "Export the catalog to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var n int
			err = atomicfile.Write(args[0], func(w io.Writer) error {
				var err error
				n, err = catalog.ExportCSV(store, w)
				return err
			})
			if err != nil {
				return fmt.Errorf("export csv: %w", err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"exported": n, "path": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d book(s) to %s\n", n, args[0])
			return nil
		},
	}
}

func newImportCSVCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-csv <path>",
		Short: "Import books from a CSV file",
		Long: `Import-csv merges a CSV file into the catalog. A row whose id matches a
stored book with the same title or author updates that book. Ids belong to
one catalog, so a row from another catalog whose id clashes with an
unrelated book is added instead. Rows that duplicate a stored book are
skipped, and the rest are added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return userErrorf("csv file %s does not exist", args[0])
				}
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := catalog.ImportCSV(store, f)
			if err != nil {
				return fmt.Errorf("import csv: %w", err)
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]int{
					"created": res.Created,
					"updated": res.Updated,
					"skipped": res.Skipped,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, updated %d, skipped %d duplicate(s)\n", res.Created, res.Updated, res.Skipped)
			return nil
		},
	}
}
