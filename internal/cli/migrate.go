package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/internal/migrate"
	"github.com/mesh-intelligence/booklib/pkg/booklib"
	"github.com/mesh-intelligence/booklib/pkg/types"
)

const (
	defaultMigrateSrc = "library.json"
	defaultMigrateDst = "library.db"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		src, dst      string
		allowNonEmpty bool
	)
	cmd := &cobra.Command{
		Use:   "migrate-sqlite",
		Short: "Copy a JSON catalog into a SQLite database",
		Long: `Migrate-sqlite copies every book from a JSON catalog into a SQLite
database. The database assigns new ids. By default the destination must be
empty; --allow-nonempty appends, which duplicates books on a second run.

Without --src the configured catalog is used when it is a JSON file.

Example:
  booklib migrate-sqlite --src library.json --dst library.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src == "" {
				src = defaultMigrateSrc
				if p, err := a.dbPath(); err == nil {
					if kind, err := booklib.KindForPath(p); err == nil && kind == types.BackendJSON {
						src = p
					}
				}
			}

			rep, err := migrate.MigrateFiles(src, dst, migrate.Options{RequireEmpty: !allowNonEmpty})
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"run_id":      rep.RunID,
					"source":      rep.Source,
					"destination": rep.Destination,
					"total":       rep.Total,
					"migrated":    rep.Migrated,
					"id_map":      rep.IDMap,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d of %d book(s) from %s to %s\n", rep.Migrated, rep.Total, rep.Source, rep.Destination)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&src, "src", "", "source JSON catalog (default: configured catalog or library.json)")
	f.StringVar(&dst, "dst", defaultMigrateDst, "destination SQLite database")
	f.BoolVar(&allowNonEmpty, "allow-nonempty", false, "allow writing into a database that already holds books")
	return cmd
}
