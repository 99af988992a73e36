package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and an empty catalog",
		Long: `Init writes config.yaml to the configuration directory if it is missing
and opens the catalog once, which creates a SQLite database. A JSON catalog
file is created on the first write.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.configDir, 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}

			dbPath, err := a.dbPath()
			if err != nil {
				return err
			}
			configPath := paths.ConfigFile(a.configDir)
			wrote, err := writeConfigIfMissing(configPath, dbPath)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("finalize storage: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return writeJSON(out, map[string]any{
					"config":         configPath,
					"config_created": wrote,
					"db":             dbPath,
					"backend":        store.Kind(),
				})
			}
			if wrote {
				fmt.Fprintf(out, "Wrote %s\n", configPath)
			}
			fmt.Fprintf(out, "Catalog ready at %s (%s backend)\n", dbPath, store.Kind())
			return nil
		},
	}
}
