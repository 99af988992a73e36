package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/booklib/pkg/booklib"
)

const modulePath = "github.com/mesh-intelligence/booklib"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the booklib version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "booklib v%s\nmodule: %s\n", booklib.Version, modulePath)
			return nil
		},
	}
}
