package main

import (
	"fmt"

	"github.com/spf13/cobra"

	typeart "github.com/wippyai/typeart-runtime"
	"github.com/wippyai/typeart-runtime/typedb"
)

// VersionCmd prints the tool version and the catalog format it reads.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "typeart %s (catalog format %s)\n", typeart.Version, typedb.SupportedMajor)
	},
}
