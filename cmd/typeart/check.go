package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/typeart-runtime/ids"
)

// CheckCmd loads a catalog and reports whether it is usable.
var CheckCmd = &cobra.Command{
	Use:   "check <catalog>",
	Short: "Validate a catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()

		cat := rt.Database().Snapshot()
		version := cat.Version()
		if version == "" {
			version = "unversioned"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d types, %d builtin, nesting depth %d)\n",
			args[0], version, cat.Len(), ids.NumBuiltins, cat.MaxDepth())
		return nil
	},
}
