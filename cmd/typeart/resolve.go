package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/typeart-runtime/tracker"
)

const resolveBase = 0x10000

var (
	resolveType   string
	resolveCount  uint64
	resolveOffset uint64
)

// ResolveCmd records a single allocation and resolves an offset inside it.
var ResolveCmd = &cobra.Command{
	Use:   "resolve <catalog>",
	Short: "Resolve an offset inside an allocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()

		cat := rt.Database().Snapshot()
		id, err := parseType(cat, resolveType)
		if err != nil {
			return err
		}
		rt.Record(tracker.Allocation{Base: resolveBase, Type: id, Count: resolveCount})

		res, err := rt.ResolveOffset(resolveBase, resolveOffset)
		if err != nil {
			return err
		}
		path := strings.Join(res.Path, ".")
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "offset %d: %s (id %d) path %s, element %d, %d remaining\n",
			resolveOffset, cat.Name(res.Type), int32(res.Type), path, res.Index, res.Count)
		return nil
	},
}

func init() {
	ResolveCmd.Flags().StringVarP(&resolveType, "type", "t", "", "allocated type id or name")
	ResolveCmd.Flags().Uint64VarP(&resolveCount, "count", "n", 1, "number of elements allocated")
	ResolveCmd.Flags().Uint64VarP(&resolveOffset, "offset", "o", 0, "byte offset to resolve")
	_ = ResolveCmd.MarkFlagRequired("type")
}
