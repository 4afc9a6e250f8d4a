package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wippyai/typeart-runtime/errors"
	"github.com/wippyai/typeart-runtime/ids"
	"github.com/wippyai/typeart-runtime/query"
	"github.com/wippyai/typeart-runtime/typedb"
)

// DescribeCmd prints one type and its flattened layout.
var DescribeCmd = &cobra.Command{
	Use:   "describe <catalog> <id|name>",
	Short: "Print the layout of one type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()

		cat := rt.Database().Snapshot()
		id, err := parseType(cat, args[1])
		if err != nil {
			return err
		}
		slots, err := rt.Engine().Layout(id)
		if err != nil {
			return err
		}
		d := cat.Lookup(id)
		fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, %s, %d bytes%s)\n", d.Name, int32(d.ID), d.Kind, d.Size, flagSuffix(d.Flags))
		return writeLayout(cmd.OutOrStdout(), cat, slots)
	},
}

// parseType accepts a numeric type id or a type name.
func parseType(cat *typedb.Catalog, s string) (ids.TypeID, error) {
	if n, err := strconv.ParseInt(s, 0, 32); err == nil {
		id := ids.TypeID(n)
		if cat.Lookup(id) == nil {
			return ids.InvalidType, errors.UnknownType(errors.PhaseQuery, s)
		}
		return id, nil
	}
	id, ok := cat.ByName(s)
	if !ok {
		return ids.InvalidType, errors.UnknownType(errors.PhaseQuery, s)
	}
	return id, nil
}

func flagSuffix(f typedb.Flag) string {
	var parts []string
	if f.Has(typedb.FlagUserDefined) {
		parts = append(parts, "user-defined")
	}
	if f.Has(typedb.FlagVector) {
		parts = append(parts, "vector")
	}
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

func writeLayout(w io.Writer, cat *typedb.Catalog, slots []query.Slot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OFFSET\tSIZE\tCOUNT\tTYPE\tPATH")
	for _, s := range slots[1:] {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s%s\n",
			s.Offset, s.Size, s.Count, cat.Name(s.Type), strings.Repeat("  ", s.Depth-1), lastSegment(s.Path))
	}
	return tw.Flush()
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}
