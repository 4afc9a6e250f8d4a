package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/typeart-runtime/catalog"
	"github.com/wippyai/typeart-runtime/errors"
)

var (
	exportFormat string
	exportOut    string
)

// ExportCmd converts a catalog to one of the writable formats.
var ExportCmd = &cobra.Command{
	Use:   "export <catalog>",
	Short: "Convert a catalog to another format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, ok := catalog.Lookup(exportFormat)
		if !ok {
			return errors.Unsupported(errors.PhaseConfig, "format "+exportFormat)
		}
		enc, ok := f.(catalog.Encoder)
		if !ok {
			return errors.Unsupported(errors.PhaseConfig, "writing format "+exportFormat)
		}

		rt, err := openRuntime(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer rt.Close()
		set := catalog.FromCatalog(rt.Database().Snapshot())

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			fh, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer fh.Close()
			w = fh
		}
		return enc.Encode(w, set)
	},
}

func init() {
	ExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml",
		fmt.Sprintf("output format (%s)", strings.Join(catalog.Formats(), ", ")))
	ExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}
