package main

import (
	"io"

	"github.com/spf13/cobra"

	"phaeton/internal/config"
	"phaeton/internal/engine"
	csvparser "phaeton/internal/parser/csv"
)

func newPeekCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "peek <pipeline.(json|yaml)>",
		Short: "Show the first kept rows after all steps, without writing files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			pv, err := engine.New(p.Runtime, logger).Peek(cmd.Context(), p.Source, p.Steps, limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), pv.Maps())
			}
			return writePreview(cmd.OutOrStdout(), pv)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum kept rows to show (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON objects")
	return cmd
}

func newHeadCmd() *cobra.Command {
	var (
		n   int
		src config.Source
	)
	cmd := &cobra.Command{
		Use:   "head <file>",
		Short: "Print the header and first raw rows of a delimited file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src.Path = args[0]
			pv, err := (&engine.Engine{Log: logger}).Head(cmd.Context(), src, n)
			if err != nil {
				return err
			}
			return writePreview(cmd.OutOrStdout(), pv)
		},
	}
	cmd.Flags().IntVarP(&n, "rows", "n", 10, "number of rows")
	cmd.Flags().StringVar(&src.Comma, "comma", ",", "field delimiter")
	cmd.Flags().StringVar(&src.Encoding, "encoding", "", "source encoding (default utf-8)")
	return cmd
}

// writePreview prints pv as comma-separated text.
func writePreview(w io.Writer, pv engine.Preview) error {
	cw := csvparser.NewWriter(w, ',')
	if err := cw.WriteHeader(pv.Header); err != nil {
		return err
	}
	for _, r := range pv.Rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	return cw.Flush()
}
