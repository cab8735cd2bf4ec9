package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"phaeton/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var suggest string
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Detect encoding, delimiter and header of a delimited file",
		Long: `Samples the first 8 KiB of the file and reports its encoding, delimiter,
header row and a best-effort type per column.

With --suggest, prints a starter pipeline instead (json or yaml) that trims
every column and casts the columns with a numeric or boolean type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := probe.Detect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch suggest {
			case "":
				return writeJSON(cmd.OutOrStdout(), m)
			case "json":
				return writeJSON(cmd.OutOrStdout(), probe.Suggest(args[0], m))
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(probe.Suggest(args[0], m)); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown --suggest format %q (json or yaml)", suggest)
			}
		},
	}
	cmd.Flags().StringVar(&suggest, "suggest", "", "print a starter pipeline as json or yaml")
	return cmd
}
