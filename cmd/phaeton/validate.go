package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"phaeton/internal/config"
	"phaeton/internal/engine"
)

func newValidateCmd() *cobra.Command {
	var static bool
	cmd := &cobra.Command{
		Use:   "validate <pipeline.(json|yaml)>",
		Short: "Lint a pipeline and compile its steps against the source header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			if err := reportIssues(cmd.ErrOrStderr(), args[0], config.ValidatePipeline(p)); err != nil {
				return err
			}
			if !static {
				header, err := engine.New(p.Runtime, logger).Check(cmd.Context(), p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "output header: %s\n", strings.Join(header, ","))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&static, "static", false, "lint only; do not open the source")
	return cmd
}
