// Command phaeton cleans delimited files with a declarative step pipeline.
//
//	phaeton run pipeline.yaml        # clean a file, write clean + quarantine sinks
//	phaeton peek pipeline.yaml       # preview transformed rows, write nothing
//	phaeton head data.csv -n 5       # print raw leading rows
//	phaeton probe data.csv           # sniff encoding, delimiter, header
//	phaeton validate pipeline.yaml   # lint the pipeline and compile it
//	phaeton history --ledger-dsn runs.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Metrics backends and ledger backends register themselves; the pipeline
	// file picks which one is used.
	_ "phaeton/internal/metrics/datadog"
	_ "phaeton/internal/metrics/prompush"
	_ "phaeton/internal/storage/all"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	verbose bool
	logger  = zap.NewNop()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phaeton",
		Short:         "Configurable tabular-data cleaning pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newRunCmd(),
		newPeekCmd(),
		newHeadCmd(),
		newProbeCmd(),
		newValidateCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "phaeton: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "phaeton", version)
		},
	}
}
