package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"komigrate/internal/config"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Run state
	logger *zap.Logger
	cfg    *config.Config
	runID  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "komigrate",
	Short: "Merge per-user content between systems and rewrite renamed identifier references",
	Long: `komigrate consolidates per-user configuration exported from multiple
source systems into one output tree, then rewrites references to renamed
indexes and sourcetypes across configuration files, dashboards and live
knowledge objects.

All mutating commands default to a dry run; pass --execute to apply
changes. Every modified file is backed up first and can be restored with
the revert command.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		runID = uuid.NewString()
		logger = logger.With(zap.String("run_id", runID))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "komigrate.yaml", "path to the run configuration file")

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(acceptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
