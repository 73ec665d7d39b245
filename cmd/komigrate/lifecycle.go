package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"komigrate/internal/backup"
)

// revertCmd restores every backed-up file
var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Restore every file recorded in the backup log",
	Long: `Moves each backup artifact back over the rewritten file, in the order
the backup log recorded them. A fully clean revert removes the backup log
and the manual-review log; any failure leaves the log in place so the
revert can be retried.`,
	RunE: runRevert,
}

// acceptCmd deletes the backup artifacts, keeping the rewritten files
var acceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Accept the rewrite and delete the backup artifacts",
	Long: `Deletes every backup artifact recorded in the backup log, making the
rewritten files permanent. Any failure leaves the log in place.`,
	RunE: runAccept,
}

func runRevert(cmd *cobra.Command, args []string) error {
	m := backup.NewManager(cfg.Backup.LogFile, cfg.Backup.Suffix, false, logger)
	if err := m.Revert(); err != nil {
		if errors.Is(err, backup.ErrNoLog) {
			logger.Info("nothing to revert", zap.String("log", cfg.Backup.LogFile))
			return nil
		}
		return err
	}
	// The review entries described changes that no longer exist.
	if err := os.Remove(cfg.Reports.ReviewLog); err != nil && !os.IsNotExist(err) {
		return err
	}
	logger.Info("revert complete")
	return nil
}

func runAccept(cmd *cobra.Command, args []string) error {
	m := backup.NewManager(cfg.Backup.LogFile, cfg.Backup.Suffix, false, logger)
	if err := m.Accept(); err != nil {
		if errors.Is(err, backup.ErrNoLog) {
			logger.Info("nothing to accept", zap.String("log", cfg.Backup.LogFile))
			return nil
		}
		return err
	}
	logger.Info("accept complete")
	return nil
}
