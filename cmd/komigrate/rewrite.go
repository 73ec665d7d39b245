package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"komigrate/internal/backup"
	"komigrate/internal/classify"
	"komigrate/internal/mapping"
	"komigrate/internal/report"
	"komigrate/internal/rewrite"
)

var (
	rwTarget        string
	rwInstance      string
	rwIndexMap      string
	rwSourcetypeMap string
	rwStage         int
	rwManagedDir    string
	rwExecute       bool
)

// rewriteCmd rewrites identifier references in configuration files
var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite renamed index and sourcetype references under a target directory",
	Long: `Scans the configuration directories appropriate for the given instance
role and rewrites references to renamed indexes and sourcetypes. Search-type
content gets an inclusive old-OR-new disjunction; data-collection and
indexing descriptors are rewritten in place when the rename is one-to-one
and flagged for manual review otherwise.

Stage 1 covers search-time content, stage 2 covers collection and indexing
descriptors. Without --execute nothing is written.`,
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().StringVar(&rwTarget, "target", "", "installation directory to scan")
	rewriteCmd.Flags().StringVar(&rwInstance, "instance", "OTHER",
		"instance role, one of "+strings.Join(classify.Instances(), "|"))
	rewriteCmd.Flags().StringVar(&rwIndexMap, "index-map", "", "CSV mapping old index names to replacements")
	rewriteCmd.Flags().StringVar(&rwSourcetypeMap, "sourcetype-map", "", "CSV mapping old sourcetype names to replacements")
	rewriteCmd.Flags().IntVar(&rwStage, "stage", 1, "1 = search-time content, 2 = collection and indexing descriptors")
	rewriteCmd.Flags().StringVar(&rwManagedDir, "managed-directory", "",
		"directory an external deployment controller manages on this host, one of "+strings.Join(classify.ManagedDirectories(), "|"))
	rewriteCmd.Flags().BoolVar(&rwExecute, "execute", false, "apply changes instead of reporting them")
	_ = rewriteCmd.MarkFlagRequired("target")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	maps, err := loadRefMaps(rwIndexMap, rwSourcetypeMap)
	if err != nil {
		return err
	}
	if !slices.Contains(classify.Instances(), rwInstance) {
		return fmt.Errorf("unknown instance %q, expected one of %s",
			rwInstance, strings.Join(classify.Instances(), "|"))
	}
	if rwManagedDir != "" && !slices.Contains(classify.ManagedDirectories(), rwManagedDir) {
		return fmt.Errorf("unknown managed directory %q, expected one of %s",
			rwManagedDir, strings.Join(classify.ManagedDirectories(), "|"))
	}
	var stage rewrite.Stage
	switch rwStage {
	case 1:
		stage = rewrite.StageSearch
	case 2:
		stage = rewrite.StageCollection
	default:
		return fmt.Errorf("stage must be 1 or 2, got %d", rwStage)
	}

	if rwExecute {
		if err := confirmProductionTarget(rwTarget); err != nil {
			return err
		}
	}

	review := report.NewReview()
	engine := rewrite.NewEngine(maps, review, logger)
	backups := backup.NewManager(cfg.Backup.LogFile, cfg.Backup.Suffix, !rwExecute, logger)
	walker := rewrite.NewWalker(engine, backups, stage, !rwExecute, logger)

	roots := classify.SearchRoots(rwTarget, classify.Instance(rwInstance), rwManagedDir)
	if err := walker.Run(roots); err != nil {
		return err
	}

	if !review.Empty() {
		if err := review.Flush(cfg.Reports.ReviewLog); err != nil {
			return err
		}
		logger.Warn("manual review required",
			zap.Int("entries", review.Len()),
			zap.String("log", cfg.Reports.ReviewLog))
	}
	stats := walker.Stats()
	logger.Info("rewrite complete",
		zap.Bool("dry_run", !rwExecute),
		zap.Int("scanned", stats.Scanned),
		zap.Int("rewritten", stats.Rewritten),
		zap.Int("skipped", stats.Skipped))
	return nil
}

func loadRefMaps(indexPath, sourcetypePath string) ([]*mapping.RefMap, error) {
	if indexPath == "" && sourcetypePath == "" {
		return nil, fmt.Errorf("at least one of --index-map or --sourcetype-map is required")
	}
	var maps []*mapping.RefMap
	if indexPath != "" {
		m, err := mapping.LoadRefMap(indexPath, mapping.FieldIndex)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	if sourcetypePath != "" {
		m, err := mapping.LoadRefMap(sourcetypePath, mapping.FieldSourcetype)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// confirmProductionTarget requires an interactive confirmation before
// executing against the live installation directory.
func confirmProductionTarget(target string) error {
	home := os.Getenv("SPLUNK_HOME")
	if home == "" {
		home = "/opt/splunk"
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if filepath.Clean(abs) != filepath.Clean(home) {
		return nil
	}

	fmt.Printf("Target %s is the live installation. Type 'yes' to continue: ", abs)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if strings.TrimSpace(line) != "yes" {
		return fmt.Errorf("aborted by user")
	}
	return nil
}
