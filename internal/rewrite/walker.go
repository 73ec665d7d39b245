package rewrite

import (
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"komigrate/internal/backup"
	"komigrate/internal/classify"
)

// Stage selects which descriptor tiers a pass touches. Search-tier content
// is rewritten first so dashboards and alerts survive the window where
// collection-tier descriptors still emit to the old identifiers.
type Stage int

const (
	// StageSearch covers search-time artifacts plus the descriptors that
	// only ever reach manual review.
	StageSearch Stage = iota + 1

	// StageCollection covers data-collection and index-time descriptors.
	StageCollection
)

func (s Stage) includes(role classify.Role) bool {
	switch s {
	case StageSearch:
		return role == classify.RoleSearch || role == classify.RoleMisc
	case StageCollection:
		return role == classify.RoleInput || role == classify.RoleTransform
	}
	return false
}

// Change is an intended file mutation. Deciding what to write and writing
// it are separate steps so a dry run exercises the full decision path.
type Change struct {
	Path string
	Text string
	Mode fs.FileMode
}

// Stats counts walker outcomes for the end-of-run summary.
type Stats struct {
	Scanned   int
	Rewritten int
	Skipped   int
}

// Walker feeds eligible files under a set of roots through an Engine and
// applies the resulting changes, backing each file up first.
type Walker struct {
	engine  *Engine
	backups *backup.Manager
	stage   Stage
	dryRun  bool
	log     *zap.Logger

	stats Stats
}

func NewWalker(engine *Engine, backups *backup.Manager, stage Stage, dryRun bool, log *zap.Logger) *Walker {
	return &Walker{engine: engine, backups: backups, stage: stage, dryRun: dryRun, log: log}
}

// Stats returns the counters accumulated so far.
func (w *Walker) Stats() Stats { return w.stats }

// Run walks every root in order. Roots that do not exist on this instance
// are skipped; any other traversal error aborts the run.
func (w *Walker) Run(roots []string) error {
	for _, root := range roots {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			w.log.Debug("root not present on this instance", zap.String("root", root))
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			w.visit(path)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// visit rewrites a single file. Per-file failures are logged and counted
// but never abort the walk.
func (w *Walker) visit(path string) {
	role := classify.FileRole(path)
	if !w.stage.includes(role) {
		return
	}
	w.stats.Scanned++

	info, err := os.Stat(path)
	if err != nil {
		w.log.Warn("cannot stat file, skipping", zap.String("file", path), zap.Error(err))
		w.stats.Skipped++
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("cannot read file, skipping", zap.String("file", path), zap.Error(err))
		w.stats.Skipped++
		return
	}

	res := w.engine.Rewrite(string(data), role, path)
	if res.Invalid {
		w.stats.Skipped++
		return
	}
	if !res.Changed {
		return
	}
	w.apply(Change{Path: path, Text: res.Text, Mode: info.Mode()})
}

func (w *Walker) apply(c Change) {
	if w.dryRun {
		w.log.Info("dry run: would rewrite", zap.String("file", c.Path))
		w.stats.Rewritten++
		return
	}
	if err := w.backups.Backup(c.Path); err != nil {
		w.log.Warn("backup failed, leaving file untouched",
			zap.String("file", c.Path), zap.Error(err))
		w.stats.Skipped++
		return
	}
	if err := os.WriteFile(c.Path, []byte(c.Text), c.Mode); err != nil {
		w.log.Error("write failed after backup",
			zap.String("file", c.Path), zap.Error(err))
		w.stats.Skipped++
		return
	}
	w.stats.Rewritten++
}
