// Package merge combines per-user content from multiple source systems into
// a single output tree. Stanza files merge key by key, search history
// concatenates, and binary-ish content (lookups, dashboards) is copied with
// an origin suffix when two systems ship the same file name.
package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"komigrate/internal/bundle"
	"komigrate/internal/classify"
	"komigrate/internal/stanza"
)

// OutputDirName is the root of the merged tree, created under the
// destination directory.
const OutputDirName = "merged_user_content"

// Summary counts what a merge run produced.
type Summary struct {
	FilesWritten int
	Collisions   int
	Renamed      int
	Skipped      int
}

// Merger writes the combined output tree for a set of enumerated source
// files.
type Merger struct {
	outDir string
	log    *zap.Logger

	summary  Summary
	collided *fileCollisions
	renamed  *renameLog
}

func New(destDir string, log *zap.Logger) *Merger {
	return &Merger{
		outDir:   filepath.Join(destDir, OutputDirName),
		log:      log,
		collided: newFileCollisions(),
		renamed:  newRenameLog(),
	}
}

// Run merges files in source order. Files sharing an identity key are
// combined; the first source a key appears in decides default values and
// the ordinal labels of later sources.
func (m *Merger) Run(files []bundle.File) (Summary, error) {
	keys, groups := groupByKey(files)

	for _, key := range keys {
		group := groups[key]
		var err error
		switch group[0].Class {
		case classify.MergeStanza:
			err = m.mergeStanza(key, group)
		case classify.MergeHistory:
			err = m.mergeHistory(key, group)
		case classify.MergeRename:
			err = m.copyRenaming(key, group)
		}
		if err != nil {
			return m.summary, err
		}
	}

	if err := m.ensureHistoryDirs(keys); err != nil {
		return m.summary, err
	}
	if err := m.writeReports(); err != nil {
		return m.summary, err
	}
	return m.summary, nil
}

// groupByKey buckets files by identity key, preserving first-seen key order
// and the source order within each bucket.
func groupByKey(files []bundle.File) ([]classify.Key, map[classify.Key][]bundle.File) {
	var keys []classify.Key
	groups := make(map[classify.Key][]bundle.File)
	for _, f := range files {
		if _, ok := groups[f.Key]; !ok {
			keys = append(keys, f.Key)
		}
		groups[f.Key] = append(groups[f.Key], f)
	}
	return keys, groups
}

func (m *Merger) mergeStanza(key classify.Key, group []bundle.File) error {
	docs := make([]*stanza.Document, 0, len(group))
	for _, f := range group {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			m.log.Warn("unreadable source file, skipping",
				zap.String("file", f.Path), zap.Error(err))
			m.summary.Skipped++
			continue
		}
		doc := stanza.Parse(string(data))
		if doc.Skipped > 0 {
			m.log.Warn("skipped malformed blocks",
				zap.String("file", f.Path), zap.Int("blocks", doc.Skipped))
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil
	}

	merged, collisions := stanza.Merge(docs)
	rel := key.Path()
	for _, c := range collisions {
		m.collided.add(rel, c)
	}
	m.summary.Collisions += len(collisions)

	return m.writeOut(rel, stanza.Serialize(merged)+"\n")
}

func (m *Merger) mergeHistory(key classify.Key, group []bundle.File) error {
	var parts []string
	for _, f := range group {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			m.log.Warn("unreadable source file, skipping",
				zap.String("file", f.Path), zap.Error(err))
			m.summary.Skipped++
			continue
		}
		parts = append(parts, strings.TrimRight(string(data), "\n"))
	}
	if len(parts) == 0 {
		return nil
	}
	rel := filepath.Join(key.Path(), "history.csv")
	return m.writeOut(rel, strings.Join(parts, "\n\n")+"\n")
}

func (m *Merger) copyRenaming(key classify.Key, group []bundle.File) error {
	origins := make(map[string]bool)
	for _, f := range group {
		origins[f.Origin] = true
	}
	suffix := len(origins) >= 2

	for _, f := range group {
		rel := key.Path()
		if suffix {
			renamed := key.Filename + "__" + f.Origin
			rel = filepath.Join(filepath.Dir(rel), renamed)
			m.renamed.add(key.User, key.Filename, renamed)
			m.summary.Renamed++
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			m.log.Warn("unreadable source file, skipping",
				zap.String("file", f.Path), zap.Error(err))
			m.summary.Skipped++
			continue
		}
		if err := m.writeOut(rel, string(data)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) writeOut(rel, content string) error {
	dest := filepath.Join(m.outDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating output directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	m.summary.FilesWritten++
	m.log.Debug("wrote merged file", zap.String("file", rel))
	return nil
}

// ensureHistoryDirs gives every merged user/app context a history directory
// so the target system's search history lands next to the migrated content.
// The user_prefs app never carries history.
func (m *Merger) ensureHistoryDirs(keys []classify.Key) error {
	seen := make(map[string]bool)
	for _, key := range keys {
		if key.App == "user_prefs" {
			continue
		}
		dir := filepath.Join(m.outDir, "users", key.User, key.App, "history")
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating history directory for %s/%s: %w", key.User, key.App, err)
		}
	}
	return nil
}
