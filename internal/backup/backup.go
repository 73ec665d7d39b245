// Package backup snapshots files before they are mutated and can later
// revert the run or finalize it. The append-only backup log is the source of
// truth: an interrupted run leaves a log whose entries are all valid.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrNoLog is returned by Revert and Accept when no backup log exists.
var ErrNoLog = errors.New("backup log does not exist")

// Manager copies a file to a sibling backup artifact the first time it is
// about to be mutated. In dry-run mode every write-level action is skipped.
type Manager struct {
	LogPath string
	Suffix  string
	DryRun  bool

	log *zap.Logger
}

// NewManager returns a backup manager writing artifacts as <file><suffix>
// and recording originals in the log at logPath.
func NewManager(logPath, suffix string, dryRun bool, log *zap.Logger) *Manager {
	return &Manager{LogPath: logPath, Suffix: suffix, DryRun: dryRun, log: log}
}

// Backup snapshots path unless an artifact already exists (at most one
// backup per file per run). The original path is appended to the log before
// the copy so revert can always find it. A source that vanished between scan
// and backup is reported as an error; the caller skips the file and the run
// continues.
func (m *Manager) Backup(path string) error {
	artifact := path + m.Suffix
	if _, err := os.Stat(artifact); err == nil {
		m.log.Warn("backup artifact already exists, not backing up",
			zap.String("file", path))
		return nil
	}
	if m.DryRun {
		m.log.Debug("dry run: skipping backup", zap.String("file", path))
		return nil
	}

	if err := m.appendLog(path); err != nil {
		return err
	}
	if err := copyFile(path, artifact); err != nil {
		m.log.Error("backup failed", zap.String("file", path), zap.Error(err))
		return fmt.Errorf("backup %s: %w", path, err)
	}
	m.log.Debug("backup successful", zap.String("file", path))
	return nil
}

// Revert moves every backup artifact back over its original. A missing
// artifact is recorded and the remaining files are still processed; in that
// case the log is preserved for inspection and an error is returned. A fully
// clean revert removes the log.
func (m *Manager) Revert() error {
	files, err := m.readLog()
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		artifact := file + m.Suffix
		if err := os.Rename(artifact, file); err != nil {
			m.log.Error("reversion failed, backup artifact not found",
				zap.String("file", file), zap.Error(err))
			failed++
			continue
		}
		m.log.Debug("reversion successful", zap.String("file", file))
	}

	if failed > 0 {
		return fmt.Errorf("revert: %d of %d backup artifacts could not be restored, backup log preserved", failed, len(files))
	}
	return os.Remove(m.LogPath)
}

// Accept finalizes the run by deleting every backup artifact. On any failure
// the log is preserved and an error is returned.
func (m *Manager) Accept() error {
	files, err := m.readLog()
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		artifact := file + m.Suffix
		if err := os.Remove(artifact); err != nil {
			m.log.Error("backup artifact deletion failed",
				zap.String("file", file), zap.Error(err))
			failed++
			continue
		}
		m.log.Debug("backup artifact removed", zap.String("file", file))
	}

	if failed > 0 {
		return fmt.Errorf("accept: %d of %d backup artifacts could not be deleted, backup log preserved", failed, len(files))
	}
	return os.Remove(m.LogPath)
}

func (m *Manager) appendLog(path string) error {
	f, err := os.OpenFile(m.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open backup log: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, path); err != nil {
		return fmt.Errorf("append backup log: %w", err)
	}
	return nil
}

func (m *Manager) readLog() ([]string, error) {
	data, err := os.ReadFile(m.LogPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoLog
		}
		return nil, fmt.Errorf("read backup log: %w", err)
	}
	var files []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
