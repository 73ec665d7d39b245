package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const suffix = ".bak.komigrate"

func newManager(t *testing.T, dryRun bool) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "backup_file_log.txt")
	return NewManager(logPath, suffix, dryRun, zap.NewNop()), dir
}

func TestBackup(t *testing.T) {
	m, dir := newManager(t, false)
	file := filepath.Join(dir, "savedsearches.conf")
	require.NoError(t, os.WriteFile(file, []byte("[s]\nk = v"), 0o644))

	require.NoError(t, m.Backup(file))

	data, err := os.ReadFile(file + suffix)
	require.NoError(t, err)
	assert.Equal(t, "[s]\nk = v", string(data))

	logData, err := os.ReadFile(m.LogPath)
	require.NoError(t, err)
	assert.Equal(t, file+"\n", string(logData))
}

func TestBackup_AtMostOncePerFile(t *testing.T) {
	m, dir := newManager(t, false)
	file := filepath.Join(dir, "macros.conf")
	require.NoError(t, os.WriteFile(file, []byte("original"), 0o644))

	require.NoError(t, m.Backup(file))

	// Mutate and back up again: the artifact must keep the original.
	require.NoError(t, os.WriteFile(file, []byte("changed"), 0o644))
	require.NoError(t, m.Backup(file))

	data, _ := os.ReadFile(file + suffix)
	assert.Equal(t, "original", string(data))

	logData, _ := os.ReadFile(m.LogPath)
	assert.Equal(t, file+"\n", string(logData), "log holds one entry per file")
}

func TestBackup_DryRunWritesNothing(t *testing.T) {
	m, dir := newManager(t, true)
	file := filepath.Join(dir, "inputs.conf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.NoError(t, m.Backup(file))

	_, err := os.Stat(file + suffix)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(m.LogPath)
	assert.True(t, os.IsNotExist(err))
}

func TestBackup_SourceVanished(t *testing.T) {
	m, dir := newManager(t, false)
	require.Error(t, m.Backup(filepath.Join(dir, "gone.conf")))
}

func TestRevert(t *testing.T) {
	m, dir := newManager(t, false)
	file := filepath.Join(dir, "transforms.conf")
	require.NoError(t, os.WriteFile(file, []byte("original"), 0o644))
	require.NoError(t, m.Backup(file))
	require.NoError(t, os.WriteFile(file, []byte("mutated"), 0o644))

	require.NoError(t, m.Revert())

	data, _ := os.ReadFile(file)
	assert.Equal(t, "original", string(data))

	_, err := os.Stat(file + suffix)
	assert.True(t, os.IsNotExist(err), "artifact consumed by revert")
	_, err = os.Stat(m.LogPath)
	assert.True(t, os.IsNotExist(err), "clean revert removes the log")
}

func TestRevert_MissingArtifactPreservesLog(t *testing.T) {
	m, dir := newManager(t, false)
	a := filepath.Join(dir, "a.conf")
	b := filepath.Join(dir, "b.conf")
	for _, f := range []string{a, b} {
		require.NoError(t, os.WriteFile(f, []byte("orig"), 0o644))
		require.NoError(t, m.Backup(f))
		require.NoError(t, os.WriteFile(f, []byte("mutated"), 0o644))
	}
	require.NoError(t, os.Remove(a+suffix))

	err := m.Revert()
	require.Error(t, err)

	// The healthy file was still reverted and the log survives.
	data, _ := os.ReadFile(b)
	assert.Equal(t, "orig", string(data))
	_, statErr := os.Stat(m.LogPath)
	assert.NoError(t, statErr)
}

func TestAccept(t *testing.T) {
	m, dir := newManager(t, false)
	file := filepath.Join(dir, "savedsearches.conf")
	require.NoError(t, os.WriteFile(file, []byte("orig"), 0o644))
	require.NoError(t, m.Backup(file))
	require.NoError(t, os.WriteFile(file, []byte("mutated"), 0o644))

	require.NoError(t, m.Accept())

	data, _ := os.ReadFile(file)
	assert.Equal(t, "mutated", string(data), "accept keeps the change")
	_, err := os.Stat(file + suffix)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(m.LogPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRevertAccept_NoLog(t *testing.T) {
	m, _ := newManager(t, false)
	assert.ErrorIs(t, m.Revert(), ErrNoLog)
	assert.ErrorIs(t, m.Accept(), ErrNoLog)
}
