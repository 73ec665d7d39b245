package merge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"komigrate/internal/bundle"
	"komigrate/internal/classify"
)

func sourceFile(t *testing.T, dir, origin, rel, content string) bundle.File {
	t.Helper()
	path := filepath.Join(dir, origin, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	key, class := classify.Identity(rel)
	require.NotEqual(t, classify.MergeNone, class, "fixture path must be merge-eligible: %s", rel)
	return bundle.File{Origin: origin, Key: key, Class: class, Path: path}
}

func TestRun_StanzaCollision(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	files := []bundle.File{
		sourceFile(t, src, "prod", "alice/search/local/savedsearches.conf",
			"[daily]\nsearch = index=ops | head 5\ncron_schedule = 0 6 * * *\n"),
		sourceFile(t, src, "dr", "alice/search/local/savedsearches.conf",
			"[daily]\nsearch = index=ops | head 10\ncron_schedule = 0 6 * * *\n"),
	}

	m := New(dest, zap.NewNop())
	sum, err := m.Run(files)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FilesWritten)
	assert.Equal(t, 1, sum.Collisions)

	out, err := os.ReadFile(filepath.Join(dest, OutputDirName,
		"users", "alice", "search", "local", "savedsearches.conf"))
	require.NoError(t, err)
	want := "[daily]\n" +
		"# COLLISION\n===========\n" +
		"search = index=ops | head 5\n" +
		"search = index=ops | head 10 #file2\n" +
		"===========\n" +
		"cron_schedule = 0 6 * * *\n"
	assert.Equal(t, want, string(out))

	report, err := os.ReadFile(filepath.Join(dest, OutputDirName, CollisionReportName))
	require.NoError(t, err)
	assert.Contains(t, string(report), "FILE: "+filepath.Join("users", "alice", "search", "local", "savedsearches.conf"))
	assert.Contains(t, string(report), "[daily] search:")
}

func TestRun_HistoryConcatenated(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	files := []bundle.File{
		sourceFile(t, src, "prod", "alice/search/history/prodhost_2024.csv", "time,search\n1,foo\n"),
		sourceFile(t, src, "dr", "alice/search/history/drhost_2024.csv", "time,search\n2,bar\n"),
	}

	m := New(dest, zap.NewNop())
	_, err := m.Run(files)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dest, OutputDirName,
		"users", "alice", "search", "history", "history.csv"))
	require.NoError(t, err)
	assert.Equal(t, "time,search\n1,foo\n\ntime,search\n2,bar\n", string(out))
}

func TestRun_RenameOnTwoSources(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	files := []bundle.File{
		sourceFile(t, src, "prod", "alice/search/lookups/geo.csv", "k,v\n1,prod\n"),
		sourceFile(t, src, "dr", "alice/search/lookups/geo.csv", "k,v\n1,dr\n"),
		sourceFile(t, src, "prod", "alice/search/lookups/only.csv", "k,v\n"),
	}

	m := New(dest, zap.NewNop())
	sum, err := m.Run(files)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Renamed)

	lookups := filepath.Join(dest, OutputDirName, "users", "alice", "search", "lookups")
	assert.FileExists(t, filepath.Join(lookups, "geo.csv__prod"))
	assert.FileExists(t, filepath.Join(lookups, "geo.csv__dr"))
	assert.NoFileExists(t, filepath.Join(lookups, "geo.csv"))

	// A single-source file keeps its name.
	assert.FileExists(t, filepath.Join(lookups, "only.csv"))

	report, err := os.ReadFile(filepath.Join(dest, OutputDirName, RenameReportName))
	require.NoError(t, err)
	assert.Contains(t, string(report), "USER: alice")
	assert.Contains(t, string(report), "geo.csv -> geo.csv__prod")
	assert.Contains(t, string(report), "geo.csv -> geo.csv__dr")
}

func TestRun_HistoryDirsEnsured(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	files := []bundle.File{
		sourceFile(t, src, "prod", "alice/search/local/macros.conf", "[m]\ndefinition = 1\n"),
		sourceFile(t, src, "prod", "alice/user_prefs/local/user-prefs.conf", "[general]\ntz = UTC\n"),
	}

	m := New(dest, zap.NewNop())
	_, err := m.Run(files)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(dest, OutputDirName, "users", "alice", "search", "history"))
	assert.NoDirExists(t, filepath.Join(dest, OutputDirName, "users", "alice", "user_prefs", "history"))
}

func TestRun_SingleSourceCleanMerge(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	content := "[weekly]\nsearch = index=net_fw | stats count\n"
	files := []bundle.File{
		sourceFile(t, src, "prod", "bob/search/local/savedsearches.conf", content),
	}

	m := New(dest, zap.NewNop())
	sum, err := m.Run(files)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Collisions)

	out, err := os.ReadFile(filepath.Join(dest, OutputDirName,
		"users", "bob", "search", "local", "savedsearches.conf"))
	require.NoError(t, err)
	assert.Equal(t, content, string(out))
	assert.NoFileExists(t, filepath.Join(dest, OutputDirName, CollisionReportName))
}
