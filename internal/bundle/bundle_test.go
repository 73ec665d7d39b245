package bundle

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"komigrate/internal/classify"
)

func buildZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "prod", Origin("/tmp/in/prod_users.zip"))
	assert.Equal(t, "dr", Origin("dr_users_2024.zip"))
	assert.Equal(t, "standalone", Origin("standalone.zip"))
}

func TestExtractAndEnumerate(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "prod_users.zip")
	buildZip(t, zipPath, map[string]string{
		"users/alice/search/local/savedsearches.conf":     "[s]\nsearch = x\n",
		"users/alice/search/history/host1_2024.csv":       "a,b\n",
		"users/alice/search/lookups/geo.csv":              "k,v\n",
		"users/alice/search/local/data/ui/views/main.xml": "<dashboard/>",
		"users/alice/search/local/README":                 "not merged",
	})

	src, err := Extract(zipPath, filepath.Join(dir, "x"), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "prod", src.Origin)

	files, err := src.Files(nil)
	require.NoError(t, err)
	require.Len(t, files, 4)

	byClass := map[classify.MergeClass]int{}
	for _, f := range files {
		byClass[f.Class]++
		assert.Equal(t, "prod", f.Origin)
		assert.Equal(t, "alice", f.Key.User)
	}
	assert.Equal(t, 1, byClass[classify.MergeStanza])
	assert.Equal(t, 1, byClass[classify.MergeHistory])
	assert.Equal(t, 2, byClass[classify.MergeRename])
}

func TestExtract_NestedUsersDir(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dr_users.zip")
	buildZip(t, zipPath, map[string]string{
		"etc/users/bob/search/local/macros.conf": "[m]\ndefinition = y\n",
	})

	src, err := Extract(zipPath, filepath.Join(dir, "x"), zap.NewNop())
	require.NoError(t, err)

	files, err := src.Files(nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "bob", files[0].Key.User)
	assert.Equal(t, "macros.conf", files[0].Key.Filename)
}

func TestFiles_UserRemap(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dr_users.zip")
	buildZip(t, zipPath, map[string]string{
		"users/bsmith/search/local/savedsearches.conf": "[s]\nsearch = x\n",
	})

	src, err := Extract(zipPath, filepath.Join(dir, "x"), zap.NewNop())
	require.NoError(t, err)

	files, err := src.Files(map[string]string{"bsmith": "bob.smith"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "bob.smith", files[0].Key.User)
}

func TestExtract_NoUsersDir(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "prod_users.zip")
	buildZip(t, zipPath, map[string]string{"apps/ta/local/inputs.conf": "index = x\n"})

	_, err := Extract(zipPath, filepath.Join(dir, "x"), zap.NewNop())
	assert.Error(t, err)
}
