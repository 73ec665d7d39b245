package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesLayerOverDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte(
		"remote:\n  base_url: https://sh1.example.com:8089\n  batch_size: 10\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://sh1.example.com:8089", cfg.Remote.BaseURL)
	assert.Equal(t, 10, cfg.Remote.BatchSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, 300, cfg.Remote.BatchPauseSeconds)
	assert.Equal(t, ".bak.komigrate", cfg.Backup.Suffix)
}

func TestLoad_MalformedYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(p, []byte("remote: [\n"), 0o644))

	_, err := Load(p)
	assert.Error(t, err)
}

func TestRemoteConfig_BatchModes(t *testing.T) {
	r := DefaultConfig().Remote
	assert.Equal(t, 5, r.Chunk(false))
	assert.Equal(t, 1, r.Chunk(true))
	assert.Equal(t, 300*time.Second, r.Pause(false))
	assert.Equal(t, 10*time.Second, r.Pause(true))
}
