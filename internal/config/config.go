// Package config loads the run configuration. Every field has a working
// default so the tool runs without a config file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all komigrate configuration.
type Config struct {
	// Management-interface driver settings
	Remote RemoteConfig `yaml:"remote"`

	// Backup manager settings
	Backup BackupConfig `yaml:"backup"`

	// Report file names
	Reports ReportsConfig `yaml:"reports"`
}

// RemoteConfig configures the live-object rewrite driver.
type RemoteConfig struct {
	BaseURL   string `yaml:"base_url"`
	VerifyTLS bool   `yaml:"verify_tls"`

	// BatchSize objects are written per batch, then the driver sleeps
	// BatchPauseSeconds before the next batch. Dry runs use the dry-run
	// values so a rehearsal finishes quickly.
	BatchSize               int `yaml:"batch_size"`
	BatchPauseSeconds       int `yaml:"batch_pause_seconds"`
	DryRunBatchSize         int `yaml:"dry_run_batch_size"`
	DryRunBatchPauseSeconds int `yaml:"dry_run_batch_pause_seconds"`
}

// Chunk returns the batch size for the given mode.
func (r RemoteConfig) Chunk(dryRun bool) int {
	if dryRun {
		return r.DryRunBatchSize
	}
	return r.BatchSize
}

// Pause returns the inter-batch sleep for the given mode.
func (r RemoteConfig) Pause(dryRun bool) time.Duration {
	if dryRun {
		return time.Duration(r.DryRunBatchPauseSeconds) * time.Second
	}
	return time.Duration(r.BatchPauseSeconds) * time.Second
}

// BackupConfig configures the backup manager.
type BackupConfig struct {
	Suffix  string `yaml:"suffix"`
	LogFile string `yaml:"log_file"`
}

// ReportsConfig names the report files a run produces.
type ReportsConfig struct {
	ReviewLog string `yaml:"review_log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:                 "https://localhost:8089",
			VerifyTLS:               true,
			BatchSize:               5,
			BatchPauseSeconds:       300,
			DryRunBatchSize:         1,
			DryRunBatchPauseSeconds: 10,
		},
		Backup: BackupConfig{
			Suffix:  ".bak.komigrate",
			LogFile: "backup_file_log.txt",
		},
		Reports: ReportsConfig{
			ReviewLog: "manual_review_log.txt",
		},
	}
}

// Load loads configuration from a YAML file, layered over the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
