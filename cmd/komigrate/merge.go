package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"komigrate/internal/bundle"
	"komigrate/internal/mapping"
	"komigrate/internal/merge"
)

var (
	mergeDest    string
	mergeUserMap string
)

// mergeCmd combines user content archives into one output tree
var mergeCmd = &cobra.Command{
	Use:   "merge <archive>...",
	Short: "Merge per-user content archives into a single output tree",
	Long: `Extracts each <origin>_users.zip archive and merges the user content
inside: stanza files merge key by key with collisions surfaced inline,
search history concatenates, and lookups and dashboards shipped by more
than one system are copied under origin-suffixed names.

Archive order matters: the first archive that contributes a value decides
the default, later archives are labeled by their ordinal.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeDest, "dest", ".", "directory to create the merged output tree in")
	mergeCmd.Flags().StringVar(&mergeUserMap, "map-users", "", "space-delimited file remapping user names between systems")
}

func runMerge(cmd *cobra.Command, args []string) error {
	var users map[string]string
	if mergeUserMap != "" {
		var err error
		users, err = mapping.LoadUserMap(mergeUserMap)
		if err != nil {
			return err
		}
	}

	var files []bundle.File
	for _, zipPath := range args {
		tmp, err := os.MkdirTemp("", "komigrate-extract-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)

		src, err := bundle.Extract(zipPath, tmp, logger)
		if err != nil {
			return err
		}
		fs, err := src.Files(users)
		if err != nil {
			return err
		}
		files = append(files, fs...)
	}

	sum, err := merge.New(mergeDest, logger).Run(files)
	if err != nil {
		return err
	}
	logger.Info("merge complete",
		zap.Int("files_written", sum.FilesWritten),
		zap.Int("collisions", sum.Collisions),
		zap.Int("renamed", sum.Renamed),
		zap.Int("skipped", sum.Skipped))
	return nil
}
