// Package bundle extracts per-system user-content archives and enumerates
// the files inside them that participate in the merge.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"komigrate/internal/classify"
)

// Source is one extracted archive. Origin is the system label the archive
// came from, taken from the part of the file name before the first
// underscore ("prod" for prod_users.zip).
type Source struct {
	Origin string
	Root   string
}

// File is one merge-eligible file found inside a source.
type File struct {
	Origin string
	Key    classify.Key
	Class  classify.MergeClass
	Path   string
}

// Origin derives the system label from an archive path.
func Origin(zipPath string) string {
	base := filepath.Base(zipPath)
	if i := strings.Index(base, "_"); i >= 0 {
		return base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extract unpacks the archive under destDir and locates its users
// directory. The caller owns destDir and removes it when done.
func Extract(zipPath, destDir string, log *zap.Logger) (*Source, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractOne(f, destDir); err != nil {
			return nil, fmt.Errorf("extracting %s from %s: %w", f.Name, zipPath, err)
		}
	}

	usersDir, err := findUsersDir(destDir)
	if err != nil {
		return nil, fmt.Errorf("archive %s: %w", zipPath, err)
	}
	src := &Source{Origin: Origin(zipPath), Root: usersDir}
	log.Info("extracted source archive",
		zap.String("archive", zipPath),
		zap.String("origin", src.Origin),
		zap.Int("entries", len(r.File)))
	return src, nil
}

func extractOne(f *zip.File, destDir string) error {
	// Reject entries that would escape the extraction root.
	dest := filepath.Join(destDir, filepath.FromSlash(f.Name))
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry path escapes extraction root")
	}
	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// findUsersDir locates the users directory inside an extracted tree. Some
// archives carry users/ at the top, others nest it under the system's etc
// path, so the whole tree is searched.
func findUsersDir(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "users" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("no users directory found")
	}
	return found, nil
}

// Files enumerates the merge-eligible files under the source's users
// directory. users remaps user names between systems; unmapped names pass
// through.
func (s *Source) Files(users map[string]string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		key, class := classify.Identity(rel)
		if class == classify.MergeNone {
			return nil
		}
		files = append(files, File{
			Origin: s.Origin,
			Key:    key.Remap(users),
			Class:  class,
			Path:   path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating %s: %w", s.Root, err)
	}
	return files, nil
}
