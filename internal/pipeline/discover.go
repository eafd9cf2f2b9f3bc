package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNoInputFiles is returned when discovery finds no candidate workbooks.
// It is the only error that aborts a batch before any file is processed.
var ErrNoInputFiles = errors.New("no Excel files found in the source directory")

// DefaultExtensions are the workbook extensions picked up by discovery.
var DefaultExtensions = []string{".xlsx", ".xls"}

// Discover walks root recursively and returns every file whose extension
// matches exts (case-insensitive), skipping directories named in excludeDirs.
// Paths are returned sorted so batches are reproducible.
func Discover(root string, exts, excludeDirs []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s: not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && slices.Contains(excludeDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if hasExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	slices.Sort(files)
	return files, nil
}

func hasExtension(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
