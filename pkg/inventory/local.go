package inventory

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Local walks the tree under root and returns every regular file keyed by its
// forward-slash relative path, plus the running byte total. Symlinks and
// special files are skipped. Paths matching an exclude pattern are omitted.
func Local(root string, excludes []string) (Set, int64, error) {
	files := Set{}
	var total int64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("get relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		excluded, err := Excluded(relPath, excludes)
		if err != nil {
			return err
		}
		if excluded {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("get file info: %w", err)
		}

		files[relPath] = info.Size()
		total += info.Size()

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walk directory: %w", err)
	}

	return files, total, nil
}

// Excluded reports whether path matches any of the glob patterns.
func Excluded(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
