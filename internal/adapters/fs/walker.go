// Package fs provides file system adapters for install prefixes: walking,
// digesting, verifying and scanning them, and the metadata files they carry.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every non-directory entry below root, in lexical order,
// skipping the metadata directory at the top of the prefix and any entry whose
// name matches one of ignores. Symbolic links are yielded, not followed.
func (w *Walker) WalkFiles(root string, ignores []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return zerr.With(zerr.Wrap(err, "failed to walk prefix"), "path", path)
			}
			if path == root {
				return nil
			}
			if w.shouldSkip(root, path, d, ignores) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

// shouldSkip reports whether an entry, and everything below it, is left out.
func (w *Walker) shouldSkip(root, path string, d fs.DirEntry, ignores []string) bool {
	name := d.Name()
	if d.IsDir() && name == domain.MetadataDir && filepath.Dir(path) == filepath.Clean(root) {
		return true
	}
	for _, ignore := range ignores {
		if matched, _ := filepath.Match(ignore, name); matched {
			return true
		}
	}
	return false
}
