package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PrefixScanner = (*Scanner)(nil)

// Scanner finds complete install prefixes below a tree root.
type Scanner struct {
	// MaxDepth bounds how far below the root prefixes are searched for.
	MaxDepth int
}

// NewScanner creates a Scanner that searches a few levels deep, enough for every registered layout.
func NewScanner() *Scanner {
	return &Scanner{MaxDepth: 4}
}

// Scan implements ports.PrefixScanner. A directory holding a spec file is a
// prefix; it is reported only when no install marker is present, and nothing
// below it is searched.
func (s *Scanner) Scan(ctx context.Context, root string) ([]domain.ScannedPrefix, error) {
	root = filepath.Clean(root)
	var found []domain.ScannedPrefix

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipAll
			}
			return zerr.With(zerr.Wrap(err, "failed to scan install tree"), "path", path)
		}
		if !d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.Name() == domain.MetadataDir {
			return filepath.SkipDir
		}

		if _, err := os.Stat(SpecFilePath(path)); err == nil {
			if _, incomplete, _ := ReadMarker(path); !incomplete {
				spec, err := ReadSpecFile(path)
				if err != nil {
					return err
				}
				found = append(found, domain.ScannedPrefix{Path: path, Spec: spec})
			}
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)
		if depth(rel) >= s.MaxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func depth(rel string) int {
	n := 1
	for _, c := range filepath.ToSlash(rel) {
		if c == '/' {
			n++
		}
	}
	return n
}
