package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Digester = (*Digester)(nil)

// Digester hashes the contents of install prefixes.
type Digester struct {
	walker *Walker
}

// NewDigester creates a new Digester.
func NewDigester(walker *Walker) *Digester {
	return &Digester{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Digester) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return hasher.Sum64(), nil
}

// Digest implements ports.Digester. It covers relative paths, the executable
// bit, file contents and symlink targets, so it is independent of where the
// prefix lives.
func (h *Digester) Digest(prefix string) (string, error) {
	info, err := os.Stat(prefix)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to stat prefix"), "path", prefix)
	}
	if !info.IsDir() {
		return "", zerr.With(zerr.New("prefix is not a directory"), "path", prefix)
	}

	hasher := xxhash.New()
	for path, err := range h.walker.WalkFiles(prefix, nil) {
		if err != nil {
			return "", err
		}
		if err := h.hashEntry(prefix, path, hasher); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func (h *Digester) hashEntry(prefix, path string, digest io.Writer) error {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to relativize path"), "path", path)
	}
	_, _ = digest.Write([]byte(filepath.ToSlash(rel)))
	_, _ = digest.Write([]byte{0})

	info, err := os.Lstat(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat file"), "path", path)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read symlink"), "path", path)
		}
		_, _ = digest.Write([]byte{'l'})
		_, _ = digest.Write([]byte(target))
		_, _ = digest.Write([]byte{0})
		return nil
	}

	kind := byte('f')
	if info.Mode()&0o111 != 0 {
		kind = 'x'
	}
	_, _ = digest.Write([]byte{kind})

	hash, err := h.ComputeFileHash(path)
	if err != nil {
		return err
	}
	if err := binary.Write(digest, binary.LittleEndian, hash); err != nil {
		return zerr.Wrap(err, "failed to write hash to digest")
	}
	return nil
}
