// Package tree selects the root directory of the install tree.
package tree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/zerr"
)

// Source tells how a root was chosen.
type Source string

const (
	// SourceConfigured means install_tree.path was set.
	SourceConfigured Source = "configured"
	// SourceLegacy means a populated tree inside the installation was found.
	SourceLegacy Source = "legacy"
	// SourceExternal means a per-user or shared directory outside the installation.
	SourceExternal Source = "external"
)

// Root is the install tree selected for this process.
type Root struct {
	Path   string
	Source Source
	Config domain.Config
}

// Selector chooses the install tree root from the configuration.
// The choice is recomputed on every start and never persisted.
type Selector struct {
	cfg     domain.Config
	getenv  func(string) string
	homeDir func() (string, error)
}

// NewSelector creates a Selector reading the process environment.
func NewSelector(cfg domain.Config) *Selector {
	return &Selector{cfg: cfg, getenv: os.Getenv, homeDir: os.UserHomeDir}
}

// WithEnv overrides environment lookups.
func (s *Selector) WithEnv(getenv func(string) string, homeDir func() (string, error)) *Selector {
	s.getenv = getenv
	s.homeDir = homeDir
	return s
}

// LegacyPath returns the in-installation tree location for prefix.
func LegacyPath(prefix string) string {
	return filepath.Join(prefix, "opt", "depot")
}

// LocationHash identifies an installation location by a short stable hash.
func LocationHash(prefix string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(filepath.Clean(prefix)))
}

// Select picks the root and creates it if needed.
func (s *Selector) Select() (Root, error) {
	root, err := s.Resolve()
	if err != nil {
		return Root{}, err
	}
	if err := root.Create(); err != nil {
		return Root{}, err
	}
	return root, nil
}

// Create makes the root directory.
func (r Root) Create() error {
	if err := os.MkdirAll(r.Path, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create install tree root"), "path", r.Path)
	}
	return nil
}

// Resolve picks the root without touching the filesystem beyond probing for a legacy tree.
func (s *Selector) Resolve() (Root, error) {
	prefix := s.cfg.Prefix
	tree := s.cfg.InstallTree

	if tree.Path != "" {
		path, err := Expand(tree.Path, s.tokens())
		if err != nil {
			return Root{}, zerr.With(err, "key", "install_tree.path")
		}
		if !filepath.IsAbs(path) {
			err := zerr.With(zerr.Wrap(domain.ErrConfiguration, "install tree path must be absolute"), "key", "install_tree.path")
			return Root{}, zerr.With(err, "value", path)
		}
		return Root{Path: filepath.Clean(path), Source: SourceConfigured, Config: s.cfg}, nil
	}

	if legacy := LegacyPath(prefix); nonEmptyDir(legacy) {
		return Root{Path: legacy, Source: SourceLegacy, Config: s.cfg}, nil
	}

	switch tree.Scope {
	case domain.ScopeSystem:
		if tree.SharedRoot == "" {
			return Root{}, zerr.With(zerr.Wrap(domain.ErrMissingConfigKey, "system scope needs a shared root"), "key", "install_tree.shared_root")
		}
		return Root{Path: filepath.Join(tree.SharedRoot, LocationHash(prefix)), Source: SourceExternal, Config: s.cfg}, nil
	default:
		userDir, err := s.userDir()
		if err != nil {
			return Root{}, err
		}
		return Root{Path: filepath.Join(userDir, LocationHash(prefix)), Source: SourceExternal, Config: s.cfg}, nil
	}
}

// tokens are the substitutions available in install_tree.path. $user is left
// undefined when no user data directory can be determined.
func (s *Selector) tokens() map[string]string {
	tokens := map[string]string{
		"root": s.cfg.Prefix,
		"hash": LocationHash(s.cfg.Prefix),
	}
	if userDir, err := s.userDir(); err == nil {
		tokens["user"] = userDir
	}
	return tokens
}

// userDir is the per-user data directory for depot.
func (s *Selector) userDir() (string, error) {
	if xdg := s.getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "depot"), nil
	}
	home, err := s.homeDir()
	if err != nil || home == "" {
		return "", zerr.Wrap(domain.ErrConfiguration, "cannot determine the user data directory")
	}
	return filepath.Join(home, ".local", "share", "depot"), nil
}

// Expand substitutes $name and ${name} tokens in template.
// A token missing from tokens is a configuration error.
func Expand(template string, tokens map[string]string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}

		var name string
		rest := template[i+1:]
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return "", zerr.With(zerr.Wrap(domain.ErrConfiguration, "unterminated token"), "value", template)
			}
			name = rest[1:end]
			i += end + 1
		} else {
			n := 0
			for n < len(rest) && isTokenChar(rest[n]) {
				n++
			}
			name = rest[:n]
			i += n
		}

		value, ok := tokens[name]
		if !ok {
			err := zerr.With(zerr.Wrap(domain.ErrConfiguration, "unknown path token"), "token", "$"+name)
			return "", zerr.With(err, "value", template)
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

func isTokenChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func nonEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

