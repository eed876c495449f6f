// Package config provides the configuration and manifest loaders for depot.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	// EnvConfig overrides the location of the configuration file.
	EnvConfig = "DEPOT_CONFIG"
	// EnvPrefix overrides the location of the depot installation.
	EnvPrefix = "DEPOT_PREFIX"
)

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct {
	// Path is the configuration file. A missing file yields the defaults.
	Path string
	// Prefix is the location of the depot installation.
	Prefix string

	logger ports.Logger
}

// NewLoader creates a loader that locates the installation and its configuration
// from the environment.
func NewLoader(log ports.Logger) (*FileConfigLoader, error) {
	prefix, err := installationPrefix()
	if err != nil {
		return nil, err
	}
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = filepath.Join(prefix, "etc", "depot", "config.yaml")
	}
	return &FileConfigLoader{Path: path, Prefix: prefix, logger: log}, nil
}

// Load reads the configuration file.
func (l *FileConfigLoader) Load() (domain.Config, error) {
	cfg, found, err := Load(l.Path, l.Prefix)
	if err != nil {
		return domain.Config{}, err
	}
	if !found && l.logger != nil && os.Getenv(EnvConfig) != "" {
		l.logger.Warn("configuration file " + l.Path + " not found, using defaults")
	}
	return cfg, nil
}

// Load reads the configuration at path on top of the defaults for prefix.
// It reports whether the file existed.
func Load(path, prefix string) (domain.Config, bool, error) {
	cfg := domain.DefaultConfig(prefix)

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by the user
	if errors.Is(err, os.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return domain.Config{}, false, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var file ConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		wrapped := zerr.With(zerr.Wrap(domain.ErrConfiguration, "failed to parse config file"), "path", path)
		return domain.Config{}, true, zerr.With(wrapped, "reason", err.Error())
	}

	apply(&cfg, file)
	if err := validate(cfg); err != nil {
		return domain.Config{}, true, zerr.With(err, "path", path)
	}
	return cfg, true, nil
}

func apply(cfg *domain.Config, file ConfigFile) {
	tree := file.InstallTree
	if tree.Path != nil {
		cfg.InstallTree.Path = *tree.Path
	}
	if tree.Layout != nil {
		cfg.InstallTree.Layout = *tree.Layout
	}
	if tree.Scope != nil {
		cfg.InstallTree.Scope = *tree.Scope
	}
	if tree.SharedRoot != nil {
		cfg.InstallTree.SharedRoot = *tree.SharedRoot
	}
	if file.Locks.Retries != nil {
		cfg.Locks.Retries = *file.Locks.Retries
	}
	if file.Locks.Delay != nil {
		cfg.Locks.Delay = *file.Locks.Delay
	}
}

func validate(cfg domain.Config) error {
	if cfg.InstallTree.Layout == "" {
		return zerr.With(zerr.Wrap(domain.ErrMissingConfigKey, "install tree layout is not set"), "key", "install_tree.layout")
	}
	switch cfg.InstallTree.Scope {
	case domain.ScopeUser, domain.ScopeSystem:
	default:
		err := zerr.With(zerr.Wrap(domain.ErrConfiguration, "scope must be user or system"), "key", "install_tree.scope")
		return zerr.With(err, "value", cfg.InstallTree.Scope)
	}
	if cfg.InstallTree.Scope == domain.ScopeSystem && cfg.InstallTree.SharedRoot == "" && cfg.InstallTree.Path == "" {
		return zerr.With(zerr.Wrap(domain.ErrMissingConfigKey, "system scope needs a shared root"), "key", "install_tree.shared_root")
	}
	if cfg.Locks.Retries <= 0 {
		err := zerr.With(zerr.Wrap(domain.ErrConfiguration, "lock retries must be positive"), "key", "locks.retries")
		return zerr.With(err, "value", cfg.Locks.Retries)
	}
	if cfg.Locks.Delay <= 0 {
		err := zerr.With(zerr.Wrap(domain.ErrConfiguration, "lock delay must be positive"), "key", "locks.delay")
		return zerr.With(err, "value", cfg.Locks.Delay.String())
	}
	return nil
}

// installationPrefix returns $DEPOT_PREFIX, else the parent of the executable's directory.
func installationPrefix() (string, error) {
	if p := os.Getenv(EnvPrefix); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", zerr.With(zerr.Wrap(domain.ErrConfiguration, "invalid installation prefix"), "value", p)
		}
		return abs, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", zerr.Wrap(err, "failed to locate the depot executable")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}
