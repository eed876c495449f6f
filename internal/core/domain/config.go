package domain

import "time"

// Install tree scopes used when no explicit path is configured.
const (
	ScopeUser   = "user"
	ScopeSystem = "system"
)

// DefaultLayout is the layout used when the configuration does not name one.
const DefaultLayout = "hashed"

// Config is the process-wide configuration, resolved once at startup.
type Config struct {
	// Prefix is the location of the depot installation itself; it is the value of the $root token.
	Prefix string

	InstallTree TreeConfig
	Locks       LockConfig
}

// TreeConfig selects and shapes the install tree.
type TreeConfig struct {
	// Path is an optional root template. When empty the root selector decides.
	Path string `yaml:"path"`

	// Layout names a registered layout.
	Layout string `yaml:"layout"`

	// Scope chooses between a per-user and a system-shared external root.
	Scope string `yaml:"scope"`

	// SharedRoot is the parent of system-scoped external roots.
	SharedRoot string `yaml:"shared_root"`
}

// LockConfig bounds how long lock acquisition keeps retrying.
type LockConfig struct {
	Retries int           `yaml:"retries"`
	Delay   time.Duration `yaml:"delay"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix: prefix,
		InstallTree: TreeConfig{
			Layout:     DefaultLayout,
			Scope:      ScopeUser,
			SharedRoot: "/var/lib/depot",
		},
		Locks: LockConfig{
			Retries: 50,
			Delay:   20 * time.Millisecond,
		},
	}
}
