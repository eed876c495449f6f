package app

import (
	"io"

	"go.trai.ch/depot/internal/adapters/tree" //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
)

// RepositoryContext is the install tree a process works on: its configuration,
// selected root, layout, lock manager and database. It is built once at startup,
// passed to every component that needs it and closed at exit.
type RepositoryContext struct {
	Config domain.Config
	Root   tree.Root
	Layout ports.Layout
	Locks  ports.LockManager
	DB     ports.Database
}

// NewRepositoryContext creates a RepositoryContext for root.
func NewRepositoryContext(root tree.Root, layout ports.Layout, locks ports.LockManager, db ports.Database) *RepositoryContext {
	return &RepositoryContext{
		Config: root.Config,
		Root:   root,
		Layout: layout,
		Locks:  locks,
		DB:     db,
	}
}

// Close releases every lock still held by the process.
func (r *RepositoryContext) Close() error {
	if c, ok := r.Locks.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
