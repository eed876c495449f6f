package ports

import (
	"context"
	"time"

	"go.trai.ch/depot/internal/core/domain"
)

// Database is the durable registry of installed specs.
// Every call is safe against concurrent use by other processes sharing the same install tree.
//
//go:generate go run go.uber.org/mock/mockgen -source=database.go -destination=mocks/mock_database.go -package=mocks
type Database interface {
	// RecordInstall inserts or updates the record of spec. Calling it twice with the same
	// arguments leaves the database as after the first call. Every dependency of spec must
	// already be recorded.
	RecordInstall(ctx context.Context, spec *domain.Spec, path string, explicit bool, opts ...RecordOption) error

	// Lookup returns the record of exactly spec, or nil, nil if there is none.
	Lookup(ctx context.Context, spec *domain.Spec) (*domain.InstallRecord, error)

	// Get returns the record stored under hash, or nil, nil if there is none.
	Get(ctx context.Context, hash string) (*domain.InstallRecord, error)

	// Query returns the installed records matching q, ordered by name, version and hash.
	Query(ctx context.Context, q domain.Query) ([]*domain.InstallRecord, error)

	// All returns every record, including ones kept only as references.
	All(ctx context.Context) ([]*domain.InstallRecord, error)

	// DependentsOf returns every installed spec whose dependency DAG contains spec.
	DependentsOf(ctx context.Context, spec *domain.Spec) ([]*domain.Spec, error)

	// UnusedSpecs returns implicitly installed specs that no explicit install needs.
	UnusedSpecs(ctx context.Context) ([]*domain.Spec, error)

	// Remove deletes the record of spec and returns it so the caller can delete the prefix.
	// Without force it fails with *domain.DependentsExistError if dependents exist.
	Remove(ctx context.Context, spec *domain.Spec, force bool) (*domain.InstallRecord, error)

	// SetExplicit changes the install reason of an installed spec.
	SetExplicit(ctx context.Context, spec *domain.Spec, explicit bool) error

	// Reindex replaces the whole database with the records rebuild returns. rebuild runs
	// while the exclusive database lock is held, so no other writer commits in between.
	Reindex(ctx context.Context, rebuild Rebuild) error
}

// Rebuild computes the records of a reindex. previous holds every stored record,
// including references; it is nil and readErr is set when the stored index is corrupt.
type Rebuild func(previous []*domain.InstallRecord, readErr error) ([]*domain.InstallRecord, error)

// RecordOptions holds optional attributes of a new record.
type RecordOptions struct {
	ContentHash      string
	InstallationTime time.Time
}

// RecordOption is a functional option for RecordInstall.
type RecordOption func(*RecordOptions)

// WithContentHash stores the digest of the prefix contents.
func WithContentHash(hash string) RecordOption {
	return func(o *RecordOptions) {
		o.ContentHash = hash
	}
}

// WithInstallationTime overrides the installation timestamp.
func WithInstallationTime(t time.Time) RecordOption {
	return func(o *RecordOptions) {
		o.InstallationTime = t
	}
}
