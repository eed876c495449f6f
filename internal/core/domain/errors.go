package domain

import (
	"errors"
	"strings"

	"go.trai.ch/zerr"
)

var (
	// ErrConfiguration is returned when the configuration is malformed. It is fatal.
	ErrConfiguration = zerr.New("invalid configuration")

	// ErrUnknownLayout is returned when the configured layout name has no registered implementation.
	ErrUnknownLayout = zerr.New("unknown install layout")

	// ErrMissingConfigKey is returned when a required configuration key is empty or absent.
	ErrMissingConfigKey = zerr.New("missing required configuration key")

	// ErrLockContention is returned when another process holds a lock past the retry budget.
	ErrLockContention = zerr.New("lock is held by another process")

	// ErrInstallInProgress is returned when another process is installing the same spec.
	ErrInstallInProgress = zerr.New("install in progress")

	// ErrDependentsExist is returned when removing a spec that installed specs still depend on.
	ErrDependentsExist = zerr.New("installed specs depend on this spec")

	// ErrPathCollision is returned when two distinct specs resolve to the same install prefix.
	ErrPathCollision = zerr.New("install path collision")

	// ErrCorruptDatabase is returned when the installation database fails its integrity checks.
	ErrCorruptDatabase = zerr.New("installation database is corrupt")

	// ErrSpecNotInstalled is returned when a query matches no installed spec.
	ErrSpecNotInstalled = zerr.New("spec is not installed")

	// ErrAmbiguousSpec is returned when a query that must select one spec matches several.
	ErrAmbiguousSpec = zerr.New("query matches more than one installed spec")

	// ErrMissingDependency is returned when a spec references a dependency that is not known.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in a spec dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrSpecAlreadyExists is returned when a manifest declares the same package twice.
	ErrSpecAlreadyExists = zerr.New("spec already exists")

	// ErrInvalidSpec is returned when a spec is missing its name or version or has a malformed variant.
	ErrInvalidSpec = zerr.New("invalid spec")

	// ErrInvalidQuery is returned when a spec query cannot be parsed.
	ErrInvalidQuery = zerr.New("invalid spec query")

	// ErrBuildFailed is returned when the install steps of a spec fail.
	ErrBuildFailed = zerr.New("install steps failed")
)

// DependentsExistError reports the installed specs that block a removal.
type DependentsExistError struct {
	Spec       *Spec
	Dependents []*Spec
}

// Error implements the error interface.
func (e *DependentsExistError) Error() string {
	names := make([]string, 0, len(e.Dependents))
	for _, d := range e.Dependents {
		names = append(names, d.Short())
	}
	return ErrDependentsExist.Error() + ": " + e.Spec.Short() + " is required by " + strings.Join(names, ", ")
}

// Is reports whether target is ErrDependentsExist.
func (e *DependentsExistError) Is(target error) bool {
	return target == ErrDependentsExist
}

// IsRetryable reports whether err is a transient condition that a later attempt may not hit.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockContention) || errors.Is(err, ErrInstallInProgress)
}
