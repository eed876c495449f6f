// Package database implements the installation database as a JSON index
// guarded by a cross-process lock.
package database

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// LockName is the name of the lock guarding the index.
const LockName = "db"

// IndexPath returns the location of the index file below an install tree root.
func IndexPath(root string) string {
	return filepath.Join(root, domain.MetadataDir, "db", "index.json")
}

// Store implements ports.Database.
// The index is re-read under the lock by every call, so writes made by other
// processes are always observed.
type Store struct {
	path  string
	locks ports.LockManager
	now   func() time.Time
}

// NewStore creates a Store for the install tree at root.
func NewStore(root string, locks ports.LockManager) *Store {
	return &Store{
		path:  IndexPath(root),
		locks: locks,
		now:   time.Now,
	}
}

// Path returns the index file location.
func (s *Store) Path() string {
	return s.path
}

// state is the decoded index, keyed by spec hash.
type state struct {
	records map[string]*domain.InstallRecord
}

func (s *Store) view(ctx context.Context, fn func(*state) error) error {
	unlock, err := s.locks.Shared(ctx, LockName)
	if err != nil {
		return zerr.Wrap(err, "failed to lock installation database")
	}
	defer func() { _ = unlock() }()

	st, err := s.load()
	if err != nil {
		return err
	}
	return fn(st)
}

// update runs fn under the exclusive lock and writes the index if fn reports a change.
func (s *Store) update(ctx context.Context, fn func(*state) (bool, error)) (err error) {
	unlock, err := s.locks.Exclusive(ctx, LockName)
	if err != nil {
		return zerr.Wrap(err, "failed to lock installation database")
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = zerr.Wrap(uerr, "failed to unlock installation database")
		}
	}()

	st, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(st)
	if err != nil || !changed {
		return err
	}
	st.prune()
	st.recount()
	return s.save(st)
}

// replace runs fn under the exclusive lock and writes the state it returns. fn
// receives the current index, or an empty one together with the read error when
// the index is corrupt.
func (s *Store) replace(ctx context.Context, fn func(*state, error) (*state, error)) (err error) {
	unlock, err := s.locks.Exclusive(ctx, LockName)
	if err != nil {
		return zerr.Wrap(err, "failed to lock installation database")
	}
	defer func() {
		if uerr := unlock(); uerr != nil && err == nil {
			err = zerr.Wrap(uerr, "failed to unlock installation database")
		}
	}()

	current, readErr := s.load()
	if readErr != nil {
		if !errors.Is(readErr, domain.ErrCorruptDatabase) {
			return readErr
		}
		current = &state{records: make(map[string]*domain.InstallRecord)}
	}

	st, err := fn(current, readErr)
	if err != nil {
		return err
	}
	st.prune()
	st.recount()
	return s.save(st)
}

func (s *Store) load() (*state, error) {
	st := &state{records: make(map[string]*domain.InstallRecord)}

	//nolint:gosec // Path is derived from the install tree root
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read installation database"), "path", s.path)
	}
	if len(data) == 0 {
		return st, nil
	}

	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, s.corrupt(zerr.With(zerr.Wrap(domain.ErrCorruptDatabase, "failed to decode index"), "reason", err.Error()))
	}
	if v := file.Database.Version; v != FormatVersion {
		return nil, s.corrupt(zerr.With(zerr.Wrap(domain.ErrCorruptDatabase, "unsupported index version"), "version", v))
	}

	nodes := make(map[string]domain.SpecNode, len(file.Database.Installs))
	for hash, entry := range file.Database.Installs {
		if entry.Spec.Hash != hash {
			err := zerr.With(zerr.Wrap(domain.ErrCorruptDatabase, "record key does not match its spec"), "key", hash)
			return nil, s.corrupt(zerr.With(err, "spec_hash", entry.Spec.Hash))
		}
		nodes[hash] = entry.Spec
	}
	specs, err := domain.ResolveNodes(nodes)
	if err != nil {
		return nil, s.corrupt(err)
	}

	for hash, entry := range file.Database.Installs {
		st.records[hash] = &domain.InstallRecord{
			Spec:             specs[hash],
			Path:             entry.Path,
			Explicit:         entry.Explicit,
			Installed:        entry.Installed,
			InstallationTime: entry.InstallationTime,
			RefCount:         entry.RefCount,
			ContentHash:      entry.ContentHash,
		}
	}
	return st, nil
}

// corrupt tags err with the index path. Errors that are not already integrity
// errors are wrapped so that errors.Is(err, domain.ErrCorruptDatabase) holds.
func (s *Store) corrupt(err error) error {
	if !errors.Is(err, domain.ErrCorruptDatabase) {
		err = zerr.With(zerr.Wrap(domain.ErrCorruptDatabase, "index references invalid specs"), "reason", err.Error())
	}
	return zerr.With(err, "path", s.path)
}

// save writes the index to a temporary file and renames it into place.
func (s *Store) save(st *state) error {
	file := indexFile{Database: indexBody{
		Version:  FormatVersion,
		Installs: make(map[string]recordEntry, len(st.records)),
	}}
	for hash, rec := range st.records {
		file.Database.Installs[hash] = recordEntry{
			Spec:             domain.NodeOf(rec.Spec),
			Path:             rec.Path,
			Explicit:         rec.Explicit,
			Installed:        rec.Installed,
			InstallationTime: rec.InstallationTime,
			RefCount:         rec.RefCount,
			ContentHash:      rec.ContentHash,
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal installation database")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create database directory"), "path", dir)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.json")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create temporary index"), "path", dir)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write installation database")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to sync installation database")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close installation database")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return zerr.Wrap(err, "failed to set database permissions")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to replace installation database"), "path", s.path)
	}
	return nil
}

// RecordInstall implements ports.Database.
func (s *Store) RecordInstall(
	ctx context.Context, spec *domain.Spec, path string, explicit bool, opts ...ports.RecordOption,
) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	o := ports.RecordOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.InstallationTime.IsZero() {
		o.InstallationTime = s.now()
	}
	path = filepath.Clean(path)
	hash := spec.Hash()

	return s.update(ctx, func(st *state) (bool, error) {
		for _, dep := range spec.Dependencies {
			rec := st.records[dep.Hash()]
			if rec == nil || !rec.Installed {
				err := zerr.With(zerr.Wrap(domain.ErrMissingDependency, "dependency is not installed"), "dependency", dep.Short())
				return false, zerr.With(err, "spec", spec.Short())
			}
		}
		for other, rec := range st.records {
			if other != hash && rec.Installed && rec.Path == path {
				err := zerr.With(zerr.Wrap(domain.ErrPathCollision, "prefix is recorded for another spec"), "path", path)
				err = zerr.With(err, "spec", spec.Short())
				return false, zerr.With(err, "existing", rec.Spec.Short())
			}
		}

		existing := st.records[hash]
		if existing != nil && existing.Installed {
			changed := false
			if explicit && !existing.Explicit {
				existing.Explicit = true
				changed = true
			}
			if existing.Path != path {
				existing.Path = path
				changed = true
			}
			if o.ContentHash != "" && existing.ContentHash != o.ContentHash {
				existing.ContentHash = o.ContentHash
				changed = true
			}
			return changed, nil
		}

		rec := &domain.InstallRecord{
			Spec:             spec,
			Path:             path,
			Explicit:         explicit,
			Installed:        true,
			InstallationTime: o.InstallationTime,
			ContentHash:      o.ContentHash,
		}
		st.records[hash] = rec
		return true, nil
	})
}

// Lookup implements ports.Database. Records kept only as references are not returned.
func (s *Store) Lookup(ctx context.Context, spec *domain.Spec) (*domain.InstallRecord, error) {
	var out *domain.InstallRecord
	err := s.view(ctx, func(st *state) error {
		if rec := st.records[spec.Hash()]; rec != nil && rec.Installed {
			out = rec
		}
		return nil
	})
	return out, err
}

// Get implements ports.Database.
func (s *Store) Get(ctx context.Context, hash string) (*domain.InstallRecord, error) {
	var out *domain.InstallRecord
	err := s.view(ctx, func(st *state) error {
		out = st.records[hash]
		return nil
	})
	return out, err
}

// Query implements ports.Database.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]*domain.InstallRecord, error) {
	var out []*domain.InstallRecord
	err := s.view(ctx, func(st *state) error {
		for _, rec := range st.sorted() {
			if rec.Installed && q.Matches(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

// All implements ports.Database.
func (s *Store) All(ctx context.Context) ([]*domain.InstallRecord, error) {
	var out []*domain.InstallRecord
	err := s.view(ctx, func(st *state) error {
		out = st.sorted()
		return nil
	})
	return out, err
}

// DependentsOf implements ports.Database.
func (s *Store) DependentsOf(ctx context.Context, spec *domain.Spec) ([]*domain.Spec, error) {
	var out []*domain.Spec
	err := s.view(ctx, func(st *state) error {
		out = st.dependents(spec.Hash())
		return nil
	})
	return out, err
}

// UnusedSpecs implements ports.Database. Specs are ordered dependents first,
// so removing them in order never trips over a remaining dependent.
func (s *Store) UnusedSpecs(ctx context.Context) ([]*domain.Spec, error) {
	var out []*domain.Spec
	err := s.view(ctx, func(st *state) error {
		out = st.unused()
		return nil
	})
	return out, err
}

// Remove implements ports.Database.
func (s *Store) Remove(ctx context.Context, spec *domain.Spec, force bool) (*domain.InstallRecord, error) {
	hash := spec.Hash()
	var removed *domain.InstallRecord
	err := s.update(ctx, func(st *state) (bool, error) {
		rec := st.records[hash]
		if rec == nil || !rec.Installed {
			return false, zerr.With(zerr.Wrap(domain.ErrSpecNotInstalled, "cannot remove"), "spec", spec.Short())
		}
		if dependents := st.dependents(hash); len(dependents) > 0 && !force {
			return false, &domain.DependentsExistError{Spec: rec.Spec, Dependents: dependents}
		}

		copied := *rec
		removed = &copied
		if st.referenced(hash) {
			rec.Installed = false
			rec.Explicit = false
		} else {
			delete(st.records, hash)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// SetExplicit implements ports.Database.
func (s *Store) SetExplicit(ctx context.Context, spec *domain.Spec, explicit bool) error {
	return s.update(ctx, func(st *state) (bool, error) {
		rec := st.records[spec.Hash()]
		if rec == nil || !rec.Installed {
			return false, zerr.With(zerr.Wrap(domain.ErrSpecNotInstalled, "cannot mark"), "spec", spec.Short())
		}
		if rec.Explicit == explicit {
			return false, nil
		}
		rec.Explicit = explicit
		return true, nil
	})
}

// Reindex implements ports.Database. Dependencies of the rebuilt records that
// are not themselves rebuilt are kept as uninstalled references.
func (s *Store) Reindex(ctx context.Context, rebuild ports.Rebuild) error {
	return s.replace(ctx, func(current *state, readErr error) (*state, error) {
		var previous []*domain.InstallRecord
		if readErr == nil {
			previous = current.sorted()
		}
		records, err := rebuild(previous, readErr)
		if err != nil {
			return nil, err
		}

		next := make(map[string]*domain.InstallRecord, len(records))
		for _, rec := range records {
			copied := *rec
			copied.Path = filepath.Clean(copied.Path)
			copied.Installed = true
			if copied.InstallationTime.IsZero() {
				copied.InstallationTime = s.now()
			}
			next[rec.Spec.Hash()] = &copied
		}

		paths := make(map[string]string, len(next))
		for hash, rec := range next {
			if owner, ok := paths[rec.Path]; ok {
				err := zerr.With(zerr.Wrap(domain.ErrPathCollision, "two specs claim one prefix"), "path", rec.Path)
				return nil, zerr.With(err, "hashes", []string{owner, hash})
			}
			paths[rec.Path] = hash
		}

		for node := range domain.TraverseAll(specsOf(next)) {
			if _, ok := next[node.Hash()]; !ok {
				next[node.Hash()] = &domain.InstallRecord{Spec: node}
			}
		}
		return &state{records: next}, nil
	})
}

func specsOf(records map[string]*domain.InstallRecord) []*domain.Spec {
	specs := make([]*domain.Spec, 0, len(records))
	for _, rec := range records {
		specs = append(specs, rec.Spec)
	}
	slices.SortFunc(specs, compareSpecs)
	return specs
}

func compareSpecs(a, b *domain.Spec) int {
	return cmp.Or(
		strings.Compare(a.Name.String(), b.Name.String()),
		strings.Compare(a.Version.String(), b.Version.String()),
		strings.Compare(a.Hash(), b.Hash()),
	)
}
