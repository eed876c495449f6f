// Package installer installs concrete spec DAGs into the install tree and
// removes them again.
package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Request describes one install.
type Request struct {
	// Roots are the specs asked for. Their dependencies are installed first.
	Roots []*domain.Spec

	// Steps holds the install steps per spec hash.
	Steps map[string][]string

	// Explicit marks the roots as explicitly installed. Dependencies never are.
	Explicit bool
}

// Installer populates prefixes and keeps the database in step with them.
type Installer struct {
	layout    ports.Layout
	db        ports.Database
	locks     ports.LockManager
	builder   ports.Builder
	digester  ports.Digester
	telemetry ports.Telemetry
	logger    ports.Logger

	now func() time.Time
	pid int
}

// New creates a new Installer.
func New(
	layout ports.Layout,
	db ports.Database,
	locks ports.LockManager,
	builder ports.Builder,
	digester ports.Digester,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *Installer {
	return &Installer{
		layout:    layout,
		db:        db,
		locks:     locks,
		builder:   builder,
		digester:  digester,
		telemetry: telemetry,
		logger:    logger,
		now:       time.Now,
		pid:       os.Getpid(),
	}
}

// LockName returns the name of the lock held while spec is installed or removed.
func LockName(spec *domain.Spec) string {
	return "prefix-" + spec.Hash()
}

// Install installs every spec of the request DAGs, dependencies first. It stops
// at the first failure and returns the results gathered so far.
func (in *Installer) Install(ctx context.Context, req Request) ([]domain.InstallResult, error) {
	roots := make(map[string]bool, len(req.Roots))
	for _, root := range req.Roots {
		roots[root.Hash()] = true
	}

	var results []domain.InstallResult
	prefixes := make(map[string]string)

	for spec := range domain.TraverseAll(req.Roots) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		hash := spec.Hash()
		deps := make(map[string]string, len(spec.Dependencies))
		for _, dep := range spec.Dependencies {
			deps[dep.Name.String()] = prefixes[dep.Hash()]
		}

		res, err := in.installOne(ctx, spec, req.Steps[hash], req.Explicit && roots[hash], deps)
		if err != nil {
			return results, err
		}
		prefixes[hash] = res.Path
		results = append(results, res)
	}
	return results, nil
}

func (in *Installer) installOne(
	ctx context.Context,
	spec *domain.Spec,
	steps []string,
	explicit bool,
	deps map[string]string,
) (domain.InstallResult, error) {
	_, vertex := in.telemetry.Record(ctx, spec.Short())

	res, done, err := in.cached(ctx, spec, &explicit, false)
	if err != nil || done {
		in.finish(vertex, res, err)
		return res, err
	}

	unlock, err := in.locks.Exclusive(ctx, LockName(spec))
	if err != nil {
		if errors.Is(err, domain.ErrLockContention) {
			err = zerr.With(zerr.Wrap(domain.ErrInstallInProgress, "spec is being installed by another process"), "spec", spec.Short())
		}
		vertex.Complete(err)
		return domain.InstallResult{Spec: spec, Status: domain.InstallStatusFailed}, err
	}
	defer func() { _ = unlock() }()

	// Another process may have finished the install while we waited.
	res, done, err = in.cached(ctx, spec, &explicit, true)
	if err == nil && !done {
		res, err = in.populate(ctx, spec, steps, explicit, deps, vertex)
	}
	in.finish(vertex, res, err)
	return res, err
}

// cached reports whether spec is already installed with an intact prefix, promoting
// it to explicit if asked. With repair, a record whose prefix is damaged is dropped
// so that the spec is installed again, and its install reason carries over.
func (in *Installer) cached(ctx context.Context, spec *domain.Spec, explicit *bool, repair bool) (domain.InstallResult, bool, error) {
	res := domain.InstallResult{Spec: spec, Path: in.layout.PathFor(spec), Status: domain.InstallStatusCached}

	rec, err := in.db.Lookup(ctx, spec)
	if err != nil || rec == nil {
		return res, false, err
	}
	res.Path = rec.Path

	if !complete(rec.Path) {
		if !repair {
			return res, false, nil
		}
		in.logger.Warn("prefix of " + spec.Short() + " is damaged, reinstalling")
		if _, err := in.db.Remove(ctx, spec, true); err != nil {
			return res, false, err
		}
		if err := in.remove(rec.Path); err != nil {
			return res, false, err
		}
		*explicit = *explicit || rec.Explicit
		return res, false, nil
	}

	if *explicit && !rec.Explicit {
		if err := in.db.RecordInstall(ctx, spec, rec.Path, true); err != nil {
			return res, false, err
		}
	}
	return res, true, nil
}

// populate runs the install of spec into its prefix. The caller holds the spec lock.
func (in *Installer) populate(
	ctx context.Context,
	spec *domain.Spec,
	steps []string,
	explicit bool,
	deps map[string]string,
	vertex ports.Vertex,
) (domain.InstallResult, error) {
	path := in.layout.PathFor(spec)
	res := domain.InstallResult{Spec: spec, Path: path, Status: domain.InstallStatusFailed}

	adopt, err := in.clearPrefix(spec, path)
	if err != nil {
		return res, err
	}
	if adopt {
		if err := in.record(ctx, spec, path, explicit); err != nil {
			return res, err
		}
		res.Status = domain.InstallStatusAdopted
		return res, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return res, zerr.With(zerr.Wrap(err, "failed to create prefix"), "path", path)
	}
	marker := fs.Marker{
		PID:     in.pid,
		Token:   uuid.NewString(),
		Started: in.now().UTC(),
		Spec:    spec.Short(),
	}
	if err := fs.WriteMarker(path, marker); err != nil {
		return res, err
	}

	req := domain.BuildRequest{Spec: spec, Prefix: path, Steps: steps, DependencyPrefixes: deps}
	if err := in.builder.Build(ctx, req, vertex.Stdout(), vertex.Stderr()); err != nil {
		in.discard(path)
		if ctx.Err() == nil && !errors.Is(err, domain.ErrBuildFailed) {
			err = zerr.With(zerr.Wrap(domain.ErrBuildFailed, err.Error()), "spec", spec.Short())
		}
		return res, err
	}

	if err := fs.WriteSpecFile(path, spec); err != nil {
		in.discard(path)
		return res, err
	}
	if err := fs.RemoveMarker(path); err != nil {
		return res, err
	}
	if err := in.record(ctx, spec, path, explicit); err != nil {
		return res, err
	}

	res.Status = domain.InstallStatusInstalled
	return res, nil
}

// clearPrefix makes path ready for a fresh install. It reports true when path
// already holds a complete install of spec that only needs recording.
func (in *Installer) clearPrefix(spec *domain.Spec, path string) (bool, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to stat prefix"), "path", path)
	}

	if info.IsDir() {
		if marker, found, _ := fs.ReadMarker(path); found {
			in.logger.Warn("removing interrupted install of " + spec.Short() + " started by pid " + strconv.Itoa(marker.PID))
			return false, in.remove(path)
		}
		if onDisk, err := fs.ReadSpecFile(path); err == nil {
			if onDisk.Equal(spec) {
				return true, nil
			}
			err := zerr.With(zerr.Wrap(domain.ErrPathCollision, "prefix holds another spec"), "path", path)
			err = zerr.With(err, "spec", spec.Short())
			return false, zerr.With(err, "found", onDisk.Short())
		}
		if entries, err := os.ReadDir(path); err == nil && len(entries) == 0 {
			return false, nil
		}
	}

	err = zerr.With(zerr.Wrap(domain.ErrPathCollision, "prefix is occupied by files depot did not install"), "path", path)
	return false, zerr.With(err, "spec", spec.Short())
}

func (in *Installer) record(ctx context.Context, spec *domain.Spec, path string, explicit bool) error {
	digest, err := in.digester.Digest(path)
	if err != nil {
		return err
	}
	return in.db.RecordInstall(ctx, spec, path, explicit,
		ports.WithContentHash(digest),
		ports.WithInstallationTime(in.now()),
	)
}

func (in *Installer) finish(vertex ports.Vertex, res domain.InstallResult, err error) {
	if err == nil && res.Status == domain.InstallStatusCached {
		vertex.Cached()
	}
	vertex.Complete(err)
}

// discard removes a prefix whose install failed.
func (in *Installer) discard(path string) {
	if err := in.remove(path); err != nil {
		in.logger.Error(err)
	}
}

// remove deletes a prefix. Paths outside the install tree are never touched.
func (in *Installer) remove(path string) error {
	if !within(in.layout.Root(), path) {
		return zerr.With(zerr.Wrap(domain.ErrPathCollision, "prefix is outside the install tree"), "path", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove prefix"), "path", path)
	}
	return nil
}

// Uninstall removes the record of spec and then its prefix.
// Without force it fails with *domain.DependentsExistError while installed specs depend on spec.
func (in *Installer) Uninstall(ctx context.Context, spec *domain.Spec, force bool) (*domain.InstallRecord, error) {
	unlock, err := in.locks.Exclusive(ctx, LockName(spec))
	if err != nil {
		if errors.Is(err, domain.ErrLockContention) {
			err = zerr.With(zerr.Wrap(domain.ErrInstallInProgress, "spec is being installed by another process"), "spec", spec.Short())
		}
		return nil, err
	}
	defer func() { _ = unlock() }()

	rec, err := in.db.Remove(ctx, spec, force)
	if err != nil {
		return nil, err
	}
	if err := in.remove(rec.Path); err != nil {
		return rec, err
	}
	return rec, nil
}

// Autoremove uninstalls every implicitly installed spec no explicit install needs,
// dependents first. With dryRun it only reports them.
func (in *Installer) Autoremove(ctx context.Context, dryRun bool) ([]*domain.Spec, error) {
	unused, err := in.db.UnusedSpecs(ctx)
	if err != nil || dryRun {
		return unused, err
	}

	removed := make([]*domain.Spec, 0, len(unused))
	for _, spec := range unused {
		if _, err := in.Uninstall(ctx, spec, false); err != nil {
			return removed, err
		}
		removed = append(removed, spec)
	}
	return removed, nil
}

// complete reports whether path holds a finished install.
func complete(path string) bool {
	if _, err := os.Stat(fs.SpecFilePath(path)); err != nil {
		return false
	}
	_, found, _ := fs.ReadMarker(path)
	return !found
}

func within(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
