// Package app implements the application layer for depot.
package app

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/depot/internal/adapters/tree" //nolint:depguard // Wired in app layer
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/engine/installer"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	repo      *RepositoryContext
	manifests ports.ManifestLoader
	installer *installer.Installer
	verifier  ports.PrefixVerifier
	scanner   ports.PrefixScanner
	digester  ports.Digester
	telemetry ports.Telemetry
	logger    ports.Logger
}

// New creates a new App instance.
func New(
	repo *RepositoryContext,
	manifests ports.ManifestLoader,
	inst *installer.Installer,
	verifier ports.PrefixVerifier,
	scanner ports.PrefixScanner,
	digester ports.Digester,
	telemetry ports.Telemetry,
	logger ports.Logger,
) *App {
	return &App{
		repo:      repo,
		manifests: manifests,
		installer: inst,
		verifier:  verifier,
		scanner:   scanner,
		digester:  digester,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Repository returns the install tree the app works on.
func (a *App) Repository() *RepositoryContext {
	return a.repo
}

// Root returns the selected install tree root.
func (a *App) Root() tree.Root {
	return a.repo.Root
}

// Install installs the named packages of the manifest at path, or every package
// of the manifest when no names are given. The named packages are recorded as
// explicitly installed.
func (a *App) Install(ctx context.Context, manifestPath string, names []string) ([]domain.InstallResult, error) {
	manifest, err := a.manifests.Load(manifestPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load manifest")
	}
	if len(names) == 0 {
		names = slices.Sorted(maps.Keys(manifest.Specs))
	}
	roots, err := manifest.Roots(names)
	if err != nil {
		return nil, err
	}

	return a.installer.Install(ctx, installer.Request{
		Roots:    roots,
		Steps:    manifest.Steps,
		Explicit: true,
	})
}

// Find returns the installed records matching query. A non-nil explicit restricts
// the result to explicit or implicit installs.
func (a *App) Find(ctx context.Context, query string, explicit *bool) ([]*domain.InstallRecord, error) {
	q, err := domain.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	q.Explicit = explicit
	return a.repo.DB.Query(ctx, q)
}

// Resolve returns the single installed record matching query.
func (a *App) Resolve(ctx context.Context, query string) (*domain.InstallRecord, error) {
	matches, err := a.Find(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, zerr.With(zerr.Wrap(domain.ErrSpecNotInstalled, "no installed spec matches"), "query", query)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.Spec.Short())
		}
		err := zerr.With(zerr.Wrap(domain.ErrAmbiguousSpec, "query matches several installed specs"), "query", query)
		return nil, zerr.With(err, "matches", strings.Join(names, ", "))
	}
}

// Location returns the install prefix of the spec matching query.
func (a *App) Location(ctx context.Context, query string) (string, error) {
	rec, err := a.Resolve(ctx, query)
	if err != nil {
		return "", err
	}
	return rec.Path, nil
}

// Uninstall removes the spec matching query and its prefix.
func (a *App) Uninstall(ctx context.Context, query string, force bool) (*domain.InstallRecord, error) {
	rec, err := a.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	return a.installer.Uninstall(ctx, rec.Spec, force)
}

// Autoremove removes implicitly installed specs that no explicit install needs.
func (a *App) Autoremove(ctx context.Context, dryRun bool) ([]*domain.Spec, error) {
	return a.installer.Autoremove(ctx, dryRun)
}

// Mark changes the install reason of the spec matching query.
func (a *App) Mark(ctx context.Context, query string, explicit bool) (*domain.InstallRecord, error) {
	rec, err := a.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := a.repo.DB.SetExplicit(ctx, rec.Spec, explicit); err != nil {
		return nil, err
	}
	rec.Explicit = explicit
	return rec, nil
}

// Verify checks every installed prefix against its record.
func (a *App) Verify(ctx context.Context) ([]domain.VerifyIssue, error) {
	records, err := a.repo.DB.All(ctx)
	if err != nil {
		return nil, err
	}
	return a.verifier.Verify(ctx, records)
}

// Reindex rebuilds the database from the complete prefixes found below the root.
// Specs that were recorded before keep their install reason and time. New specs
// are explicit unless another prefix found depends on them. The scan runs under
// the database lock, so installs committed meanwhile by other processes are kept.
func (a *App) Reindex(ctx context.Context) ([]*domain.InstallRecord, error) {
	var records []*domain.InstallRecord
	err := a.repo.DB.Reindex(ctx, func(existing []*domain.InstallRecord, readErr error) ([]*domain.InstallRecord, error) {
		if readErr != nil {
			a.logger.Warn("existing database is corrupt, install reasons are not preserved")
		}

		found, err := a.scanner.Scan(ctx, a.repo.Root.Path)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to scan install tree")
		}

		previous := make(map[string]*domain.InstallRecord, len(existing))
		for _, rec := range existing {
			previous[rec.Spec.Hash()] = rec
		}

		required := make(map[string]bool)
		for _, p := range found {
			for dep := range p.Spec.Traverse() {
				if dep != p.Spec {
					required[dep.Hash()] = true
				}
			}
		}

		records = make([]*domain.InstallRecord, 0, len(found))
		for _, p := range found {
			hash := p.Spec.Hash()
			digest, err := a.digester.Digest(p.Path)
			if err != nil {
				return nil, err
			}
			rec := &domain.InstallRecord{
				Spec:        p.Spec,
				Path:        p.Path,
				Explicit:    !required[hash],
				Installed:   true,
				ContentHash: digest,
			}
			if prev, ok := previous[hash]; ok && prev.Installed {
				rec.Explicit = prev.Explicit
				rec.InstallationTime = prev.InstallationTime
			}
			records = append(records, rec)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close flushes telemetry and releases the install tree.
func (a *App) Close() error {
	return errors.Join(a.telemetry.Close(), a.repo.Close())
}
