//go:build unix

package app_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/config"
	"go.trai.ch/depot/internal/adapters/database"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/adapters/layout"
	"go.trai.ch/depot/internal/adapters/lock"
	"go.trai.ch/depot/internal/adapters/shell"
	"go.trai.ch/depot/internal/adapters/telemetry"
	"go.trai.ch/depot/internal/adapters/tree"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/depot/internal/core/ports/mocks"
	"go.trai.ch/depot/internal/engine/installer"
	"go.uber.org/mock/gomock"
)

const manifest = `
defaults:
  compiler: gcc@13.2.0
  platform: linux-x86_64
specs:
  x:
    version: "1.0"
    install:
      - mkdir -p "$PREFIX/lib"
      - echo x > "$PREFIX/lib/libx.a"
  y:
    version: "2.0"
    depends_on: [x]
    install:
      - mkdir -p "$PREFIX/bin"
      - cp "$DEPOT_DEP_X_PREFIX/lib/libx.a" "$PREFIX/bin/y"
`

type harness struct {
	app      *app.App
	repo     *app.RepositoryContext
	manifest string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))

	h := newHarnessAt(t, dir, fs.NewScanner())
	h.manifest = path
	return h
}

// newHarnessAt builds an App on the install tree below dir. Harnesses sharing
// dir use separate lock managers and so behave like separate processes.
func newHarnessAt(t *testing.T, dir string, scanner ports.PrefixScanner) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	root := tree.Root{Path: filepath.Join(dir, "tree"), Source: tree.SourceConfigured, Config: domain.DefaultConfig(dir)}
	require.NoError(t, os.MkdirAll(root.Path, 0o755))

	lay, err := layout.New(root.Config.InstallTree.Layout, root.Path)
	require.NoError(t, err)
	locks := lock.New(root.Path, domain.LockConfig{Retries: 2000, Delay: time.Millisecond})
	db := database.NewStore(root.Path, locks)
	repo := app.NewRepositoryContext(root, lay, locks, db)

	digester := fs.NewDigester(fs.NewWalker())
	tel := telemetry.NewNoOp()
	inst := installer.New(lay, db, locks, shell.NewBuilder(log), digester, tel, log)

	a := app.New(repo, config.NewManifestLoader(), inst, fs.NewVerifier(digester), scanner, digester, tel, log)
	t.Cleanup(func() { _ = a.Close() })

	return &harness{app: a, repo: repo, manifest: filepath.Join(dir, "manifest.yaml")}
}

func TestApp_InstallFindLocation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	results, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x", results[0].Spec.Name.String())
	assert.Equal(t, domain.InstallStatusInstalled, results[1].Status)

	loc, err := h.app.Location(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, h.repo.Layout.PathFor(results[1].Spec), loc)
	data, err := os.ReadFile(filepath.Join(loc, "bin", "y"))
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))

	all, err := h.app.Find(ctx, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	implicit := false
	recs, err := h.app.Find(ctx, "", &implicit)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].Spec.Name.String())

	recs, err = h.app.Find(ctx, "y@>=2", nil)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	hash := results[1].Spec.Hash()
	recs, err = h.app.Find(ctx, "/"+hash[:7], nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, hash, recs[0].Spec.Hash())

	again, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)
	for _, r := range again {
		assert.Equal(t, domain.InstallStatusCached, r.Status)
	}
}

func TestApp_InstallWholeManifest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Install(ctx, h.manifest, nil)
	require.NoError(t, err)

	explicit := true
	recs, err := h.app.Find(ctx, "", &explicit)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestApp_InstallUnknownPackage(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.Install(context.Background(), h.manifest, []string{"z"})
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestApp_Resolve(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Location(ctx, "y")
	assert.ErrorIs(t, err, domain.ErrSpecNotInstalled)

	_, err = h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)

	_, err = h.app.Location(ctx, "")
	assert.ErrorIs(t, err, domain.ErrAmbiguousSpec)

	_, err = h.app.Location(ctx, "@1.0")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

// X@1.0 is a dependency of the explicitly installed Y@2.0.
func TestApp_DependencyLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	results, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)
	x, y := results[0].Spec, results[1].Spec

	unused, err := h.app.Autoremove(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unused)

	dependents, err := h.repo.DB.DependentsOf(ctx, x)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.True(t, dependents[0].Equal(y))

	_, err = h.app.Uninstall(ctx, "x", false)
	var blocked *domain.DependentsExistError
	require.ErrorAs(t, err, &blocked)

	_, err = h.app.Uninstall(ctx, "y", false)
	require.NoError(t, err)
	assert.NoDirExists(t, h.repo.Layout.PathFor(y))

	unused, err = h.app.Autoremove(ctx, false)
	require.NoError(t, err)
	require.Len(t, unused, 1)
	assert.True(t, unused[0].Equal(x))
	assert.NoDirExists(t, h.repo.Layout.PathFor(x))
}

func TestApp_Mark(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)

	rec, err := h.app.Mark(ctx, "x", true)
	require.NoError(t, err)
	assert.True(t, rec.Explicit)

	_, err = h.app.Uninstall(ctx, "y", false)
	require.NoError(t, err)
	unused, err := h.app.Autoremove(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unused, "explicit specs are never unused")

	_, err = h.app.Mark(ctx, "x", false)
	require.NoError(t, err)
	unused, err = h.app.Autoremove(ctx, true)
	require.NoError(t, err)
	assert.Len(t, unused, 1)
}

func TestApp_Verify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)

	issues, err := h.app.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	loc, err := h.app.Location(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(loc, "lib", "libx.a"), []byte("tampered"), 0o644))

	issues, err = h.app.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, fs.ProblemModified, issues[0].Problem)
	assert.Equal(t, "x", issues[0].Spec.Name.String())
}

func TestApp_Reindex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.app.Install(ctx, h.manifest, []string{"y"})
	require.NoError(t, err)
	_, err = h.app.Mark(ctx, "x", true)
	require.NoError(t, err)

	t.Run("preserves install reasons", func(t *testing.T) {
		records, err := h.app.Reindex(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		explicit := true
		recs, err := h.app.Find(ctx, "", &explicit)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("rebuilds a lost database", func(t *testing.T) {
		require.NoError(t, os.Remove(database.IndexPath(h.repo.Root.Path)))

		records, err := h.app.Reindex(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		rec, err := h.app.Mark(ctx, "x", false)
		require.NoError(t, err)
		assert.False(t, rec.Explicit)

		implicit := false
		recs, err := h.app.Find(ctx, "", &implicit)
		require.NoError(t, err)
		require.Len(t, recs, 1)

		explicit := true
		recs, err = h.app.Find(ctx, "y", &explicit)
		require.NoError(t, err)
		assert.Len(t, recs, 1, "specs nothing depends on come back explicit")
	})

	t.Run("rebuilds a corrupt database", func(t *testing.T) {
		require.NoError(t, os.WriteFile(database.IndexPath(h.repo.Root.Path), []byte("{broken"), 0o600))

		_, err := h.app.Find(ctx, "", nil)
		require.ErrorIs(t, err, domain.ErrCorruptDatabase)

		_, err = h.app.Reindex(ctx)
		require.NoError(t, err)

		recs, err := h.app.Find(ctx, "", nil)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})
}

// pausingScanner lets another install run before it scans.
type pausingScanner struct {
	ports.PrefixScanner
	before func()
}

func (s *pausingScanner) Scan(ctx context.Context, root string) ([]domain.ScannedPrefix, error) {
	s.before()
	return s.PrefixScanner.Scan(ctx, root)
}

func TestApp_Reindex_KeepsConcurrentInstall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dir := filepath.Dir(h.manifest)

	var wg sync.WaitGroup
	var installErr error
	scanner := &pausingScanner{PrefixScanner: fs.NewScanner(), before: func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, installErr = h.app.Install(ctx, h.manifest, []string{"x"})
		}()
		time.Sleep(200 * time.Millisecond)
	}}
	reindexer := newHarnessAt(t, dir, scanner)

	_, err := reindexer.app.Reindex(ctx)
	require.NoError(t, err)
	wg.Wait()
	require.NoError(t, installErr)

	recs, err := h.app.Find(ctx, "x", nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.DirExists(t, recs[0].Path)

	issues, err := h.app.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestApp_Reindex_Rebuild(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	zlib := &domain.Spec{Name: domain.NewInternedString("zlib"), Version: domain.NewInternedString("1.3.1")}
	curl := &domain.Spec{
		Name:         domain.NewInternedString("curl"),
		Version:      domain.NewInternedString("8.5.0"),
		Dependencies: []*domain.Spec{zlib},
	}

	tests := []struct {
		name     string
		previous []*domain.InstallRecord
		readErr  error
		explicit map[string]bool
	}{
		{
			name:     "corrupt index",
			readErr:  domain.ErrCorruptDatabase,
			explicit: map[string]bool{"zlib": false, "curl": true},
		},
		{
			name: "previous reasons",
			previous: []*domain.InstallRecord{
				{Spec: zlib, Path: "/old/zlib", Explicit: true, Installed: true, InstallationTime: when},
			},
			explicit: map[string]bool{"zlib": true, "curl": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dir := t.TempDir()
			root := tree.Root{Path: dir, Source: tree.SourceConfigured, Config: domain.DefaultConfig(dir)}

			log := mocks.NewMockLogger(ctrl)
			if tt.readErr != nil {
				log.EXPECT().Warn(gomock.Any()).Times(1)
			}
			scanner := mocks.NewMockPrefixScanner(ctrl)
			scanner.EXPECT().Scan(gomock.Any(), dir).Return([]domain.ScannedPrefix{
				{Path: filepath.Join(dir, "zlib"), Spec: zlib},
				{Path: filepath.Join(dir, "curl"), Spec: curl},
			}, nil)
			digester := mocks.NewMockDigester(ctrl)
			digester.EXPECT().Digest(gomock.Any()).Return("0123456789abcdef", nil).Times(2)

			db := mocks.NewMockDatabase(ctrl)
			db.EXPECT().Reindex(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, rebuild ports.Rebuild) error {
					records, err := rebuild(tt.previous, tt.readErr)
					require.NoError(t, err)
					require.Len(t, records, 2)
					for _, rec := range records {
						name := rec.Spec.Name.String()
						assert.Equal(t, tt.explicit[name], rec.Explicit, name)
						assert.Equal(t, filepath.Join(dir, name), rec.Path)
						assert.Equal(t, "0123456789abcdef", rec.ContentHash)
						if tt.previous != nil && name == "zlib" {
							assert.True(t, when.Equal(rec.InstallationTime))
						}
					}
					return nil
				})

			repo := app.NewRepositoryContext(root, mocks.NewMockLayout(ctrl), lock.New(dir, domain.DefaultConfig(dir).Locks), db)
			a := app.New(repo, config.NewManifestLoader(), nil, mocks.NewMockPrefixVerifier(ctrl), scanner, digester, telemetry.NewNoOp(), log)

			records, err := a.Reindex(context.Background())
			require.NoError(t, err)
			assert.Len(t, records, 2)
		})
	}
}
