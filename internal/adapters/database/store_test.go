//go:build unix

package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/database"
	"go.trai.ch/depot/internal/adapters/lock"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
)

func newSpec(name, version string, deps ...*domain.Spec) *domain.Spec {
	return &domain.Spec{
		Name:         domain.NewInternedString(name),
		Version:      domain.NewInternedString(version),
		Compiler:     domain.NewInternedString("gcc@13.2.0"),
		Platform:     domain.NewInternedString("linux-x86_64"),
		Dependencies: deps,
	}
}

func newStore(t *testing.T, root string) *database.Store {
	t.Helper()
	locks := lock.New(root, domain.LockConfig{Retries: 1000, Delay: time.Millisecond})
	return database.NewStore(root, locks)
}

func prefix(root string, s *domain.Spec) string {
	return filepath.Join(root, s.Hash()[:2], s.Name.String()+"-"+s.Version.String()+"-"+s.Hash())
}

func rebuildWith(records ...*domain.InstallRecord) ports.Rebuild {
	return func([]*domain.InstallRecord, error) ([]*domain.InstallRecord, error) {
		return records, nil
	}
}

func hashes(specs []*domain.Spec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Hash())
	}
	return out
}

func TestRecordInstall_LookupRoundTrip(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, db.RecordInstall(ctx, zlib, prefix(root, zlib), true,
		ports.WithContentHash("0123456789abcdef"), ports.WithInstallationTime(when)))

	rec, err := db.Lookup(ctx, zlib)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Spec.Equal(zlib))
	assert.Equal(t, prefix(root, zlib), rec.Path)
	assert.True(t, rec.Explicit)
	assert.True(t, rec.Installed)
	assert.True(t, when.Equal(rec.InstallationTime))
	assert.Equal(t, "0123456789abcdef", rec.ContentHash)
	assert.Equal(t, 0, rec.RefCount)

	missing, err := db.Lookup(ctx, newSpec("zlib", "1.2.13"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRecordInstall_PersistsAcrossInstances(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")
	openssl := newSpec("openssl", "3.2.1", zlib)

	first := newStore(t, root)
	require.NoError(t, first.RecordInstall(ctx, zlib, prefix(root, zlib), false))
	require.NoError(t, first.RecordInstall(ctx, openssl, prefix(root, openssl), true))

	second := newStore(t, root)
	rec, err := second.Lookup(ctx, openssl)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Len(t, rec.Spec.Dependencies, 1)
	assert.Equal(t, zlib.Hash(), rec.Spec.Dependencies[0].Hash())

	dep, err := second.Get(ctx, zlib.Hash())
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, 1, dep.RefCount)
	assert.FileExists(t, database.IndexPath(root))
}

func TestRecordInstall_Idempotent(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")

	require.NoError(t, db.RecordInstall(ctx, zlib, prefix(root, zlib), false))
	before, err := os.ReadFile(database.IndexPath(root))
	require.NoError(t, err)

	require.NoError(t, db.RecordInstall(ctx, zlib, prefix(root, zlib), false))
	after, err := os.ReadFile(database.IndexPath(root))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	all, err := db.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordInstall_ExplicitOnlyPromotes(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")

	require.NoError(t, db.RecordInstall(ctx, zlib, prefix(root, zlib), true))
	require.NoError(t, db.RecordInstall(ctx, zlib, prefix(root, zlib), false))

	rec, err := db.Lookup(ctx, zlib)
	require.NoError(t, err)
	assert.True(t, rec.Explicit)
}

func TestRecordInstall_UpdatesPathAndContentHash(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")
	first := filepath.Join(root, "a")
	second := filepath.Join(root, "b")
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, db.RecordInstall(ctx, zlib, first, true,
		ports.WithContentHash("1111111111111111"), ports.WithInstallationTime(when)))
	require.NoError(t, db.RecordInstall(ctx, zlib, second, false, ports.WithContentHash("2222222222222222")))

	rec, err := db.Lookup(ctx, zlib)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, second, rec.Path)
	assert.Equal(t, "2222222222222222", rec.ContentHash)
	assert.True(t, rec.Explicit)
	assert.True(t, when.Equal(rec.InstallationTime))

	// Without a new digest the recorded one is kept.
	require.NoError(t, db.RecordInstall(ctx, zlib, second, false))
	rec, err = db.Lookup(ctx, zlib)
	require.NoError(t, err)
	assert.Equal(t, "2222222222222222", rec.ContentHash)

	other := newSpec("zlib", "1.3.0")
	require.NoError(t, db.RecordInstall(ctx, other, first, true))
	err = db.RecordInstall(ctx, zlib, first, true)
	require.ErrorIs(t, err, domain.ErrPathCollision)
	rec, err = db.Lookup(ctx, zlib)
	require.NoError(t, err)
	assert.Equal(t, second, rec.Path)
}

func TestRecordInstall_MissingDependency(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	zlib := newSpec("zlib", "1.3.1")
	openssl := newSpec("openssl", "3.2.1", zlib)

	err := db.RecordInstall(context.Background(), openssl, prefix(root, openssl), true)
	assert.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestRecordInstall_PathCollision(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	a := newSpec("zlib", "1.3.1")
	b := newSpec("zlib", "1.3.0")

	require.NoError(t, db.RecordInstall(ctx, a, filepath.Join(root, "shared"), true))
	err := db.RecordInstall(ctx, b, filepath.Join(root, "shared"), true)
	assert.ErrorIs(t, err, domain.ErrPathCollision)
}

func TestRecordInstall_InvalidSpec(t *testing.T) {
	db := newStore(t, t.TempDir())
	err := db.RecordInstall(context.Background(), newSpec("zlib", ""), "/x", true)
	assert.ErrorIs(t, err, domain.ErrInvalidSpec)
}

func TestUnusedSpecs_ExplicitAndImplicit(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	a := newSpec("a", "1.0")

	require.NoError(t, db.RecordInstall(ctx, a, prefix(root, a), false))
	unused, err := db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.Hash()}, hashes(unused))

	require.NoError(t, db.RecordInstall(ctx, a, prefix(root, a), true))
	unused, err = db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Empty(t, unused)
}

func TestUnusedSpecs_OrderedDependentsFirst(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	base := newSpec("base", "1.0")
	mid := newSpec("mid", "1.0", base)
	top := newSpec("top", "1.0", mid)

	for _, s := range []*domain.Spec{base, mid, top} {
		require.NoError(t, db.RecordInstall(ctx, s, prefix(root, s), false))
	}

	unused, err := db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{top.Hash(), mid.Hash(), base.Hash()}, hashes(unused))
}

func TestUnusedSpecs_ImplicitChain(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	b := newSpec("b", "1.0")
	a := newSpec("a", "1.0", b)
	c := newSpec("c", "1.0")

	require.NoError(t, db.RecordInstall(ctx, b, prefix(root, b), false))
	require.NoError(t, db.RecordInstall(ctx, a, prefix(root, a), false))
	require.NoError(t, db.RecordInstall(ctx, c, prefix(root, c), true))

	// b has a dependent, but nothing explicit needs either of them.
	unused, err := db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a.Hash(), b.Hash()}, hashes(unused))

	require.NoError(t, db.SetExplicit(ctx, a, true))
	unused, err = db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Empty(t, unused)
}

func TestDependentsOf_Transitive(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")
	openssl := newSpec("openssl", "3.2.1", zlib)
	curl := newSpec("curl", "8.6.0", openssl)
	other := newSpec("other", "1.0")

	for _, s := range []*domain.Spec{zlib, openssl, curl, other} {
		require.NoError(t, db.RecordInstall(ctx, s, prefix(root, s), true))
	}

	deps, err := db.DependentsOf(ctx, zlib)
	require.NoError(t, err)
	assert.Equal(t, []string{curl.Hash(), openssl.Hash()}, hashes(deps))

	deps, err = db.DependentsOf(ctx, curl)
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestRemove_DependentsExist(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")
	y := newSpec("y", "2.0", x)

	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), false))
	require.NoError(t, db.RecordInstall(ctx, y, prefix(root, y), true))
	before, err := os.ReadFile(database.IndexPath(root))
	require.NoError(t, err)

	_, err = db.Remove(ctx, x, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDependentsExist)

	var depErr *domain.DependentsExistError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, []string{y.Hash()}, hashes(depErr.Dependents))

	after, err := os.ReadFile(database.IndexPath(root))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestRemove_Scenario(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")
	y := newSpec("y", "2.0", x)

	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), false))
	require.NoError(t, db.RecordInstall(ctx, y, prefix(root, y), true))

	unused, err := db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Empty(t, unused)

	removed, err := db.Remove(ctx, y, false)
	require.NoError(t, err)
	assert.Equal(t, prefix(root, y), removed.Path)

	unused, err = db.UnusedSpecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{x.Hash()}, hashes(unused))

	rec, err := db.Get(ctx, x.Hash())
	require.NoError(t, err)
	assert.Equal(t, 0, rec.RefCount)

	removed, err = db.Remove(ctx, x, false)
	require.NoError(t, err)
	assert.Equal(t, prefix(root, x), removed.Path)

	all, err := db.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRemove_ForcedKeepsReference(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")
	y := newSpec("y", "2.0", x)

	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), false))
	require.NoError(t, db.RecordInstall(ctx, y, prefix(root, y), true))

	_, err := db.Remove(ctx, x, true)
	require.NoError(t, err)

	rec, err := db.Lookup(ctx, x)
	require.NoError(t, err)
	assert.Nil(t, rec, "forced removal hides the spec from lookups")

	ref, err := db.Get(ctx, x.Hash())
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.False(t, ref.Installed)

	// y still resolves its dependency from a fresh instance.
	got, err := newStore(t, root).Lookup(ctx, y)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, x.Hash(), got.Spec.Dependencies[0].Hash())

	// Reinstalling the dependency restores it; removing y then drops nothing else.
	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), false))
	rec, err = db.Lookup(ctx, x)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.RefCount)
}

func TestRemove_ForcedReferenceIsPrunedWithLastDependent(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")
	y := newSpec("y", "2.0", x)

	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), false))
	require.NoError(t, db.RecordInstall(ctx, y, prefix(root, y), true))
	_, err := db.Remove(ctx, x, true)
	require.NoError(t, err)
	_, err = db.Remove(ctx, y, false)
	require.NoError(t, err)

	all, err := db.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRemove_NotInstalled(t *testing.T) {
	db := newStore(t, t.TempDir())
	_, err := db.Remove(context.Background(), newSpec("x", "1.0"), false)
	assert.ErrorIs(t, err, domain.ErrSpecNotInstalled)
}

func TestSetExplicit(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")

	require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), true))
	require.NoError(t, db.SetExplicit(ctx, x, false))

	rec, err := db.Lookup(ctx, x)
	require.NoError(t, err)
	assert.False(t, rec.Explicit)

	err = db.SetExplicit(ctx, newSpec("y", "1.0"), true)
	assert.ErrorIs(t, err, domain.ErrSpecNotInstalled)
}

func TestQuery(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	old := newSpec("zlib", "1.2.13")
	cur := newSpec("zlib", "1.3.1")
	curl := newSpec("curl", "8.6.0", cur)

	require.NoError(t, db.RecordInstall(ctx, old, prefix(root, old), true))
	require.NoError(t, db.RecordInstall(ctx, cur, prefix(root, cur), false))
	require.NoError(t, db.RecordInstall(ctx, curl, prefix(root, curl), true))

	q, err := domain.ParseQuery("zlib")
	require.NoError(t, err)
	recs, err := db.Query(ctx, q)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1.2.13", recs[0].Spec.Version.String())
	assert.Equal(t, "1.3.1", recs[1].Spec.Version.String())

	q, err = domain.ParseQuery("zlib@>=1.3")
	require.NoError(t, err)
	recs, err = db.Query(ctx, q)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Spec.Equal(cur))

	implicit := false
	recs, err = db.Query(ctx, domain.Query{Explicit: &implicit})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Spec.Equal(cur))
}

func TestReindex(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")
	openssl := newSpec("openssl", "3.2.1", zlib)
	stale := newSpec("stale", "0.1")

	require.NoError(t, db.RecordInstall(ctx, stale, prefix(root, stale), true))
	require.NoError(t, db.Reindex(ctx, rebuildWith(
		&domain.InstallRecord{Spec: openssl, Path: prefix(root, openssl), Explicit: true},
	)))

	all, err := db.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	rec, err := db.Lookup(ctx, openssl)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Installed)
	assert.False(t, rec.InstallationTime.IsZero())

	ref, err := db.Get(ctx, zlib.Hash())
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.False(t, ref.Installed)
	assert.Equal(t, 1, ref.RefCount)

	gone, err := db.Lookup(ctx, stale)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestReindex_HoldsLockDuringRebuild(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	other := newStore(t, root)
	ctx := context.Background()
	x := newSpec("x", "1.0")
	y := newSpec("y", "1.0")

	var wg sync.WaitGroup
	var recordErr error
	require.NoError(t, db.Reindex(ctx, func([]*domain.InstallRecord, error) ([]*domain.InstallRecord, error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recordErr = other.RecordInstall(ctx, y, prefix(root, y), true)
		}()
		// Give the other writer time to commit if the lock were not held.
		time.Sleep(50 * time.Millisecond)
		return []*domain.InstallRecord{{Spec: x, Path: prefix(root, x), Explicit: true}}, nil
	}))
	wg.Wait()
	require.NoError(t, recordErr)

	for _, s := range []*domain.Spec{x, y} {
		rec, err := db.Lookup(ctx, s)
		require.NoError(t, err)
		assert.NotNil(t, rec, s.Short())
	}
}

func TestReindex_PathCollision(t *testing.T) {
	root := t.TempDir()
	db := newStore(t, root)
	err := db.Reindex(context.Background(), rebuildWith(
		&domain.InstallRecord{Spec: newSpec("a", "1"), Path: "/same"},
		&domain.InstallRecord{Spec: newSpec("b", "1"), Path: "/same"},
	))
	assert.ErrorIs(t, err, domain.ErrPathCollision)
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, raw map[string]any) []byte
	}{
		{
			name: "not json",
			mutate: func(*testing.T, map[string]any) []byte {
				return []byte("{not json")
			},
		},
		{
			name: "future version",
			mutate: func(t *testing.T, raw map[string]any) []byte {
				raw["database"].(map[string]any)["version"] = 99
				return mustJSON(t, raw)
			},
		},
		{
			name: "tampered spec",
			mutate: func(t *testing.T, raw map[string]any) []byte {
				installs := raw["database"].(map[string]any)["installs"].(map[string]any)
				for _, entry := range installs {
					entry.(map[string]any)["spec"].(map[string]any)["version"] = "9.9.9"
				}
				return mustJSON(t, raw)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			db := newStore(t, root)
			ctx := context.Background()
			x := newSpec("x", "1.0")
			require.NoError(t, db.RecordInstall(ctx, x, prefix(root, x), true))

			data, err := os.ReadFile(database.IndexPath(root))
			require.NoError(t, err)
			var raw map[string]any
			require.NoError(t, json.Unmarshal(data, &raw))
			require.NoError(t, os.WriteFile(database.IndexPath(root), tt.mutate(t, raw), 0o600))

			_, err = db.Lookup(ctx, x)
			assert.ErrorIs(t, err, domain.ErrCorruptDatabase)

			// Reindexing rebuilds the index and reports the read error instead of failing.
			var gotErr error
			require.NoError(t, db.Reindex(ctx, func(previous []*domain.InstallRecord, readErr error) ([]*domain.InstallRecord, error) {
				assert.Nil(t, previous)
				gotErr = readErr
				return []*domain.InstallRecord{{Spec: x, Path: prefix(root, x), Explicit: true}}, nil
			}))
			assert.ErrorIs(t, gotErr, domain.ErrCorruptDatabase)
			rec, err := db.Lookup(ctx, x)
			require.NoError(t, err)
			assert.NotNil(t, rec)
		})
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestConcurrentRecordInstall_SingleEntry(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	zlib := newSpec("zlib", "1.3.1")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate stores model separate processes sharing the tree.
			errs <- newStore(t, root).RecordInstall(ctx, zlib, prefix(root, zlib), false)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := newStore(t, root).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConcurrentRecordInstall_DistinctSpecs(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()
	specs := []*domain.Spec{
		newSpec("a", "1"), newSpec("b", "1"), newSpec("c", "1"), newSpec("d", "1"),
	}

	var wg sync.WaitGroup
	for _, s := range specs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, newStore(t, root).RecordInstall(ctx, s, prefix(root, s), true))
		}()
	}
	wg.Wait()

	all, err := newStore(t, root).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(specs), "no write may be lost")
}
