//go:build unix

package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/cmd/depot/commands"
	"go.trai.ch/depot/internal/adapters/config"
	"go.trai.ch/depot/internal/adapters/database"
	"go.trai.ch/depot/internal/adapters/fs"
	"go.trai.ch/depot/internal/adapters/layout"
	"go.trai.ch/depot/internal/adapters/lock"
	"go.trai.ch/depot/internal/adapters/shell"
	"go.trai.ch/depot/internal/adapters/telemetry"
	"go.trai.ch/depot/internal/adapters/tree"
	"go.trai.ch/depot/internal/app"
	"go.trai.ch/depot/internal/build"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports/mocks"
	"go.trai.ch/depot/internal/engine/installer"
	"go.uber.org/mock/gomock"
)

const manifest = `
specs:
  zlib:
    version: "1.3"
    install:
      - mkdir -p "$PREFIX/lib"
      - touch "$PREFIX/lib/libz.a"
  curl:
    version: "8.5.0"
    depends_on: [zlib]
    install:
      - mkdir -p "$PREFIX/bin"
      - touch "$PREFIX/bin/curl"
`

type env struct {
	app      *app.App
	root     string
	manifest string
}

func setup(t *testing.T) *env {
	t.Helper()
	ctrl := gomock.NewController(t)

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	dir := t.TempDir()
	root := tree.Root{Path: filepath.Join(dir, "tree"), Source: tree.SourceConfigured, Config: domain.DefaultConfig(dir)}
	require.NoError(t, os.MkdirAll(root.Path, 0o755))

	lay, err := layout.New(root.Config.InstallTree.Layout, root.Path)
	require.NoError(t, err)
	locks := lock.New(root.Path, domain.LockConfig{Retries: 100, Delay: time.Millisecond})
	db := database.NewStore(root.Path, locks)
	repo := app.NewRepositoryContext(root, lay, locks, db)

	digester := fs.NewDigester(fs.NewWalker())
	tel := telemetry.NewNoOp()
	inst := installer.New(lay, db, locks, shell.NewBuilder(log), digester, tel, log)

	a := app.New(repo, config.NewManifestLoader(), inst, fs.NewVerifier(digester), fs.NewScanner(), digester, tel, log)
	t.Cleanup(func() { _ = a.Close() })

	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))

	return &env{app: a, root: root.Path, manifest: path}
}

func (e *env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := commands.New(e.app)
	cli.SetOutput(&out)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, build.Version+"\n", out)
}

func TestRootCmd(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "root")
	require.NoError(t, err)
	assert.Contains(t, out, e.root)
	assert.Contains(t, out, "configured")
}

func TestInstallFindLocation(t *testing.T) {
	e := setup(t)

	out, err := e.run(t, "install", "-m", e.manifest, "curl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "installed"))
	assert.Contains(t, lines[0], "zlib@1.3/")
	assert.Contains(t, lines[1], "curl@8.5.0/")

	out, err = e.run(t, "install", "-m", e.manifest, "curl")
	require.NoError(t, err)
	assert.Contains(t, out, "cached")

	out, err = e.run(t, "find", "--explicit")
	require.NoError(t, err)
	assert.Contains(t, out, "curl@8.5.0")
	assert.NotContains(t, out, "zlib")

	out, err = e.run(t, "find", "-X", "-l")
	require.NoError(t, err)
	assert.Contains(t, out, "zlib@1.3")
	assert.Contains(t, out, "implicit")

	out, err = e.run(t, "location", "curl@>=8")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(path, e.root))
	assert.FileExists(t, filepath.Join(path, "bin", "curl"))
}

func TestInstallCmd_RequiresManifest(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "install", "curl")
	require.Error(t, err)
}

func TestFindCmd_ExclusiveFlags(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "find", "-x", "-X")
	require.Error(t, err)
}

func TestLocationCmd_NotInstalled(t *testing.T) {
	e := setup(t)

	_, err := e.run(t, "location", "curl")
	require.ErrorIs(t, err, domain.ErrSpecNotInstalled)
}

func TestMarkCmd(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "install", "-m", e.manifest, "curl")
	require.NoError(t, err)

	_, err = e.run(t, "mark", "zlib")
	require.Error(t, err, "one of -e or -i is required")

	out, err := e.run(t, "mark", "-e", "zlib")
	require.NoError(t, err)
	assert.Contains(t, out, "marked explicit")

	out, err = e.run(t, "find", "--implicit")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestUninstallAndGC(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "install", "-m", e.manifest, "curl")
	require.NoError(t, err)

	_, err = e.run(t, "uninstall", "zlib")
	var depErr *domain.DependentsExistError
	require.ErrorAs(t, err, &depErr)

	out, err := e.run(t, "uninstall", "curl")
	require.NoError(t, err)
	assert.Contains(t, out, "removed curl@8.5.0")

	out, err = e.run(t, "gc", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would remove zlib@1.3")

	out, err = e.run(t, "gc")
	require.NoError(t, err)
	assert.Contains(t, out, "removed zlib@1.3")

	out, err = e.run(t, "find")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestVerifyAndReindex(t *testing.T) {
	e := setup(t)
	_, err := e.run(t, "install", "-m", e.manifest)
	require.NoError(t, err)

	_, err = e.run(t, "verify")
	require.NoError(t, err)

	out, err := e.run(t, "location", "zlib")
	require.NoError(t, err)
	lib := filepath.Join(strings.TrimSpace(out), "lib", "libz.a")
	require.NoError(t, os.WriteFile(lib, []byte("tampered"), 0o644))

	out, err = e.run(t, "verify")
	require.Error(t, err)
	assert.Contains(t, out, fs.ProblemModified)

	out, err = e.run(t, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 prefixes")

	_, err = e.run(t, "verify")
	require.NoError(t, err)
}

func TestLogFormatHook(t *testing.T) {
	e := setup(t)

	var got []bool
	cli := commands.New(e.app)
	cli.SetOutput(&bytes.Buffer{})
	cli.SetLogFormatHook(func(json bool) { got = append(got, json) })

	cli.SetArgs([]string{"--log-format", "json", "version"})
	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, []bool{true}, got)

	cli.SetArgs([]string{"--log-format", "xml", "version"})
	require.Error(t, cli.Execute(context.Background()))
}
