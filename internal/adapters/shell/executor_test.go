package shell_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depot/internal/adapters/shell"
	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func newRequest(t *testing.T, steps ...string) domain.BuildRequest {
	t.Helper()
	return domain.BuildRequest{
		Spec: &domain.Spec{
			Name:    domain.NewInternedString("zlib"),
			Version: domain.NewInternedString("1.3.1"),
		},
		Prefix: t.TempDir(),
		Steps:  steps,
	}
}

func TestBuilder_Build_MultiLineOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	gomock.InOrder(
		mockLogger.EXPECT().Info("line1"),
		mockLogger.EXPECT().Info("line2"),
	)

	var stdout bytes.Buffer
	err := shell.NewBuilder(mockLogger).Build(context.Background(), newRequest(t, "echo line1; echo line2"), &stdout, nil)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\n", stdout.String())
}

func TestBuilder_Build_FragmentedOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("part1part2").Times(1)
	mockLogger.EXPECT().Info("tail").Times(1)

	req := newRequest(t, "printf part1; sleep 0.1; echo part2; printf tail")
	err := shell.NewBuilder(mockLogger).Build(context.Background(), req, nil, nil)
	require.NoError(t, err)
}

func TestBuilder_Build_StderrIsWarning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Warn("careful").Times(1)

	var stderr bytes.Buffer
	err := shell.NewBuilder(mockLogger).Build(context.Background(), newRequest(t, "echo careful >&2"), nil, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "careful\n", stderr.String())
}

func TestBuilder_Build_Environment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	req := newRequest(t,
		`echo "$PREFIX" > prefix.txt`,
		`pwd -P > cwd.txt`,
		`echo "$DEPOT_SPEC_NAME $DEPOT_SPEC_VERSION $DEPOT_SPEC_HASH" > spec.txt`,
	)

	err := shell.NewBuilder(mockLogger).Build(context.Background(), req, nil, nil)
	require.NoError(t, err)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(req.Prefix, name))
		require.NoError(t, err)
		return strings.TrimSpace(string(data))
	}
	resolved, err := filepath.EvalSymlinks(req.Prefix)
	require.NoError(t, err)

	assert.Equal(t, req.Prefix, read("prefix.txt"))
	assert.Equal(t, resolved, read("cwd.txt"))
	assert.Equal(t, "zlib 1.3.1 "+req.Spec.Hash(), read("spec.txt"))
}

func TestBuilder_Build_DependencyPrefixes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("from-dependency").Times(1)
	mockLogger.EXPECT().Info(gomock.Not("from-dependency")).AnyTimes()

	depPrefix := t.TempDir()
	tool := filepath.Join(depPrefix, "bin", "dep-tool-xyz")
	require.NoError(t, os.MkdirAll(filepath.Dir(tool), 0o755))
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho from-dependency\n"), 0o755))

	req := newRequest(t, "dep-tool-xyz", `echo "$DEPOT_DEP_LIB_XML2_PREFIX" > dep.txt`)
	req.DependencyPrefixes = map[string]string{"lib-xml2": depPrefix}

	err := shell.NewBuilder(mockLogger).Build(context.Background(), req, nil, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(req.Prefix, "dep.txt"))
	require.NoError(t, err)
	assert.Equal(t, depPrefix, strings.TrimSpace(string(data)))
}

func TestBuilder_Build_Failure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	req := newRequest(t, "true", "exit 42", "touch never")
	err := shell.NewBuilder(mockLogger).Build(context.Background(), req, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBuildFailed)

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	meta := zErr.Metadata()
	assert.Equal(t, 42, meta["exit_code"])
	assert.Equal(t, 2, meta["step"])
	assert.Equal(t, "exit 42", meta["command"])

	assert.NoFileExists(t, filepath.Join(req.Prefix, "never"))
}

func TestBuilder_Build_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLogger := mocks.NewMockLogger(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := shell.NewBuilder(mockLogger).Build(ctx, newRequest(t, "sleep 5"), nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrBuildFailed)
}

func TestBuilder_Build_NoSteps(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	err := shell.NewBuilder(mocks.NewMockLogger(ctrl)).Build(context.Background(), newRequest(t), nil, nil)
	require.NoError(t, err)
}

func TestDependencyVariable(t *testing.T) {
	assert.Equal(t, "DEPOT_DEP_ZLIB_PREFIX", shell.DependencyVariable("zlib"))
	assert.Equal(t, "DEPOT_DEP_PY_SETUPTOOLS_PREFIX", shell.DependencyVariable("py-setuptools"))
	assert.Equal(t, "DEPOT_DEP_LIBXML2_PREFIX", shell.DependencyVariable("libxml2"))
}

func TestResolveEnvironment(t *testing.T) {
	sys := []string{"HOME=/home/u", "PATH=/usr/bin", "PREFIX=/stale"}
	build := []string{"PREFIX=/opt/x", "PATH=/dep/bin"}

	got := shell.ResolveEnvironment(sys, build)
	assert.Equal(t, []string{"HOME=/home/u", "PATH=/dep/bin:/usr/bin", "PREFIX=/opt/x"}, got)
}
