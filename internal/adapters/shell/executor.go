// Package shell provides the shell builder adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Builder = (*Builder)(nil)

// Builder implements ports.Builder by running each install step with sh -c.
type Builder struct {
	logger ports.Logger
	shell  string
}

// NewBuilder creates a new Builder.
func NewBuilder(logger ports.Logger) *Builder {
	return &Builder{
		logger: logger,
		shell:  "sh",
	}
}

// Build runs the install steps of req in order, stopping at the first failure.
// Every step starts in the prefix with the build environment of req.
// Output goes to stdout and stderr as it is produced and, line by line, to the logger.
func (b *Builder) Build(ctx context.Context, req domain.BuildRequest, stdout, stderr io.Writer) error {
	if len(req.Steps) == 0 {
		return nil
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	env := resolveEnvironment(os.Environ(), buildEnvironment(req))

	executable := b.shell
	if lp, err := lookPath(b.shell, env); err == nil {
		executable = lp
	}

	for i, step := range req.Steps {
		if err := b.run(ctx, executable, step, req.Prefix, env, stdout, stderr); err != nil {
			err = zerr.With(err, "step", i+1)
			return zerr.With(err, "spec", req.Spec.Short())
		}
	}
	return nil
}

func (b *Builder) run(ctx context.Context, executable, step, dir string, env []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, executable, "-c", step) //nolint:gosec // Install steps come from the manifest
	cmd.Args[0] = b.shell
	cmd.Dir = dir
	cmd.Env = env

	outLog := &logWriter{logger: b.logger, level: domain.LogLevelInfo}
	errLog := &logWriter{logger: b.logger, level: domain.LogLevelWarn}
	cmd.Stdout = io.MultiWriter(stdout, outLog)
	cmd.Stderr = io.MultiWriter(stderr, errLog)

	err := cmd.Run()
	outLog.Flush()
	errLog.Flush()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return zerr.Wrap(ctxErr, "install step interrupted")
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	failure := zerr.With(zerr.Wrap(domain.ErrBuildFailed, "command failed"), "exit_code", exitCode)
	failure = zerr.With(failure, "command", step)
	return zerr.With(failure, "reason", err.Error())
}

// logWriter forwards complete lines to the logger. A trailing partial line is
// held until the next write or Flush.
type logWriter struct {
	logger ports.Logger
	level  domain.LogLevel

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Put the partial line back for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimSuffix(line, "\n"))
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logWriter) emit(line string) {
	if w.level >= domain.LogLevelWarn {
		w.logger.Warn(line)
		return
	}
	w.logger.Info(line)
}

// buildEnvironment returns the variables a step sees on top of the system environment.
// PATH holds only the dependency bin directories; resolveEnvironment prepends it.
func buildEnvironment(req domain.BuildRequest) []string {
	env := []string{
		"PREFIX=" + req.Prefix,
		"DEPOT_SPEC_NAME=" + req.Spec.Name.String(),
		"DEPOT_SPEC_VERSION=" + req.Spec.Version.String(),
		"DEPOT_SPEC_HASH=" + req.Spec.Hash(),
	}

	names := make([]string, 0, len(req.DependencyPrefixes))
	for name := range req.DependencyPrefixes {
		names = append(names, name)
	}
	slices.Sort(names)

	bins := make([]string, 0, len(names))
	for _, name := range names {
		prefix := req.DependencyPrefixes[name]
		env = append(env, DependencyVariable(name)+"="+prefix)
		bins = append(bins, filepath.Join(prefix, "bin"))
	}
	if len(bins) > 0 {
		env = append(env, "PATH="+strings.Join(bins, string(os.PathListSeparator)))
	}
	return env
}

// DependencyVariable returns the name of the variable that holds the prefix of
// dependency name, e.g. DEPOT_DEP_LIBXML2_PREFIX for libxml2.
func DependencyVariable(name string) string {
	var b strings.Builder
	b.WriteString("DEPOT_DEP_")
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteString("_PREFIX")
	return b.String()
}

// resolveEnvironment merges environment variables with the defined priority.
// Build variables override system ones, except PATH, where the build entries are
// prepended to the system PATH. The result is sorted.
func resolveEnvironment(sysEnv, buildEnv []string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok {
			envMap[k] = v
		}
	}

	for _, entry := range buildEnv {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if k == "PATH" {
			if sysPath, exists := envMap["PATH"]; exists && sysPath != "" {
				v = v + string(os.PathListSeparator) + sysPath
			}
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH environment variable.
func lookPath(file string, env []string) (string, error) {
	if filepath.IsAbs(file) {
		return file, findExecutable(file)
	}

	var path string
	for _, e := range env {
		if p, ok := strings.CutPrefix(e, "PATH="); ok {
			path = p
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
