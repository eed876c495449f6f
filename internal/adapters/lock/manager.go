//go:build unix

// Package lock provides named cross-process locks backed by flock(2).
package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

// Dir is the lock directory relative to the install tree root.
var Dir = filepath.Join(domain.MetadataDir, "locks")

const maxDelay = time.Second

// Manager hands out advisory locks on files under <root>/.depot/locks.
// Locks are held per open file, so two acquisitions in one process conflict
// just as acquisitions in two processes do. The kernel releases them when the
// holder exits.
type Manager struct {
	dir     string
	retries int
	delay   time.Duration

	mu   sync.Mutex
	held map[*os.File]struct{}
}

// New creates a Manager for the install tree at root.
func New(root string, cfg domain.LockConfig) *Manager {
	return &Manager{
		dir:     filepath.Join(root, Dir),
		retries: max(cfg.Retries, 1),
		delay:   max(cfg.Delay, time.Millisecond),
		held:    make(map[*os.File]struct{}),
	}
}

// Path returns the file backing the named lock.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, name+".lock")
}

// Exclusive implements ports.LockManager.
func (m *Manager) Exclusive(ctx context.Context, name string) (ports.Unlock, error) {
	return m.acquire(ctx, name, unix.LOCK_EX)
}

// Shared implements ports.LockManager.
func (m *Manager) Shared(ctx context.Context, name string) (ports.Unlock, error) {
	return m.acquire(ctx, name, unix.LOCK_SH)
}

func (m *Manager) acquire(ctx context.Context, name string, how int) (ports.Unlock, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, zerr.With(zerr.New("invalid lock name"), "lock", name)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create lock directory"), "path", m.dir)
	}

	path := m.Path(name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec // path is derived from the tree root
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open lock file"), "path", path)
	}

	delay := m.delay
	for attempt := 1; ; attempt++ {
		err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB)
		if err == nil {
			return m.track(f), nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = f.Close()
			return nil, zerr.With(zerr.Wrap(err, "failed to lock"), "path", path)
		}
		if attempt >= m.retries {
			_ = f.Close()
			lockErr := zerr.With(zerr.Wrap(domain.ErrLockContention, "gave up waiting for lock"), "lock", name)
			lockErr = zerr.With(lockErr, "path", path)
			return nil, zerr.With(lockErr, "attempts", attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = f.Close()
			return nil, zerr.With(zerr.Wrap(ctx.Err(), "lock wait cancelled"), "lock", name)
		case <-timer.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

// track records f as held and returns an idempotent unlock for it.
// Closing the file drops the lock.
func (m *Manager) track(f *os.File) ports.Unlock {
	m.mu.Lock()
	m.held[f] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	var err error
	return func() error {
		once.Do(func() {
			m.mu.Lock()
			_, ok := m.held[f]
			delete(m.held, f)
			m.mu.Unlock()
			if ok {
				err = f.Close()
			}
		})
		return err
	}
}

// Close releases every lock still held through m. Unlock functions of
// released locks become no-ops.
func (m *Manager) Close() error {
	m.mu.Lock()
	held := m.held
	m.held = make(map[*os.File]struct{})
	m.mu.Unlock()

	var errs []error
	for f := range held {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
