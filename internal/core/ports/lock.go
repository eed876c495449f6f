package ports

import "context"

// Unlock releases a lock. Calling it more than once is harmless.
type Unlock func() error

// LockManager hands out named cross-process locks.
//
//go:generate go run go.uber.org/mock/mockgen -source=lock.go -destination=mocks/mock_lock.go -package=mocks
type LockManager interface {
	// Exclusive acquires the named lock for writing.
	// It retries a bounded number of times and then returns domain.ErrLockContention.
	Exclusive(ctx context.Context, name string) (Unlock, error)

	// Shared acquires the named lock for reading.
	Shared(ctx context.Context, name string) (Unlock, error)
}
