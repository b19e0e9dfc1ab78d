package wal

import "errors"

// ErrBusy is returned by TryLockReader when another process or connection
// holds the reader lock.
var ErrBusy = errors.New("reader lock busy")

// ShmFile gives access to the shared-memory map of a WAL database: the
// first region holding the index, and the per-reader lock bytes. The
// checkpoint decision only ever probes locks, it never holds them.
type ShmFile interface {
	// Region0 returns the first shared-memory region as a read-only
	// byte view.
	Region0() ([]byte, error)

	// TryLockReader acquires the exclusive lock of reader slot n
	// without blocking. ErrBusy means an active reader holds it.
	TryLockReader(n int) error

	// UnlockReader releases a lock acquired with TryLockReader.
	UnlockReader(n int) error

	// Close releases the underlying file handle.
	Close() error
}
