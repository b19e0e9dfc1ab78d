package wal

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// PosixShmFile reads the "-shm" file of a WAL database and probes the WAL
// locks with POSIX record locks, the same mechanism the default SQLite
// unix VFS uses, so the probes interoperate with live connections.
type PosixShmFile struct {
	file *os.File
}

// OpenShm opens the shared-memory file next to the given database path.
func OpenShm(dbPath string) (*PosixShmFile, error) {
	file, err := os.OpenFile(dbPath+"-shm", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open wal index: %w", err)
	}
	return &PosixShmFile{file: file}, nil
}

// Region0 reads the first shared-memory region.
func (s *PosixShmFile) Region0() ([]byte, error) {
	region := make([]byte, IndexSize)
	if _, err := s.file.ReadAt(region, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read wal index: %w", err)
	}
	return region, nil
}

// TryLockReader acquires the write lock of reader slot n without blocking.
func (s *PosixShmFile) TryLockReader(n int) error {
	if n < 0 || n >= NReader {
		return fmt.Errorf("reader slot %d out of range", n)
	}
	err := unix.FcntlFlock(s.file.Fd(), unix.F_SETLK, &unix.Flock_t{
		Type:  unix.F_WRLCK,
		Start: int64(LockOffset + readLockBase + n),
		Len:   1,
	})
	if err == unix.EACCES || err == unix.EAGAIN {
		return ErrBusy
	}
	if err != nil {
		return fmt.Errorf("failed to lock reader slot %d: %w", n, err)
	}
	return nil
}

// UnlockReader releases the lock of reader slot n.
func (s *PosixShmFile) UnlockReader(n int) error {
	if n < 0 || n >= NReader {
		return fmt.Errorf("reader slot %d out of range", n)
	}
	err := unix.FcntlFlock(s.file.Fd(), unix.F_SETLK, &unix.Flock_t{
		Type:  unix.F_UNLCK,
		Start: int64(LockOffset + readLockBase + n),
		Len:   1,
	})
	if err != nil {
		return fmt.Errorf("failed to unlock reader slot %d: %w", n, err)
	}
	return nil
}

// Close releases the file handle and with it any record locks held by it.
func (s *PosixShmFile) Close() error {
	return s.file.Close()
}
