//go:build linux

// Package singleton enforces the single-instance requirement from
// spec.md §5: the EC's I/O ports are a process-exclusive resource, so
// exactly one fand process may hold control of them at a time. It uses
// an advisory flock(2) lock built on golang.org/x/sys/unix rather than a
// hand-rolled PID-file check.
package singleton

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned by Acquire when another process already
// holds the lock.
var ErrAlreadyRunning = errors.New("singleton: another instance is already running")

// DefaultLockPath is the well-known lock file path from spec.md §5.
const DefaultLockPath = "/run/fand.lock"

// Lock represents a held advisory flock. Release drops it.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive, non-blocking advisory lock on path,
// creating the file if needed. A second call from another process
// returns ErrAlreadyRunning instead of blocking.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("singleton: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("singleton: flock %s: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the lock and closes the underlying file. It does not
// remove the lock file: the next Acquire reuses it.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("singleton: unlock: %w", err)
	}
	return l.f.Close()
}
