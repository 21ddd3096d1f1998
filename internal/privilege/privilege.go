//go:build linux

// Package privilege is the one external collaborator spec.md §6
// documents for capability acquisition: opening the EC's I/O surface
// requires elevated access, and this package's Acquire is the only place
// that requirement is tested. The actual privilege-elevation mechanism
// (pkexec/setcap/capsh) is out of scope; Acquire only probes whether the
// access is already in place, the way pkg/system/cgroup.Detect in the
// teacher probes filesystem capability before committing to a collector.
package privilege

import (
	"errors"
	"fmt"
	"os"

	"github.com/jhstatewide/fand/internal/ec"
)

// ErrDenied is returned when the probe open fails, meaning the process
// lacks the access it needs to drive the EC.
var ErrDenied = errors.New("privilege: access denied")

// Acquire probes access to the EC port device. It returns ErrDenied
// (wrapped with the underlying cause) if the port device cannot be opened
// for read/write.
func Acquire() error {
	return probe(ec.DevPortPath)
}

// probe is the testable core of Acquire: open-then-close against an
// arbitrary path, so tests can exercise both outcomes without touching
// /dev/port.
func probe(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDenied, path, err)
	}
	return f.Close()
}
