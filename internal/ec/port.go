//go:build linux

package ec

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DevPortPath is the standard Linux ISA port-space device node.
const DevPortPath = "/dev/port"

// devPort implements Ports over /dev/port using positioned reads/writes at
// the two fixed EC port offsets, the userspace equivalent of inb/outb
// without cgo.
type devPort struct {
	f *os.File
}

// OpenPorts opens /dev/port for raw status/data port access. Callers must
// already hold the capability to do so (see internal/privilege).
func OpenPorts() (*devPort, error) {
	f, err := os.OpenFile(DevPortPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("ec: open %s: %w", DevPortPath, err)
	}
	return &devPort{f: f}, nil
}

// Close releases the underlying /dev/port file descriptor.
func (p *devPort) Close() error { return p.f.Close() }

func (p *devPort) ReadStatus() (uint8, error) { return p.read(StatusPort) }
func (p *devPort) ReadData() (uint8, error)   { return p.read(DataPort) }

func (p *devPort) WriteCommand(b uint8) error { return p.write(StatusPort, b) }
func (p *devPort) WriteData(b uint8) error    { return p.write(DataPort, b) }

func (p *devPort) read(offset int64) (uint8, error) {
	var buf [1]byte
	n, err := unix.Pread(int(p.f.Fd()), buf[:], offset)
	if err != nil {
		return 0, fmt.Errorf("ec: pread port 0x%x: %w", offset, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("ec: short pread at port 0x%x", offset)
	}
	return buf[0], nil
}

func (p *devPort) write(offset int64, b uint8) error {
	buf := [1]byte{b}
	n, err := unix.Pwrite(int(p.f.Fd()), buf[:], offset)
	if err != nil {
		return fmt.Errorf("ec: pwrite port 0x%x: %w", offset, err)
	}
	if n != 1 {
		return fmt.Errorf("ec: short pwrite at port 0x%x", offset)
	}
	return nil
}
