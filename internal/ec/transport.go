//go:build linux

package ec

import (
	"io"
	"sync"
	"time"
)

const (
	// StatusPort is the EC status/command port (0x66 in the ACPI EC
	// convention used by Linux's acpi_ec / ec_sys drivers).
	StatusPort = 0x66
	// DataPort is the EC data port (0x62).
	DataPort = 0x62

	// ibfBit is the input-buffer-full flag on the status port: must read 0
	// before the transport emits a byte.
	ibfBit = 1 << 1
	// obfBit is the output-buffer-full flag on the status port: must read 1
	// before the transport reads a data byte.
	obfBit = 1 << 0

	cmdRead      = 0x80
	cmdWriteFan  = 0x99
	fanWritePort = 0x01

	// pollInterval and maxPolls bound the IBF/OBF spin to 100ms total, per
	// spec: "at most 100 one-millisecond polls".
	pollInterval = time.Millisecond
	maxPolls     = 100

	// BulkImageSize is the size of the kernel-exposed EC register image.
	BulkImageSize = 256
)

// Ports is the raw byte-wide I/O port boundary the transport drives. The
// real implementation backs it with /dev/port; tests back it with an
// in-memory register file.
type Ports interface {
	ReadStatus() (uint8, error)
	ReadData() (uint8, error)
	WriteCommand(b uint8) error
	WriteData(b uint8) error
}

// BulkImage is the alternative fast-read path: a single read of the whole
// EC register file, addressed by the same offsets as individual registers.
type BulkImage interface {
	Read() ([BulkImageSize]byte, error)
}

// Transport serializes all EC access behind the port handshake described in
// spec.md, preferring the bulk image path when one is available and falling
// back permanently to the port path on its first failure.
type Transport struct {
	mu sync.Mutex

	ports Ports
	bulk  BulkImage // nil if no bulk path was configured

	bulkLatchedOff bool // true once the bulk path has failed once
}

// New constructs a Transport. bulk may be nil if the host exposes no
// debugfs EC image; the transport then uses the port path exclusively.
func New(ports Ports, bulk BulkImage) *Transport {
	return &Transport{ports: ports, bulk: bulk}
}

// waitFlag spins until the status port's bit matches want, or returns
// ErrTimeout after maxPolls one-millisecond polls.
func (t *Transport) waitFlag(mask uint8, want bool) error {
	for i := 0; i < maxPolls; i++ {
		status, err := t.ports.ReadStatus()
		if err != nil {
			return err
		}
		set := status&mask != 0
		if set == want {
			return nil
		}
		time.Sleep(pollInterval)
	}
	return ErrTimeout
}

// ReadRegister performs a single port-level read transaction: wait for IBF
// clear, send the read command, wait for IBF clear, send the address, wait
// for OBF set, read the data byte.
func (t *Transport) ReadRegister(addr uint8) (uint8, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readRegisterLocked(addr)
}

func (t *Transport) readRegisterLocked(addr uint8) (uint8, error) {
	if err := t.waitFlag(ibfBit, false); err != nil {
		return 0, err
	}
	if err := t.ports.WriteCommand(cmdRead); err != nil {
		return 0, err
	}
	if err := t.waitFlag(ibfBit, false); err != nil {
		return 0, err
	}
	if err := t.ports.WriteData(addr); err != nil {
		return 0, err
	}
	if err := t.waitFlag(obfBit, true); err != nil {
		return 0, err
	}
	return t.ports.ReadData()
}

// WriteRegister performs a single port-level write transaction: wait for
// IBF clear, send the command byte, wait for IBF clear, send the port
// address byte, wait for IBF clear, send the value byte, final IBF wait.
func (t *Transport) WriteRegister(cmd, port, value uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.waitFlag(ibfBit, false); err != nil {
		return err
	}
	if err := t.ports.WriteCommand(cmd); err != nil {
		return err
	}
	if err := t.waitFlag(ibfBit, false); err != nil {
		return err
	}
	if err := t.ports.WriteData(port); err != nil {
		return err
	}
	if err := t.waitFlag(ibfBit, false); err != nil {
		return err
	}
	if err := t.ports.WriteData(value); err != nil {
		return err
	}
	return t.waitFlag(ibfBit, false)
}

// WriteFanDuty issues the fan-duty write command (0x99, port 0x01) with the
// given raw 0-255 value.
func (t *Transport) WriteFanDuty(raw uint8) error {
	return t.WriteRegister(cmdWriteFan, fanWritePort, raw)
}

// ReadAll reads the given register addresses, preferring one bulk-image
// read when the bulk path is configured and hasn't previously failed. On a
// short or failed bulk read it latches off the bulk path for the remainder
// of the process and falls back to one port-level ReadRegister per address.
func (t *Transport) ReadAll(addrs []uint8) (map[uint8]uint8, error) {
	t.mu.Lock()
	useBulk := t.bulk != nil && !t.bulkLatchedOff
	t.mu.Unlock()

	if useBulk {
		img, err := t.bulk.Read()
		if err == nil {
			out := make(map[uint8]uint8, len(addrs))
			for _, a := range addrs {
				out[a] = img[a]
			}
			return out, nil
		}
		t.mu.Lock()
		t.bulkLatchedOff = true
		t.mu.Unlock()
		if err != io.ErrUnexpectedEOF && err != io.EOF {
			// fall through to port path regardless of the specific cause;
			// the bulk error itself is discarded here.
		}
	}

	out := make(map[uint8]uint8, len(addrs))
	for _, a := range addrs {
		v, err := t.ReadRegister(a)
		if err != nil {
			return nil, err
		}
		out[a] = v
	}
	return out, nil
}

// UsingBulkPath reports whether the transport is currently preferring the
// bulk image path (true) or has latched onto the port-level path (false).
func (t *Transport) UsingBulkPath() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bulk != nil && !t.bulkLatchedOff
}
