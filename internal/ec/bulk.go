//go:build linux

package ec

import (
	"fmt"
	"io"
	"os"
)

// DebugfsImagePath is the 256-byte EC register image exposed by Linux's
// ec_sys kernel module (loaded with write_support=1 to also permit writes).
const DebugfsImagePath = "/sys/kernel/debug/ec/ec0/io"

// fileBulkImage implements BulkImage by reading the debugfs EC image file
// fresh on every call — the kernel refreshes it on open, so there is no
// caching to do here.
type fileBulkImage struct {
	path string
}

// OpenBulkImage probes path for readability and returns a BulkImage backed
// by it, or an error if the path can't be opened or yields fewer than
// BulkImageSize bytes.
func OpenBulkImage(path string) (BulkImage, error) {
	if path == "" {
		path = DebugfsImagePath
	}
	b := &fileBulkImage{path: path}
	if _, err := b.Read(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *fileBulkImage) Read() ([BulkImageSize]byte, error) {
	var out [BulkImageSize]byte
	f, err := os.Open(b.path)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrShortRead, err)
	}
	defer func() { _ = f.Close() }()

	n, err := io.ReadFull(f, out[:])
	if err != nil || n != BulkImageSize {
		return out, fmt.Errorf("%w: read %d/%d bytes: %v", ErrShortRead, n, BulkImageSize, err)
	}
	return out, nil
}
