package ec

import "errors"

var (
	// ErrTimeout indicates the IBF/OBF handshake did not reach the expected
	// state within the bounded spin (100 x 1ms polls).
	ErrTimeout = errors.New("ec: handshake timeout")

	// ErrShortRead indicates the debugfs bulk-image read returned fewer than
	// 256 bytes, or failed outright. The transport falls back to the
	// port-level path and latches that preference for the process lifetime.
	ErrShortRead = errors.New("ec: short bulk read")
)
