// Package ec implements the Embedded Controller transport described in
// spec.md §4.1/§6: a byte-wide status/command port and a byte-wide data
// port, addressed with a wait-for-flag handshake, plus an optional bulk
// fast-read path.
//
// # Port protocol
//
// Two fixed ports:
//
//	StatusPort = 0x66  (status/command)
//	DataPort   = 0x62  (data)
//
// Status-port flags:
//
//	IBF (input-buffer-full)  = bit 1, expected 0 before any send
//	OBF (output-buffer-full) = bit 0, expected 1 before any read
//
// Each transaction spins on the relevant flag for up to 100 one-millisecond
// polls before giving up with ErrTimeout. A read transaction is:
//
//  1. wait IBF==0
//  2. write 0x80 (read command) to StatusPort
//  3. wait IBF==0
//  4. write the register address to DataPort
//  5. wait OBF==1
//  6. read the value from DataPort
//
// A write transaction is the same shape with one extra IBF wait and a value
// byte instead of a final read:
//
//  1. wait IBF==0
//  2. write the command byte to StatusPort
//  3. wait IBF==0
//  4. write the port-address byte to DataPort
//  5. wait IBF==0
//  6. write the value byte to DataPort
//  7. wait IBF==0
//
// Fan-duty writes use command 0x99 with port-address 0x01 — see
// Transport.WriteFanDuty.
//
// # Bulk path
//
// When the kernel exposes a 256-byte EC register image (on Linux, via the
// ec_sys debugfs module at /sys/kernel/debug/ec/ec0/io), Transport.ReadAll
// prefers one read of that image over N port-level ReadRegister calls. The
// first short read or I/O error permanently latches the transport onto the
// port-level path for the remainder of the process — see
// Transport.UsingBulkPath.
//
// # Testability
//
// Transport depends only on the Ports and BulkImage interfaces, not on
// /dev/port or debugfs directly, so callers can substitute an in-memory
// fake register file addressed by the same offsets (see transport_test.go).
package ec
