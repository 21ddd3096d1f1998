package ipc

import "errors"

var (
	// ErrInvalidArgument is returned (and translated to an ERROR: reply) when
	// a request names an unknown command or an out-of-range argument.
	ErrInvalidArgument = errors.New("ipc: invalid argument")

	// ErrIpc covers accept/recv failures that cause a connection to be
	// dropped without affecting any other connection.
	ErrIpc = errors.New("ipc: connection error")
)
