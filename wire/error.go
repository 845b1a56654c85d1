package wire

import (
	"fmt"
)

// UnknownOpError is returned by Object.Dispatch if it is given a
// message with an invalid opcode.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// TransportUnavailableError is returned by Dial when no compositor
// can be reached.
type TransportUnavailableError struct {
	// Path is the socket path or, for WAYLAND_SOCKET, the variable's
	// value.
	Path string
	Err  error
}

func (err *TransportUnavailableError) Error() string {
	return fmt.Sprintf("wayland transport unavailable at %q: %v", err.Path, err.Err)
}

func (err *TransportUnavailableError) Unwrap() error {
	return err.Err
}

// MessageSizeError is returned when a message would not fit in the
// 16-bit size field of the header, or when a received header claims a
// size smaller than the header itself.
type MessageSizeError struct {
	Size int
}

func (err MessageSizeError) Error() string {
	return fmt.Sprintf("invalid message size: %v", err.Size)
}
