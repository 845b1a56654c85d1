package wl

import "fmt"

// ConnectionLostError is returned once the transport to the compositor
// fails. It is not recoverable.
type ConnectionLostError struct {
	Err error
}

func (err *ConnectionLostError) Error() string {
	return fmt.Sprintf("connection to compositor lost: %v", err.Err)
}

func (err *ConnectionLostError) Unwrap() error {
	return err.Err
}

// ProtocolError is a fatal error reported by the compositor through
// wl_display.error. The compositor closes the connection after sending
// it.
type ProtocolError struct {
	ObjectID uint32
	Object   string
	Code     uint32
	Message  string
}

func (err *ProtocolError) Error() string {
	obj := err.Object
	if obj == "" {
		obj = fmt.Sprintf("object %v", err.ObjectID)
	}
	return fmt.Sprintf("protocol error on %v: code %v: %v", obj, err.Code, err.Message)
}
