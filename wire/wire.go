// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is primarly intended for usage by the protocol
// bindings in the client and layershell packages.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

// byteOrder is the host byte order.
var byteOrder binary.ByteOrder = binary.LittleEndian

func init() {
	n := uint32(1)
	b := (*[4]byte)(unsafe.Pointer(&n))
	if b[0] == 0 {
		byteOrder = binary.BigEndian
	}
}

// HeaderSize is the size of a message header: a 32-bit sender ID
// followed by a 16-bit opcode and a 16-bit total message size.
const HeaderSize = 8

func read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	v := byteOrder.Uint32(data[:])
	return *(*T)(unsafe.Pointer(&v)), nil
}

func write[T ~int32 | ~uint32](w io.Writer, v T) error {
	var data [4]byte
	byteOrder.PutUint32(data[:], *(*uint32)(unsafe.Pointer(&v)))
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// padding returns the number of bytes needed to pad a value of the
// given length to a 32-bit boundary.
func padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}

// Object represents a Wayland protocol object.
type Object interface {
	// ID returns the object's ID. It is zero if the object has not
	// been added to an object store yet.
	ID() uint32

	// SetID sets the object's ID.
	SetID(id uint32)

	// Delete is called when the object's ID is retired.
	Delete()

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// MethodName returns the name of the event or request with the
	// given opcode. It is used for debugging.
	MethodName(op uint16) string
}

// NewID is an untyped new_id argument. The interface and version are
// sent along with the ID itself, such as in wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func (id NewID) String() string {
	return fmt.Sprintf("%v@%v (v%v)", id.Interface, id.ID, id.Version)
}
